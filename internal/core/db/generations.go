package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/ensuregen/internal/types"
)

// Generation statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Generation is one recorded generate run for a manifest.
type Generation struct {
	ID                 string `db:"id"`
	ManifestPath       string `db:"manifest_path"`
	OutputPath         string `db:"output_path"`
	InputHash          string `db:"input_hash"`
	CatalogFingerprint string `db:"catalog_fingerprint"`
	ToolVersion        string `db:"tool_version"`
	Status             string `db:"status"`
	Validators         int    `db:"validators"`
	FailureSites       int    `db:"failure_sites"`
	Diagnostics        int    `db:"diagnostics"`
	DurationMs         int64  `db:"duration_ms"`
	CreatedAt          string `db:"created_at"`
}

// Created parses CreatedAt; zero when unset or malformed.
func (g Generation) Created() time.Time {
	t, _ := time.Parse(timeLayout, g.CreatedAt)
	return t
}

// RecordGeneration inserts g, assigning its ID and creation time when unset.
func (q *Queries) RecordGeneration(ctx context.Context, g *Generation) error {
	if g.ID == "" {
		g.ID = string(types.NewRunID())
	}
	if g.CreatedAt == "" {
		g.CreatedAt = time.Now().UTC().Format(timeLayout)
	}
	_, err := q.Exec(ctx, "record-generation",
		g.ID, g.ManifestPath, g.OutputPath, g.InputHash, g.CatalogFingerprint, g.ToolVersion,
		g.Status, g.Validators, g.FailureSites, g.Diagnostics, g.DurationMs, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record generation for %s: %w", g.ManifestPath, err)
	}
	return nil
}

// LatestGeneration returns the most recent successful run for manifest.
// Returns types.ErrNoGeneration when there is none.
func (q *Queries) LatestGeneration(ctx context.Context, manifest string) (*Generation, error) {
	var g Generation
	if err := q.Get(ctx, "latest-generation", &g, manifest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNoGeneration
		}
		return nil, fmt.Errorf("latest generation for %s: %w", manifest, err)
	}
	return &g, nil
}

// ListGenerations returns up to limit runs, newest first. An empty manifest
// lists runs for every manifest.
func (q *Queries) ListGenerations(ctx context.Context, manifest string, limit int) ([]Generation, error) {
	var (
		out []Generation
		err error
	)
	if manifest == "" {
		err = q.Select(ctx, "list-generations", &out, limit)
	} else {
		err = q.Select(ctx, "list-generations-for-manifest", &out, manifest, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return out, nil
}

// PruneGenerations deletes runs recorded before the cutoff.
func (q *Queries) PruneGenerations(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.Exec(ctx, "prune-generations", before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune generations: %w", err)
	}
	return res.RowsAffected()
}
