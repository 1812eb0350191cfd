// Package api provides the gRPC compile service.
package api

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/ensuregen/internal/core/config"
	"github.com/solatis/ensuregen/internal/core/db"
	"github.com/solatis/ensuregen/internal/generate"
	"github.com/solatis/ensuregen/internal/manifest"
	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
)

// build is swapped in tests.
var build = generate.Build

// CompilerService implements CompilerServer.
// Thin orchestration layer over manifest decoding and generate.Build;
// requests never touch the server's file system.
type CompilerService struct {
	cfg     *config.Config
	cache   *db.Queries
	log     *zap.Logger
	version string
	builtin []types.RuleDefinition
}

var _ CompilerServer = (*CompilerService)(nil)

// NewCompilerService creates service instance with dependencies.
// cache may be nil; compilations are then not recorded.
func NewCompilerService(cfg *config.Config, cache *db.Queries, logger *zap.Logger, version string) (*CompilerService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	builtin, err := manifest.BuiltinDefinitions()
	if err != nil {
		return nil, err
	}
	return &CompilerService{
		cfg:     cfg,
		cache:   cache,
		log:     logger,
		version: version,
		builtin: builtin,
	}, nil
}

// Compile compiles one manifest against the built-in rules plus any inline
// catalogs. Work is bounded by the configured request timeout.
func (s *CompilerService) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	if req.Manifest == "" {
		return nil, invalidArgument("manifest is required")
	}
	size := len(req.Manifest)
	for _, c := range req.Catalogs {
		size += len(c.Content)
	}
	if size > s.cfg.Server.MaxManifestBytes {
		return nil, invalidArgument("request carries %d bytes of manifest and catalogs, maximum is %d", size, s.cfg.Server.MaxManifestBytes)
	}
	format, err := manifest.ParseFormat(req.Format)
	if err != nil {
		return nil, invalidArgument("%v", err)
	}
	mode := s.cfg.Generate.OnFailure()
	if req.OnFailure != "" {
		if mode, err = types.ParseOnFailure(req.OnFailure); err != nil || mode == types.OnFailureInherit {
			return nil, invalidArgument("on_failure must be continue or halt, got %q", req.OnFailure)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Server.RequestTimeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	type result struct {
		resp *CompileResponse
		err  error
	}
	start := time.Now()
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				s.log.Error("compile panicked",
					zap.Any("panic", p),
					zap.String("file", req.File),
					zap.Stack("stack"))
				done <- result{nil, status.Errorf(codes.Internal, "compile %s: internal error", req.File)}
			}
		}()
		resp, err := s.compile(req, format, mode)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			s.record(ctx, req, r.resp, time.Since(start))
		}
		return r.resp, r.err
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}
}

func (s *CompilerService) compile(req *CompileRequest, format manifest.Format, mode types.OnFailure) (*CompileResponse, error) {
	file := req.File
	if file == "" {
		file = "manifest." + format.String()
	}

	defs := append([]types.RuleDefinition(nil), s.builtin...)
	var diags []types.Diagnostic
	for _, c := range req.Catalogs {
		cformat, err := manifest.ParseFormat(c.Format)
		if err != nil {
			return nil, invalidArgument("catalog %s: %v", c.Name, err)
		}
		cdefs, cdiags, err := manifest.ParseCatalog([]byte(c.Content), c.Name, cformat)
		if err != nil {
			return nil, invalidArgument("%v", err)
		}
		defs = append(defs, cdefs...)
		diags = append(diags, cdiags...)
	}
	catalog, admission := rules.NewCatalog(defs)
	diags = append(diags, admission...)

	resp := &CompileResponse{CatalogFingerprint: catalog.Fingerprint()}
	resp.InputHash = s.inputHash(req, file, format, mode, resp.CatalogFingerprint)
	if req.IfNoneMatch != "" && req.IfNoneMatch == resp.InputHash {
		resp.NotModified = true
		return resp, nil
	}
	if types.HasErrors(diags) {
		resp.Diagnostics = toWire(diags)
		return resp, nil
	}

	m, mdiags, err := manifest.Parse([]byte(req.Manifest), file, format)
	if err != nil {
		return nil, invalidArgument("%v", err)
	}
	diags = append(diags, mdiags...)
	if types.HasErrors(diags) {
		resp.Diagnostics = toWire(diags)
		return resp, nil
	}

	out, err := build(m, catalog, generate.BuildOptions{
		OnFailure:  mode,
		FixImports: req.FixImports,
		Filename:   generate.OutputPath(file, m, s.cfg.Generate.OutputSuffix),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	resp.Diagnostics = toWire(append(diags, out.Diagnostics...))
	if out.Unit != nil {
		resp.Validators = len(out.Unit.Validators)
		resp.FailureSites = generate.FailureSites(out.Unit)
	}
	resp.Source = string(out.Source)
	return resp, nil
}

// inputHash identifies everything the response depends on.
func (s *CompilerService) inputHash(req *CompileRequest, file string, format manifest.Format, mode types.OnFailure, fingerprint string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s\n%s\n%t\n%s\n", s.version, fingerprint, format, mode, req.FixImports, file)
	h.Write([]byte(req.Manifest))
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (s *CompilerService) record(ctx context.Context, req *CompileRequest, resp *CompileResponse, elapsed time.Duration) {
	if s.cache == nil || resp.NotModified {
		return
	}
	gen := &db.Generation{
		ManifestPath:       "rpc:" + req.File,
		InputHash:          resp.InputHash,
		CatalogFingerprint: resp.CatalogFingerprint,
		ToolVersion:        s.version,
		Status:             db.StatusOK,
		Validators:         resp.Validators,
		FailureSites:       resp.FailureSites,
		Diagnostics:        len(resp.Diagnostics),
		DurationMs:         elapsed.Milliseconds(),
	}
	if resp.Failed() {
		gen.Status = db.StatusFailed
	}
	if err := s.cache.RecordGeneration(ctx, gen); err != nil {
		s.log.Warn("record generation", zap.Error(err), zap.String("file", req.File))
	}
}
