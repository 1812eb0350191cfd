package generate

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/ensuregen/internal/core/config"
	"github.com/solatis/ensuregen/internal/core/db"
	"github.com/solatis/ensuregen/internal/manifest"
	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
)

// Options configures a Generator.
type Options struct {
	Config  config.GenerateConfig
	Logger  *zap.Logger
	Cache   *db.Queries // nil disables the generation cache
	Version string
	// Force regenerates even when the cache says the output is current.
	Force bool
}

// Result is the outcome for one manifest.
type Result struct {
	Manifest     string
	Output       string
	Status       string // db.StatusOK, db.StatusSkipped or db.StatusFailed
	Validators   int
	FailureSites int
	Diagnostics  []types.Diagnostic
	Duration     time.Duration
	Err          error // the manifest could not be processed at all

	hash string
}

// Report collects the results of a Run.
type Report struct {
	// Catalog holds admission diagnostics of the external catalogs.
	Catalog []types.Diagnostic
	Results []Result
}

// Failed reports whether any catalog or manifest failed.
func (r *Report) Failed() bool {
	if types.HasErrors(r.Catalog) {
		return true
	}
	for _, res := range r.Results {
		if res.Status == db.StatusFailed {
			return true
		}
	}
	return false
}

// Diagnostics returns every diagnostic, catalog first, then per manifest
// in argument order.
func (r *Report) Diagnostics() []types.Diagnostic {
	out := append([]types.Diagnostic(nil), r.Catalog...)
	for _, res := range r.Results {
		out = append(out, res.Diagnostics...)
	}
	return out
}

// Generator compiles manifests into Go files.
type Generator struct {
	opts Options
	log  *zap.Logger
}

// New creates a Generator. A nil logger discards output.
func New(opts Options) *Generator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Config.Workers < 1 {
		opts.Config.Workers = 1
	}
	if opts.Config.OutputSuffix == "" {
		opts.Config.OutputSuffix = config.Default().Generate.OutputSuffix
	}
	return &Generator{opts: opts, log: log}
}

// Run generates every manifest in paths. The external catalog is loaded
// once and shared; manifests are compiled concurrently. A catalog with
// error diagnostics stops the run before any manifest is touched.
func (g *Generator) Run(ctx context.Context, paths []string) (*Report, error) {
	catalog, catalogDiags, err := manifest.LoadCatalog(g.opts.Config.Catalogs...)
	if err != nil {
		return nil, err
	}
	report := &Report{Catalog: catalogDiags}
	if types.HasErrors(catalogDiags) {
		g.log.Error("catalog rejected", zap.Int("diagnostics", len(catalogDiags)))
		return report, nil
	}
	fingerprint := catalog.Fingerprint()
	g.log.Debug("catalog loaded",
		zap.Int("rules", catalog.Len()),
		zap.String("fingerprint", fingerprint))

	report.Results = make([]Result, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Config.Workers)
	for i, path := range paths {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report.Results[i] = g.generate(ctx, path, catalog, fingerprint)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

func (g *Generator) generate(ctx context.Context, path string, catalog *rules.Catalog, fingerprint string) Result {
	start := time.Now()
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	log := g.log.With(zap.String("manifest", path))
	res := Result{Manifest: path, Status: db.StatusFailed}
	finish := func() Result {
		res.Duration = time.Since(start)
		g.record(ctx, log, &res, fingerprint)
		return res
	}

	m, diags, err := manifest.Load(path)
	if err != nil {
		res.Err = err
		log.Error("load manifest", zap.Error(err))
		return finish()
	}
	res.Diagnostics = diags
	res.Output = OutputPath(path, m, g.opts.Config.OutputSuffix)
	if types.HasErrors(diags) {
		return finish()
	}

	var pkg *manifest.Package
	if g.opts.Config.ScanSource && m.Source != "" {
		if pkg, err = manifest.ScanSource(m.Source); err != nil {
			res.Err = err
			log.Error("scan source", zap.Error(err))
			return finish()
		}
	}

	hash, err := g.inputHash(path, m, res.Output, fingerprint)
	if err != nil {
		res.Err = err
		return finish()
	}
	res.hash = hash
	if g.upToDate(ctx, log, path, res.Output, hash) {
		res.Status = db.StatusSkipped
		log.Debug("output up to date", zap.String("output", res.Output))
		return finish()
	}

	out, err := Build(m, catalog, BuildOptions{
		OnFailure:  g.opts.Config.OnFailure(),
		FixImports: g.opts.Config.FixImports,
		Filename:   res.Output,
		Package:    pkg,
	})
	res.Diagnostics = append(res.Diagnostics, out.Diagnostics...)
	if out.Unit != nil {
		res.Validators = len(out.Unit.Validators)
		res.FailureSites = FailureSites(out.Unit)
	}
	if err != nil {
		res.Err = err
		log.Error("build", zap.Error(err))
		return finish()
	}
	if out.Failed() {
		log.Warn("compilation failed", zap.Int("diagnostics", len(res.Diagnostics)))
		return finish()
	}

	if err := writeFile(res.Output, out.Source); err != nil {
		res.Err = err
		log.Error("write output", zap.Error(err))
		return finish()
	}
	res.Status = db.StatusOK
	log.Info("generated",
		zap.String("output", res.Output),
		zap.Int("validators", res.Validators),
		zap.Int("failure_sites", res.FailureSites))
	return finish()
}

// OutputPath is where the file generated from the manifest at path goes:
// the manifest's own output setting, otherwise the manifest base name plus
// suffix in the source package directory, or next to the manifest.
func OutputPath(path string, m *manifest.Manifest, suffix string) string {
	if m.Output != "" {
		return m.Output
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := filepath.Dir(path)
	if m.Source != "" {
		dir = m.Source
	}
	return filepath.Join(dir, base+suffix)
}

// inputHash covers everything the generated file depends on: the tool
// version, the catalog, the manifest and the scanned package sources.
func (g *Generator) inputHash(path string, m *manifest.Manifest, output, fingerprint string) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n", g.opts.Version, fingerprint)
	if err := hashFile(h, path); err != nil {
		return "", err
	}
	if !g.opts.Config.ScanSource || m.Source == "" {
		return fmt.Sprintf("%x", h.Sum(nil)), nil
	}

	entries, err := os.ReadDir(m.Source)
	if err != nil {
		return "", fmt.Errorf("hash sources: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		// generated files are outputs, not inputs
		if filepath.Join(m.Source, name) == output || strings.HasSuffix(name, g.opts.Config.OutputSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h, "%s\n", name)
		if err := hashFile(h, filepath.Join(m.Source, name)); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// upToDate reports whether the last successful run for the manifest saw
// the same inputs and its output is still on disk.
func (g *Generator) upToDate(ctx context.Context, log *zap.Logger, path, output, hash string) bool {
	if g.opts.Cache == nil || g.opts.Force {
		return false
	}
	last, err := g.opts.Cache.LatestGeneration(ctx, path)
	if err != nil {
		if !errors.Is(err, types.ErrNoGeneration) {
			log.Warn("generation cache lookup", zap.Error(err))
		}
		return false
	}
	if last.InputHash != hash || last.OutputPath != output {
		return false
	}
	_, err = os.Stat(output)
	return err == nil
}

func (g *Generator) record(ctx context.Context, log *zap.Logger, res *Result, fingerprint string) {
	if g.opts.Cache == nil {
		return
	}
	diags := len(res.Diagnostics)
	if res.Err != nil {
		diags++
	}
	gen := &db.Generation{
		ManifestPath:       res.Manifest,
		OutputPath:         res.Output,
		InputHash:          res.hash,
		CatalogFingerprint: fingerprint,
		ToolVersion:        g.opts.Version,
		Status:             res.Status,
		Validators:         res.Validators,
		FailureSites:       res.FailureSites,
		Diagnostics:        diags,
		DurationMs:         res.Duration.Milliseconds(),
	}
	// record even when the run was cancelled
	if err := g.opts.Cache.RecordGeneration(context.WithoutCancel(ctx), gen); err != nil {
		log.Warn("record generation", zap.Error(err))
	}
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".ensuregen-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
