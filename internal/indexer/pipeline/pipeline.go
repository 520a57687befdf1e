package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/0x5457/dill/internal/constants"
	"github.com/0x5457/dill/internal/embeddings"
	"github.com/0x5457/dill/internal/indexer"
	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/parser"
	"github.com/0x5457/dill/internal/storage"
	"github.com/0x5457/dill/internal/telemetry"
	ignore "github.com/sabhiram/go-gitignore"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"vendor":       true,
}

type Options struct {
	// Workers bounds how many files IngestPaths processes at once.
	Workers int
}

// Pipeline extracts symbols, embeds each one and stores it.
type Pipeline struct {
	ex    parser.Extractor
	emb   embeddings.Embedder
	store storage.DocumentStore
	log   *zap.Logger
	opt   Options
}

func New(
	ex parser.Extractor,
	emb embeddings.Embedder,
	store storage.DocumentStore,
	log *zap.Logger,
	opt Options,
) *Pipeline {
	if opt.Workers <= 0 {
		opt.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{ex: ex, emb: emb, store: store, log: log, opt: opt}
}

// IngestFile stores every uniquely named symbol of one file. A failure stops
// the file but keeps what was already stored; the returned Result lists it.
func (p *Pipeline) IngestFile(ctx context.Context, req indexer.FileRequest) (res indexer.Result, err error) {
	project := orDefault(req.Project, constants.DefaultProject)
	version := orDefault(req.Version, constants.DefaultVersion)
	displayName := orDefault(req.DisplayName, filepath.Base(req.Path))

	ctx, span := telemetry.Start(ctx, "ingest.file",
		attribute.String("dill.path", req.Path),
		attribute.String("dill.project", project),
		attribute.String("dill.version", version),
	)
	defer func() {
		span.SetAttributes(attribute.Int("dill.inserted", len(res.IDs)))
		telemetry.End(span, err)
	}()

	res.Duplicates = make(map[string]int)
	symbols, err := p.ex.ExtractSymbols(req.Content, req.Path, displayName)
	if err != nil {
		return res, fmt.Errorf("extract %s: %w", req.Path, err)
	}

	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		if seen[sym.Name] {
			res.Duplicates[sym.Name]++
			continue
		}
		seen[sym.Name] = true

		vec, err := p.emb.Embed(ctx, sym.Text)
		if err != nil {
			return res, fmt.Errorf("embed %s in %s: %w", sym.Name, req.Path, err)
		}
		info := models.SymbolInfo{
			Name:      sym.Name,
			Kind:      sym.Kind,
			Filename:  displayName,
			Filepath:  req.Path,
			StartLine: sym.StartLine,
			EndLine:   sym.EndLine,
			Project:   project,
			Version:   version,
		}
		id, err := p.store.Add(ctx, sym.Text, vec, info.Metadata())
		if err != nil {
			return res, fmt.Errorf("store %s from %s: %w", sym.Name, req.Path, err)
		}
		res.IDs = append(res.IDs, id)
		p.log.Debug("stored symbol",
			zap.String("name", sym.Name),
			zap.String("kind", string(sym.Kind)),
			zap.String("id", id),
		)
	}

	p.log.Info("ingested file",
		zap.String("path", req.Path),
		zap.Int("symbols", len(res.IDs)),
		zap.Int("duplicates", len(res.Duplicates)),
	)
	return res, nil
}

// IngestPaths ingests files and directory trees concurrently. Results follow
// the order files were found; files not reached after a failure have an
// empty Result.
func (p *Pipeline) IngestPaths(
	ctx context.Context,
	paths []string,
	project, version string,
) ([]indexer.FileResult, error) {
	files, err := p.collect(paths)
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.Start(ctx, "ingest.paths", attribute.Int("dill.files", len(files)))

	results := make([]indexer.FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opt.Workers)
	for i, file := range files {
		results[i].Path = file
		g.Go(func() error {
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			res, err := p.IngestFile(gctx, indexer.FileRequest{
				Content: content,
				Path:    file,
				Project: project,
				Version: version,
			})
			results[i].Result = res
			return err
		})
	}
	err = g.Wait()
	telemetry.End(span, err)
	return results, err
}

// IngestText stores arbitrary text with caller metadata, outside symbol
// extraction.
func (p *Pipeline) IngestText(ctx context.Context, text string, metadata models.Metadata) (id string, err error) {
	ctx, span := telemetry.Start(ctx, "ingest.text")
	defer func() { telemetry.End(span, err) }()

	vec, err := p.emb.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed text: %w", err)
	}
	id, err = p.store.Add(ctx, text, vec, metadata)
	if err != nil {
		return "", fmt.Errorf("store text: %w", err)
	}
	return id, nil
}

// collect expands paths into the supported files to ingest.
func (p *Pipeline) collect(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if p.ex.Supports(root) {
				files = append(files, root)
			} else {
				p.log.Warn("skipping unsupported file", zap.String("path", root))
			}
			continue
		}
		found, err := p.walk(root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func (p *Pipeline) walk(root string) ([]string, error) {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read .gitignore in %s: %w", root, err)
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if skipDirs[d.Name()] || (gi != nil && gi.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if d.Type().IsRegular() && p.ex.Supports(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var _ indexer.Ingester = (*Pipeline)(nil)
