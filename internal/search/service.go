// Package search answers exact and semantic symbol queries over the
// document store.
package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/0x5457/dill/internal/constants"
	"github.com/0x5457/dill/internal/embeddings"
	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/storage"
	"github.com/0x5457/dill/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// MatchAll as query text returns every stored document unranked.
const MatchAll = "*"

// Result is one document returned by a query.
type Result struct {
	ID         string             `json:"id"`
	Text       string             `json:"text"`
	Snippet    string             `json:"snippet"`
	Distance   float64            `json:"distance"`
	Similarity float64            `json:"similarity"`
	Metadata   models.Metadata    `json:"metadata"`
	Symbol     *models.SymbolInfo `json:"symbol,omitempty"`
}

// MatchRequest is a semantic query. Empty Project or Version do not filter.
type MatchRequest struct {
	Text    string
	Project string
	Version string
	Limit   int
}

// Service runs queries. Exact lookups never touch the Embedder.
type Service struct {
	Embedder embeddings.Embedder
	Store    storage.DocumentStore
}

// Match ranks documents by similarity to the request text.
func (s *Service) Match(ctx context.Context, req MatchRequest) (results []Result, err error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, nil
	}
	ctx, span := telemetry.Start(ctx, "search.match",
		attribute.String("dill.project", req.Project),
		attribute.String("dill.version", req.Version),
	)
	defer func() {
		span.SetAttributes(attribute.Int("dill.results", len(results)))
		telemetry.End(span, err)
	}()

	if strings.TrimSpace(req.Text) == MatchAll {
		docs, err := s.Store.GetByPredicate(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		results = make([]Result, len(docs))
		for i, d := range docs {
			results[i] = newResult(d, 0)
		}
		return results, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = constants.DefaultMatchLimit
	}
	vec, err := s.Embedder.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.Store.QuerySimilar(ctx, vec, limit, filters(req.Project, req.Version))
	if err != nil {
		return nil, fmt.Errorf("query similar: %w", err)
	}
	results = make([]Result, len(hits))
	for i, h := range hits {
		results[i] = newResult(h.Document, h.Distance)
	}
	return results, nil
}

// MatchFile matches the content of the file at path.
func (s *Service) MatchFile(ctx context.Context, path string, req MatchRequest) ([]Result, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	req.Text = string(content)
	return s.Match(ctx, req)
}

// FindSymbol returns every symbol stored under name in one project version.
// Empty project or version fall back to the ingestion defaults.
func (s *Service) FindSymbol(ctx context.Context, name, project, version string) (results []Result, err error) {
	if project == "" {
		project = constants.DefaultProject
	}
	if version == "" {
		version = constants.DefaultVersion
	}
	ctx, span := telemetry.Start(ctx, "search.find_symbol", attribute.String("dill.symbol", name))
	defer func() { telemetry.End(span, err) }()

	pred := storage.Where(models.MetaSymbolName, name).
		And(models.MetaProject, project).
		And(models.MetaVersion, version)
	docs, err := s.Store.GetByPredicate(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("find symbol %s: %w", name, err)
	}
	return exact(docs), nil
}

// ListSymbols returns stored documents, filtered by whichever of project and
// version are set.
func (s *Service) ListSymbols(ctx context.Context, project, version string) (results []Result, err error) {
	ctx, span := telemetry.Start(ctx, "search.list_symbols")
	defer func() { telemetry.End(span, err) }()

	docs, err := s.Store.GetByPredicate(ctx, filters(project, version))
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return exact(docs), nil
}

func filters(project, version string) storage.Predicate {
	var pred storage.Predicate
	if project != "" {
		pred = pred.And(models.MetaProject, project)
	}
	if version != "" {
		pred = pred.And(models.MetaVersion, version)
	}
	return pred
}

func exact(docs []models.Document) []Result {
	results := make([]Result, len(docs))
	for i, d := range docs {
		results[i] = newResult(d, 0)
	}
	return results
}

func newResult(doc models.Document, distance float64) Result {
	r := Result{
		ID:         doc.ID,
		Text:       doc.Text,
		Snippet:    Snippet(doc.Text),
		Distance:   distance,
		Similarity: Similarity(distance),
		Metadata:   doc.Metadata,
	}
	if info, ok := models.SymbolInfoFromMetadata(doc.Metadata); ok {
		r.Symbol = &info
	}
	return r
}

// Similarity maps a distance to (0, 1], 1 meaning identical.
func Similarity(distance float64) float64 {
	return 1 / (1 + distance)
}

// Snippet returns the first runes of text, marked when cut.
func Snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= constants.SnippetRunes {
		return text
	}
	return string(runes[:constants.SnippetRunes]) + "..."
}
