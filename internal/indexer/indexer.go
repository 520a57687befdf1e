package indexer

import (
	"context"

	"github.com/0x5457/dill/internal/models"
)

// FileRequest is one source file to ingest. Content is parsed as the
// language Path's extension names.
type FileRequest struct {
	Content     []byte
	Path        string
	Project     string
	Version     string
	DisplayName string
}

// Result reports what one ingestion wrote. Duplicates counts, per name, the
// symbols skipped because an earlier symbol in the same call had that name.
type Result struct {
	IDs        []string
	Duplicates map[string]int
}

// FileResult is the outcome for one file of a path ingestion.
type FileResult struct {
	Path string
	Result
}

type Ingester interface {
	IngestFile(ctx context.Context, req FileRequest) (Result, error)
	IngestPaths(ctx context.Context, paths []string, project, version string) ([]FileResult, error)
	IngestText(ctx context.Context, text string, metadata models.Metadata) (string, error)
}
