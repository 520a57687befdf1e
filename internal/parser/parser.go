package parser

import "github.com/0x5457/dill/internal/models"

// Extractor turns source files into symbol definitions.
// Unsupported files yield no symbols and no error.
type Extractor interface {
	ExtractSymbols(content []byte, path, displayName string) ([]models.Symbol, error)
	ExtractFile(path, displayName string) ([]models.Symbol, error)
	Supports(path string) bool
}
