package models

type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolStruct    SymbolKind = "struct"
	SymbolClass     SymbolKind = "class"
	SymbolMethod    SymbolKind = "method"
	SymbolInterface SymbolKind = "interface"
	SymbolEnum      SymbolKind = "enum"
	SymbolType      SymbolKind = "type"
)

// StringToSymbolKind maps a stored kind back to a SymbolKind.
// Unknown kinds are kept verbatim so newer grammars stay readable.
func StringToSymbolKind(s string) SymbolKind {
	return SymbolKind(s)
}

// Symbol is one named definition extracted from a source file.
type Symbol struct {
	Name        string
	Kind        SymbolKind
	Text        string
	Language    string
	SourcePath  string
	DisplayName string
	StartLine   int
	EndLine     int
	StartByte   int
	EndByte     int
}

// Metadata holds scalar document attributes: string, int64, float64 or bool.
type Metadata map[string]any

// Document is a stored record. The embedding stays inside the store.
type Document struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Hit is a document returned by a similarity query.
type Hit struct {
	Document
	Distance float64 `json:"distance"`
}

// Metadata keys written by symbol ingestion.
const (
	MetaFilename   = "filename"
	MetaFilepath   = "filepath"
	MetaStartLine  = "startLine"
	MetaEndLine    = "endLine"
	MetaSymbolName = "symbolName"
	MetaSymbolKind = "symbolKind"
	MetaProject    = "project"
	MetaVersion    = "version"
)

// SymbolInfo is the typed view of a symbol document's metadata.
type SymbolInfo struct {
	Name      string     `json:"symbolName"`
	Kind      SymbolKind `json:"symbolKind"`
	Filename  string     `json:"filename"`
	Filepath  string     `json:"filepath"`
	StartLine int        `json:"startLine"`
	EndLine   int        `json:"endLine"`
	Project   string     `json:"project"`
	Version   string     `json:"version"`
}

// Metadata renders the info as document metadata.
func (s SymbolInfo) Metadata() Metadata {
	return Metadata{
		MetaFilename:   s.Filename,
		MetaFilepath:   s.Filepath,
		MetaStartLine:  int64(s.StartLine),
		MetaEndLine:    int64(s.EndLine),
		MetaSymbolName: s.Name,
		MetaSymbolKind: string(s.Kind),
		MetaProject:    s.Project,
		MetaVersion:    s.Version,
	}
}

// SymbolInfoFromMetadata reads symbol metadata back. ok is false when the
// document was not written by symbol ingestion.
func SymbolInfoFromMetadata(m Metadata) (SymbolInfo, bool) {
	name, ok := m[MetaSymbolName].(string)
	if !ok {
		return SymbolInfo{}, false
	}
	info := SymbolInfo{Name: name}
	if kind, ok := m[MetaSymbolKind].(string); ok {
		info.Kind = StringToSymbolKind(kind)
	}
	info.Filename, _ = m[MetaFilename].(string)
	info.Filepath, _ = m[MetaFilepath].(string)
	info.Project, _ = m[MetaProject].(string)
	info.Version, _ = m[MetaVersion].(string)
	info.StartLine = intValue(m[MetaStartLine])
	info.EndLine = intValue(m[MetaEndLine])
	return info, true
}

func intValue(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
