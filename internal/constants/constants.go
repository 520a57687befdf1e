package constants

const (
	AppName = "dill"

	DefaultEmbedURL   = "http://localhost:8000/embed"
	DefaultDBPath     = "dill.db"
	DefaultCollection = "documents"

	// Ingestion and lookup fall back to these when no project or version is given.
	DefaultProject = "default"
	DefaultVersion = "0.0.0"

	DefaultMatchLimit = 5
	SnippetRunes      = 200

	DefaultQdrantPort = 6334
	DefaultLocalDim   = 384
)
