package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./bookclub.db"

	// DefaultMediaDir is where uploaded and generated media land with the local backend
	DefaultMediaDir = "./media"

	// DefaultSearchDir holds the bleve index
	DefaultSearchDir = "./search"
)

type MediaBackend string

const (
	MediaBackendLocal MediaBackend = "local"
	MediaBackendS3    MediaBackend = "s3"
)
