package repository

// ConfigRepository abstracts where the gateway configuration comes from.
type ConfigRepository interface {
	Load() ([]byte, error)
	// FindConfigFile returns the first existing config file, or "" if none.
	FindConfigFile() (string, error)
}
