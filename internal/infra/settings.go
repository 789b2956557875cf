package infra

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	configDirName  = ".signal-gateway"
	configFileName = "config.yaml"
)

// FileConfigRepository reads the YAML configuration from disk.
type FileConfigRepository struct {
	configPath string // Specific path (empty means search for file)
}

// InMemoryConfigRepository serves configuration bytes held in memory.
type InMemoryConfigRepository struct {
	data []byte
}

// NewFileConfigRepository creates a file-based config repository
func NewFileConfigRepository(configPath string) *FileConfigRepository {
	return &FileConfigRepository{configPath: configPath}
}

// NewInMemoryConfigRepository creates an in-memory config repository
func NewInMemoryConfigRepository(data []byte) *InMemoryConfigRepository {
	return &InMemoryConfigRepository{data: data}
}

// DefaultConfigPath is $HOME/.signal-gateway/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, configDirName, configFileName)
}

func (fr *FileConfigRepository) Load() ([]byte, error) {
	configPath := fr.configPath
	if configPath == "" {
		foundPath, err := fr.FindConfigFile()
		if err != nil {
			return nil, err
		}
		if foundPath == "" {
			return nil, errors.Errorf("no config file found (looked in ./%s and %s)",
				filepath.Join(configDirName, configFileName), DefaultConfigPath())
		}
		configPath = foundPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	return data, nil
}

// FindConfigFile checks ./.signal-gateway/config.yaml, then the home directory.
func (fr *FileConfigRepository) FindConfigFile() (string, error) {
	if fr.configPath != "" {
		return fr.configPath, nil
	}

	currentDirPath := filepath.Join(configDirName, configFileName)
	if _, err := os.Stat(currentDirPath); err == nil {
		return currentDirPath, nil
	}

	homePath := DefaultConfigPath()
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	// No config file found
	return "", nil
}

func (mr *InMemoryConfigRepository) Load() ([]byte, error) {
	if mr.data == nil {
		return nil, errors.New("no data stored in memory repository")
	}
	return mr.data, nil
}

func (mr *InMemoryConfigRepository) FindConfigFile() (string, error) {
	return "", nil
}
