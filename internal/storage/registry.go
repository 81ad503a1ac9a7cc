package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/taskgraph/pkg/models"
	"gopkg.in/yaml.v3"
)

// RegistryFile represents the top-level structure of projects.yaml.
type RegistryFile struct {
	DefaultProject string                    `yaml:"default_project"`
	Projects       map[string]models.Project `yaml:"projects"`
}

// RegistryStore persists the project registry document.
type RegistryStore interface {
	Load() (*RegistryFile, error)
	Save(reg *RegistryFile) error
}

type fileRegistryStore struct {
	basePath string
}

// NewRegistryStore creates a RegistryStore backed by projects.yaml in basePath.
func NewRegistryStore(basePath string) RegistryStore {
	return &fileRegistryStore{basePath: basePath}
}

func (s *fileRegistryStore) filePath() string {
	return filepath.Join(s.basePath, "projects.yaml")
}

// Load returns the registry, or an empty one if the file does not exist yet.
func (s *fileRegistryStore) Load() (*RegistryFile, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return &RegistryFile{Projects: make(map[string]models.Project)}, nil
		}
		return nil, fmt.Errorf("loading project registry: %w", err)
	}

	var rf RegistryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("loading project registry: parsing YAML: %w", err)
	}
	if rf.Projects == nil {
		rf.Projects = make(map[string]models.Project)
	}
	return &rf, nil
}

func (s *fileRegistryStore) Save(reg *RegistryFile) error {
	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("saving project registry: marshaling YAML: %w", err)
	}
	if err := writeFileAtomic(s.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving project registry: %w", err)
	}
	return nil
}
