package models

import "time"

// Project is an isolated namespace owning one task collection.
type Project struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Active      bool      `yaml:"active" json:"active"`
	CreatedAt   time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updatedAt"`
}

// ProjectContext locates the storage of a single project. It is passed
// explicitly to every task-level service instead of living in global state.
type ProjectContext struct {
	Name      string
	Dir       string
	TaskFile  string
	MemoryDir string
	LockFile  string
}
