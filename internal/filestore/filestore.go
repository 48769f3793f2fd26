// Package filestore is the file/artifact store collaborator used by the
// backup pipeline to reserve a write target and finalize it.
package filestore

import (
	"context"
	"time"
)

// Request describes a file to reserve or store. File, when set, is a
// local path whose content is copied into the store; when empty only the
// location is reserved and the caller writes to it directly.
type Request struct {
	Path    string
	Name    string
	File    string
	Replace bool
}

// File is the stored artifact record.
type File struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Location string    `json:"location"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
}

// Store reserves and finalizes artifacts.
type Store interface {
	Store(ctx context.Context, req Request) (*File, error)
	Refresh(ctx context.Context, id string) error
}
