package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Local stores artifacts on the local filesystem. The physical location
// of a file is derived from its id, with the uuid segments forming the
// directory tree under the base path.
type Local struct {
	base   string
	logger *zap.Logger

	mu    sync.Mutex
	files map[string]*File
}

func NewLocal(base string, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{
		base:   base,
		logger: logger,
		files:  make(map[string]*File),
	}
}

func (s *Local) location(id string) string {
	return filepath.Join(s.base, filepath.Join(strings.Split(id, "-")...))
}

// Store reserves a location for the request and, when a source file is
// given, copies it into place.
func (s *Local) Store(_ context.Context, req Request) (*File, error) {
	id := uuid.New().String()
	location := s.location(id)
	if err := os.MkdirAll(filepath.Dir(location), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	file := &File{
		ID:       id,
		Path:     req.Path,
		Name:     req.Name,
		Location: location,
		Created:  time.Now(),
	}

	if req.File != "" {
		size, err := copyFile(req.File, location, req.Replace)
		if err != nil {
			return nil, err
		}
		file.Size = size
	}

	s.mu.Lock()
	s.files[id] = file
	s.mu.Unlock()

	s.logger.Debug("stored file", zap.String("id", id), zap.String("location", location))
	return file, nil
}

// Refresh re-reads the physical file and updates the record's size, used
// after a caller finished writing to a reserved location.
func (s *Local) Refresh(_ context.Context, id string) error {
	s.mu.Lock()
	file, ok := s.files[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown file id %s", id)
	}

	info, err := os.Stat(file.Location)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", id, err)
	}
	s.mu.Lock()
	file.Size = info.Size()
	s.mu.Unlock()
	return nil
}

func copyFile(src, dst string, replace bool) (int64, error) {
	if !replace {
		if _, err := os.Stat(dst); err == nil {
			return 0, fmt.Errorf("file %s already exists", dst)
		}
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create target: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return 0, fmt.Errorf("copy file: %w", err)
	}
	return n, nil
}
