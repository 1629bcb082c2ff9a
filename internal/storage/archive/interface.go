// Package archive persists run artifacts such as trade tables to a local
// directory or an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/newthinker/crossover/internal/core"
)

// Storage stores artifacts under slash-separated keys
type Storage interface {
	// Put stores the content of r at key, replacing any previous object
	Put(ctx context.Context, key string, r io.Reader) error

	// Exists checks if an object is stored at key
	Exists(ctx context.Context, key string) (bool, error)

	// Location describes where key is stored, for logs
	Location(key string) string
}

// Config selects and configures a backend
type Config struct {
	Type string // localfs or s3
	Path string // base directory for localfs
	S3   S3Config
}

// New builds the backend named by cfg.Type.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", cfg.Type))
	}
}

// cleanKey normalizes key and rejects keys escaping the storage root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.Contains(key, "..") {
		return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("invalid key %q", key))
	}
	return k, nil
}
