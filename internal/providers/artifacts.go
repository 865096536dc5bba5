package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Public prefixes for artifacts served by the HTTP layer.
const (
	ReportsDir     = "reports"
	ScreenshotsDir = "screenshots"
)

// ArtifactStore persists generated files (PDF reports, screenshots) and
// returns the public path they are served under.
type ArtifactStore interface {
	Put(ctx context.Context, objectPath string, data []byte) (string, error)
	// Dir returns the local directory backing a public prefix.
	Dir(prefix string) string
}

type localArtifactStore struct {
	rootDir string
}

// NewLocalArtifactStore writes under rootDir and creates the reports and
// screenshots directories up front so static routes can mount them.
func NewLocalArtifactStore(rootDir string) (ArtifactStore, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, errors.New("artifacts: root dir is required")
	}
	for _, d := range []string{ReportsDir, ScreenshotsDir} {
		if err := os.MkdirAll(filepath.Join(rootDir, d), 0o755); err != nil {
			return nil, fmt.Errorf("artifacts: %w", err)
		}
	}
	return &localArtifactStore{rootDir: rootDir}, nil
}

func (s *localArtifactStore) Dir(prefix string) string {
	return filepath.Join(s.rootDir, prefix)
}

// Put writes to a temp file in the destination directory and renames it into
// place, so readers never observe a partial file.
func (s *localArtifactStore) Put(ctx context.Context, objectPath string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + objectPath)
	if clean == "/" || strings.HasSuffix(objectPath, "/") {
		return "", fmt.Errorf("artifacts: invalid object path %q", objectPath)
	}
	dst := filepath.Join(s.rootDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return clean, nil
}
