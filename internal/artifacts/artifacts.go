// Package artifacts pulls the solver's result files into a timestamped
// local directory at the end of a mission.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Transferer is the slice of the remote session the retriever needs.
type Transferer interface {
	Download(remotePath string) ([]byte, error)
	DownloadTree(remoteDir, localDir string) error
}

// DirName returns the results directory name for a mission that ended at t,
// e.g. "hunt_results_20260830_153000".
func DirName(t time.Time) string {
	return "hunt_results_" + t.Format("20060102_150405")
}

// Retriever copies mission artifacts from the host's remote dir.
type Retriever struct {
	Session   Transferer
	RemoteDir string
	// BaseDir is the local parent of the results directory. Empty means
	// the current directory.
	BaseDir string
}

// Pull retrieves items (remote paths relative to RemoteDir; a trailing "/"
// marks a directory) into a fresh timestamped directory and returns its
// path. Retrieval is best-effort: a failing item does not stop the rest,
// and the joined errors are returned alongside the directory that was
// created.
func (r *Retriever) Pull(items []string) (string, error) {
	dest := filepath.Join(r.BaseDir, DirName(time.Now()))
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}

	var errs []error
	for _, item := range items {
		name := strings.TrimSuffix(item, "/")
		remotePath := path.Join(r.RemoteDir, name)

		if strings.HasSuffix(item, "/") {
			local := filepath.Join(dest, filepath.FromSlash(name))
			if err := r.Session.DownloadTree(remotePath, local); err != nil {
				errs = append(errs, fmt.Errorf("retrieve %q: %w", item, err))
			}
			continue
		}

		data, err := r.Session.Download(remotePath)
		if err != nil {
			errs = append(errs, fmt.Errorf("retrieve %q: %w", item, err))
			continue
		}
		local := filepath.Join(dest, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
			errs = append(errs, fmt.Errorf("retrieve %q: %w", item, err))
			continue
		}
		if err := os.WriteFile(local, data, 0644); err != nil {
			errs = append(errs, fmt.Errorf("retrieve %q: %w", item, err))
		}
	}
	return dest, errors.Join(errs...)
}
