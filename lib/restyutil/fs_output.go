package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"

	devenv "ecourts-backend/dev/env"
)

// FilesystemOutput writes every message into its own file under a directory.
// writes are best-effort, a failure is logged and otherwise ignored.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

// NewFilesystemOutputOrTemp is NewFilesystemOutput falling back to a
// directory of the same name under os.TempDir() when dir cannot be used, for
// example a <dev_state> path outside of a checkout.
func NewFilesystemOutputOrTemp(dir string) (FilesystemOutput, error) {
	out, err := NewFilesystemOutput(dir)
	if err == nil {
		return out, nil
	}
	fallback := filepath.Join(os.TempDir(), filepath.Base(dir))
	slog.Warn("falling back to a temporary output directory", "dir", dir, "fallback", fallback, "err", err)
	return NewFilesystemOutput(fallback)
}

func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, filepath.Base(id)), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "dir", o.directory, "err", err)
	}
}

// DiscardOutput drops everything written to it.
type DiscardOutput struct{}

func (DiscardOutput) Write(string, string) {}
