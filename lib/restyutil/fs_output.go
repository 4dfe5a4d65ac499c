package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FilesystemOutput writes every message dump into its own file within a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput creates dir if needed and a fresh subdirectory inside it
// named after now, so the dumps of earlier runs and anything else in dir are
// left alone.
func NewFilesystemOutput(dir string, now time.Time) (FilesystemOutput, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	run, err := os.MkdirTemp(dir, now.Format("20060102-150405")+"-")
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: run}, nil
}

// Directory is the per run directory dumps are written to.
func (o FilesystemOutput) Directory() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
