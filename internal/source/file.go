package source

import (
	"context"
	"fmt"
	"os"

	"github.com/oakwood-commons/kvwatch/internal/snapshot"
	"github.com/oakwood-commons/kvwatch/pkg/loader"
)

// File re-reads a local JSON, YAML or TOML document on every fetch.
type File struct {
	Path   string
	Format loader.Format
}

// NewFile returns a file source. An empty or auto format is chosen from the
// file extension.
func NewFile(path string, format loader.Format) *File {
	if format == "" || format == loader.FormatAuto {
		format = loader.FormatForFile(path)
	}
	return &File{Path: path, Format: format}
}

// Fetch reads and decodes the file.
func (f *File) Fetch(ctx context.Context) (snapshot.Value, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Value{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("read snapshot file: %w", err)
	}
	v, err := loader.Load(data, f.Format)
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return v, nil
}
