package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalSink writes workbooks under a root directory. It is the
// fallback when no external sink is configured or the external sink
// fails.
type LocalSink struct {
	root string
}

func NewLocalSink(root string) *LocalSink {
	return &LocalSink{root: root}
}

func (s *LocalSink) Name() string { return "local" }

func (s *LocalSink) EnsureFolder(_ context.Context, path []string) (string, error) {
	dir := filepath.Join(append([]string{s.root}, path...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export folder %s: %w", dir, err)
	}
	return dir, nil
}

func (s *LocalSink) Upload(_ context.Context, parent, name string, data []byte) (string, error) {
	target := filepath.Join(parent, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file %s: %w", target, err)
	}
	return target, nil
}
