package recognition

import (
	"fmt"
	"os"
	"path/filepath"
)

// workspace 是单个请求独占的临时目录，保存转码前后的音频文件
type workspace struct {
	dir string
}

func createWorkspace(parent string) (*workspace, error) {
	dir, err := os.MkdirTemp(parent, "trackid-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) input(ext string) string { return filepath.Join(w.dir, "input"+ext) }
func (w *workspace) transcoded() string      { return filepath.Join(w.dir, "clip.mp3") }

// cleanup 删除整个目录及其中的所有文件
func (w *workspace) cleanup() error {
	return os.RemoveAll(w.dir)
}
