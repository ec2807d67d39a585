package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yeisme/picvault/pkg/configs"
	"github.com/yeisme/picvault/pkg/internal/model"
)

// localEngine 本地文件系统存储引擎.
type localEngine struct {
	name string
	cfg  model.EngineConfig
	// root 实际写入根目录：upload.dir 与配置中 base_path 的拼接
	root string
}

// newLocalEngine 构造本地引擎，根目录不存在时创建.
func newLocalEngine(name string, cfg model.EngineConfig) (Engine, error) {
	root := filepath.Join(configs.GetConfig().Upload.Dir, filepath.Clean("/"+cfg.BasePath))

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, newConfigError(model.EngineTypeLocal, "create root dir %s: %v", root, err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = configs.GetConfig().Upload.LocalBaseURL
	}

	return &localEngine{name: name, cfg: cfg, root: root}, nil
}

// fullPath 将对象键映射到根目录下的文件路径，拒绝越出根目录的键.
func (e *localEngine) fullPath(key string) (string, error) {
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid storage key %q", key)
		}
	}

	return filepath.Join(e.root, filepath.Clean("/"+key)), nil
}

func (e *localEngine) Upload(ctx context.Context, key string, data []byte) (string, error) {
	path, err := e.fullPath(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", key, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}

	return e.URL(key), nil
}

func (e *localEngine) Download(ctx context.Context, key string) ([]byte, error) {
	path, err := e.fullPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return data, nil
}

func (e *localEngine) Delete(ctx context.Context, key string) error {
	path, err := e.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}

	return nil
}

func (e *localEngine) Exists(ctx context.Context, key string) (bool, error) {
	path, err := e.fullPath(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (e *localEngine) URL(key string) string {
	return ResolveURL(model.EngineTypeLocal, &e.cfg, key)
}

// Test 通过写入并删除探针文件检查根目录可写.
func (e *localEngine) Test(ctx context.Context) TestResult {
	return measure(func() error {
		probe := filepath.Join(e.root, ".picvault_probe")
		if err := os.WriteFile(probe, []byte("probe"), 0o644); err != nil {
			return err
		}

		return os.Remove(probe)
	})
}

// Usage 遍历根目录统计用量.
func (e *localEngine) Usage(ctx context.Context) (Usage, error) {
	var usage Usage

	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		usage.UsedBytes += info.Size()
		usage.FileCount++

		return nil
	})
	if err != nil {
		return Usage{}, fmt.Errorf("walk %s: %w", e.root, err)
	}

	usage.Available = true

	return usage, nil
}

func (e *localEngine) Type() model.EngineType {
	return model.EngineTypeLocal
}

func (e *localEngine) Name() string {
	return e.name
}
