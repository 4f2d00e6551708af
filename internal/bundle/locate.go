package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kweaver-ai/ai-store/internal/domain"
)

// KeyFileName 是安装包标识文件名，必须与 manifest 位于同一目录。
const KeyFileName = "application.key"

// manifestCandidates 按优先级排列。
var manifestCandidates = []string{"manifest.yaml", "manifest.yml"}

// FindManifest 从 root 开始广度优先查找 manifest，返回最浅的一个。
// 同一层的子目录按字典序入队，结果对相同输入稳定；无法读取的子目录记录日志后跳过。
func FindManifest(root string) (string, error) {
	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			if dir == root {
				return "", fmt.Errorf("read package root: %w", err)
			}
			slog.Warn("skipping unreadable directory", "dir", dir, "error", err)
			continue
		}

		files := make(map[string]bool, len(entries))
		var subdirs []string
		for _, e := range entries {
			if e.IsDir() {
				subdirs = append(subdirs, e.Name())
				continue
			}
			if e.Type().IsRegular() {
				files[e.Name()] = true
			}
		}
		for _, name := range manifestCandidates {
			if files[name] {
				return filepath.Join(dir, name), nil
			}
		}
		sort.Strings(subdirs)
		for _, name := range subdirs {
			queue = append(queue, filepath.Join(dir, name))
		}
	}
	return "", domain.ErrManifestNotFound
}

// ReadPackageKey 读取 dir 下的 application.key 并去掉首尾空白。
func ReadPackageKey(dir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, KeyFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrPackageKeyMissing
		}
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrPackageFormat, KeyFileName, err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("%w: %s is empty", domain.ErrPackageKeyMissing, KeyFileName)
	}
	return key, nil
}

// Package 是定位到的安装包根目录。
type Package struct {
	Dir          string
	ManifestPath string
	Key          string
}

// Locate 查找 manifest 并读取同级的 application.key。
func Locate(root string) (*Package, error) {
	manifestPath, err := FindManifest(root)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(manifestPath)
	key, err := ReadPackageKey(dir)
	if err != nil {
		return nil, err
	}
	return &Package{Dir: dir, ManifestPath: manifestPath, Key: key}, nil
}

// LoadManifest 读取并校验 manifest。
func (p *Package) LoadManifest() (*domain.Manifest, error) {
	raw, err := os.ReadFile(p.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %v", domain.ErrPackageFormat, err)
	}
	return domain.ParseManifest(raw, p.Key)
}

// Path 把 manifest 中的相对路径解析为包内绝对路径。
func (p *Package) Path(rel string) string {
	return filepath.Join(p.Dir, filepath.FromSlash(rel))
}
