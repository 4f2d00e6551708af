package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kweaver-ai/ai-store/internal/domain"
	"gopkg.in/yaml.v3"
)

// 包内约定目录。
const (
	IconsDir      = "assets/icons"
	ImagesDir     = "packages/images"
	ChartsDir     = "packages/charts"
	OntologiesDir = "ontologies"
	AgentsDir     = "agents"
)

var (
	imageSuffixes = []string{".tar", ".tar.gz", ".tgz", ".oci"}
	chartSuffixes = []string{".tgz", ".tar.gz"}
)

// DefinitionFormat 是知识网络 / 智能体定义文件的编码。
type DefinitionFormat int

const (
	FormatUnknown DefinitionFormat = iota
	FormatJSON
	FormatYAML
)

func (f DefinitionFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatFor 按文件后缀判断编码。
func FormatFor(name string) DefinitionFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// Decode 按 format 解码定义文件。
func Decode(raw []byte, format DefinitionFormat) (any, error) {
	var v any
	switch format {
	case FormatJSON:
		// 数字保持原文，转发时不丢失大整数精度
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", domain.ErrPackageFormat, err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: decode json: trailing data", domain.ErrPackageFormat)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", domain.ErrPackageFormat, err)
		}
		v = domain.NormalizeKeys(v)
	default:
		return nil, fmt.Errorf("%w: unsupported definition format", domain.ErrPackageFormat)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: empty definition", domain.ErrPackageFormat)
	}
	return v, nil
}

// DefinitionFile 是一个待导入的定义文件。
type DefinitionFile struct {
	Name   string
	Path   string
	Format DefinitionFormat
}

// Load 读取并解码文件内容。
func (d DefinitionFile) Load() (any, error) {
	raw, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.Name, err)
	}
	return Decode(raw, d.Format)
}

// Definitions 列出包内 sub 目录下可识别的定义文件，按文件名排序。
// 目录不存在时返回空列表。
func (p *Package) Definitions(sub string) ([]DefinitionFile, error) {
	names, err := listFiles(p.Path(sub))
	if err != nil {
		return nil, err
	}
	var files []DefinitionFile
	for _, name := range names {
		format := FormatFor(name)
		if format == FormatUnknown {
			continue
		}
		files = append(files, DefinitionFile{
			Name:   name,
			Path:   filepath.Join(p.Path(sub), name),
			Format: format,
		})
	}
	return files, nil
}

// ImageArchives 返回要上传的镜像包路径：manifest 声明优先，否则扫描 packages/images。
func (p *Package) ImageArchives(m *domain.Manifest) ([]string, error) {
	if len(m.Images) > 0 {
		paths := make([]string, 0, len(m.Images))
		for _, rel := range m.Images {
			paths = append(paths, p.Path(rel))
		}
		return paths, nil
	}
	return p.discover(ImagesDir, imageSuffixes)
}

// Charts 返回要安装的 Chart：manifest 声明优先，否则扫描 packages/charts，
// 扫描到的 Chart 使用 release 块中的命名空间。
func (p *Package) Charts(m *domain.Manifest) ([]domain.ChartSpec, error) {
	if len(m.Charts) > 0 {
		return m.Charts, nil
	}
	paths, err := p.discover(ChartsDir, chartSuffixes)
	if err != nil {
		return nil, err
	}
	charts := make([]domain.ChartSpec, 0, len(paths))
	for _, path := range paths {
		rel, err := filepath.Rel(p.Dir, path)
		if err != nil {
			return nil, err
		}
		charts = append(charts, domain.ChartSpec{Path: filepath.ToSlash(rel)})
	}
	return charts, nil
}

// Icon 读取应用图标：manifest 声明优先，否则取 assets/icons 下第一个文件。
// 图标缺失不是错误。
func (p *Package) Icon(m *domain.Manifest) ([]byte, error) {
	path := ""
	if m.Icon != "" {
		path = p.Path(m.Icon)
	} else {
		names, err := listFiles(p.Path(IconsDir))
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, nil
		}
		path = filepath.Join(p.Path(IconsDir), names[0])
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (p *Package) discover(sub string, suffixes []string) ([]string, error) {
	names, err := listFiles(p.Path(sub))
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, name := range names {
		if hasSuffix(name, suffixes) {
			paths = append(paths, filepath.Join(p.Path(sub), name))
		}
	}
	return paths, nil
}

// listFiles 返回目录下的普通文件名（已排序），目录不存在时返回 nil。
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func hasSuffix(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}
