package domain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest 是从安装包 manifest.yaml 解析出的描述信息，仅在一次安装调用内存活。
// Key 来自同目录下的 application.key，manifest 正文中的 key 字段会被忽略。
type Manifest struct {
	Key             string       `yaml:"-"`
	Name            string       `yaml:"name"`
	Version         string       `yaml:"version"`
	ManifestVersion int          `yaml:"manifest_version"`
	Description     string       `yaml:"description"`
	Category        string       `yaml:"category"`
	BusinessDomain  string       `yaml:"business-domain"`
	MicroApp        *MicroApp    `yaml:"micro-app"`
	Icon            string       `yaml:"icon"`
	Images          []string     `yaml:"images"`
	Charts          []ChartSpec  `yaml:"charts"`
	Release         *ReleaseSpec `yaml:"release"`
}

// ChartSpec 声明一个要安装的 Chart，路径相对于 manifest 所在目录。
type ChartSpec struct {
	Path        string         `yaml:"path"`
	ReleaseName string         `yaml:"release_name"`
	Namespace   string         `yaml:"namespace"`
	Values      map[string]any `yaml:"values"`
}

// ReleaseSpec 是所有 Chart 共享的 Release 配置。
type ReleaseSpec struct {
	Namespace   string         `yaml:"namespace"`
	SetRegistry *bool          `yaml:"set_registry"`
	Values      map[string]any `yaml:"values"`
}

// ParseManifest 解析 manifest 原文并校验，packageKey 取自 application.key。
func ParseManifest(raw []byte, packageKey string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %v", ErrPackageFormat, err)
	}
	m.Key = strings.TrimSpace(packageKey)
	if m.ManifestVersion == 0 {
		m.ManifestVersion = 1
	}
	m.BusinessDomain = strings.TrimSpace(m.BusinessDomain)
	for i := range m.Charts {
		m.Charts[i].Values = normalizeValues(m.Charts[i].Values)
	}
	if m.Release != nil {
		m.Release.Values = normalizeValues(m.Release.Values)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate 按固定顺序检查字段，只返回遇到的第一个错误。
func (m *Manifest) Validate() error {
	if err := ValidatePackageKey(m.Key); err != nil {
		return err
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("%w: version is required", ErrValidation)
	}
	if m.MicroApp != nil {
		if m.MicroApp.Name == "" {
			return fmt.Errorf("%w: micro-app.name is required", ErrValidation)
		}
		if m.MicroApp.Entry == "" {
			return fmt.Errorf("%w: micro-app.entry is required", ErrValidation)
		}
	}
	if m.Release != nil {
		if strings.TrimSpace(m.Release.Namespace) == "" {
			return fmt.Errorf("%w: release.namespace is required", ErrValidation)
		}
		if err := ValidateK8sName(m.Release.Namespace); err != nil {
			return fmt.Errorf("%w: release.namespace: %v", ErrValidation, err)
		}
	}
	for i, c := range m.Charts {
		if c.Path == "" {
			return fmt.Errorf("%w: charts[%d].path is required", ErrValidation, i)
		}
		if err := ValidateRelativePath(c.Path); err != nil {
			return fmt.Errorf("%w: charts[%d].path: %v", ErrValidation, i, err)
		}
		ns := m.ChartNamespace(c)
		if ns == "" {
			return fmt.Errorf("%w: charts[%d] (%s) has no namespace and release.namespace is not set", ErrValidation, i, c.Path)
		}
		if err := ValidateK8sName(ns); err != nil {
			return fmt.Errorf("%w: charts[%d].namespace: %v", ErrValidation, i, err)
		}
		if c.ReleaseName != "" {
			if err := ValidateK8sName(c.ReleaseName); err != nil {
				return fmt.Errorf("%w: charts[%d].release_name: %v", ErrValidation, i, err)
			}
		}
	}
	for i, p := range m.Images {
		if err := ValidateRelativePath(p); err != nil {
			return fmt.Errorf("%w: images[%d]: %v", ErrValidation, i, err)
		}
	}
	if m.Icon != "" {
		if err := ValidateRelativePath(m.Icon); err != nil {
			return fmt.Errorf("%w: icon: %v", ErrValidation, err)
		}
	}
	return nil
}

// ChartNamespace 返回 Chart 的目标命名空间：Chart 自身声明优先，其次 release.namespace。
func (m *Manifest) ChartNamespace(c ChartSpec) string {
	if c.Namespace != "" {
		return c.Namespace
	}
	if m.Release != nil {
		return m.Release.Namespace
	}
	return ""
}

// SetRegistry 默认为 true。
func (m *Manifest) SetRegistry() bool {
	if m.Release == nil || m.Release.SetRegistry == nil {
		return true
	}
	return *m.Release.SetRegistry
}
