package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// k8sNameRegex 匹配合法的 K8s 资源名称：小写字母开头，只含小写字母、数字和连字符，长度 2-63。
var k8sNameRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{0,61}[a-z0-9]$`)

// ValidateK8sName 校验名称是否可安全用作 Release 名或命名空间。
func ValidateK8sName(name string) error {
	if !k8sNameRegex.MatchString(name) {
		return fmt.Errorf("%w: name %q is not a valid k8s resource name", ErrInvalidInput, name)
	}
	return nil
}

// maxPackageKeyLen 与数据库 key 列宽度一致，按字符计。
const maxPackageKeyLen = 32

// ValidatePackageKey 校验 application.key 中的包标识：1-32 个可打印字符，不含空白。
func ValidatePackageKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: package key is empty", ErrValidation)
	}
	if n := utf8.RuneCountInString(key); n > maxPackageKeyLen {
		return fmt.Errorf("%w: package key %q is longer than %d characters", ErrValidation, key, maxPackageKeyLen)
	}
	for _, r := range key {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return fmt.Errorf("%w: package key %q contains invalid characters", ErrValidation, key)
		}
	}
	return nil
}

// ValidateRelativePath 校验 manifest 中引用的包内路径，防止路径穿越。
func ValidateRelativePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidInput)
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: path %q must be relative", ErrInvalidInput, p)
	}
	cleaned := filepath.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%w: path %q escapes the package root", ErrInvalidInput, p)
	}
	return nil
}
