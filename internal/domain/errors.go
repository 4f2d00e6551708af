package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// 安装包本身的问题：压缩包损坏、缺少 manifest / application.key、YAML 无法解析。
	ErrPackageFormat = errors.New("invalid package format")
	// manifest 字段缺失或不合法。
	ErrValidation = fmt.Errorf("manifest validation failed: %w", ErrInvalidInput)

	ErrManifestNotFound  = fmt.Errorf("manifest not found: %w", ErrPackageFormat)
	ErrPackageKeyMissing = fmt.Errorf("application.key missing: %w", ErrPackageFormat)

	ErrVersionConflict   = errors.New("version conflict")
	ErrVersionUnchanged  = fmt.Errorf("version unchanged: %w", ErrVersionConflict)
	ErrVersionNotGreater = fmt.Errorf("version not greater: %w", ErrVersionConflict)

	// 镜像、Chart、Release 的上传或安装失败。
	ErrProvisioning = errors.New("provisioning failed")

	// 下游服务连通性：连不上、超时、返回非 2xx。
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrServiceTimeout     = errors.New("service timeout")
	ErrServiceRejected    = errors.New("service rejected request")

	ErrInstallInProgress = fmt.Errorf("install in progress: %w", ErrAlreadyExists)

	ErrApplicationNotFound = fmt.Errorf("application %w", ErrNotFound)
)

// RemoteError 描述下游服务返回的非 2xx 响应。
type RemoteError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Unwrap 让 404 同时匹配 ErrNotFound。
func (e *RemoteError) Unwrap() []error {
	if e.StatusCode == 404 {
		return []error{ErrServiceRejected, ErrNotFound}
	}
	return []error{ErrServiceRejected}
}
