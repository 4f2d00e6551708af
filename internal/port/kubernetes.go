package port

import "context"

// NamespaceEnsurer 在安装 Release 前确保目标命名空间存在。
type NamespaceEnsurer interface {
	EnsureNamespace(ctx context.Context, namespace string, labels map[string]string) error
}
