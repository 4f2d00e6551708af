package kubernetes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kweaver-ai/ai-store/internal/port"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

var _ port.NamespaceEnsurer = (*NamespaceEnsurer)(nil)

const userAgent = "dip-hub"

// NewClientset 优先使用 kubeconfig，未配置时使用 in-cluster 配置。
func NewClientset(kubeconfigPath string) (kubernetes.Interface, error) {
	var cfg *rest.Config
	var err error

	if kubeconfigPath != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	} else {
		cfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, err
	}
	cfg.UserAgent = userAgent
	return kubernetes.NewForConfig(cfg)
}

// NamespaceEnsurer 在 Release 安装前创建缺失的命名空间，已存在的命名空间只补充缺失的标签。
type NamespaceEnsurer struct {
	client kubernetes.Interface
}

func NewNamespaceEnsurer(client kubernetes.Interface) *NamespaceEnsurer {
	return &NamespaceEnsurer{client: client}
}

func (n *NamespaceEnsurer) EnsureNamespace(ctx context.Context, namespace string, labels map[string]string) error {
	labels = validLabels(namespace, labels)
	existing, err := n.client.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{})
	if errors.IsNotFound(err) {
		ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: namespace, Labels: labels}}
		_, err = n.client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
		if err != nil && !errors.IsAlreadyExists(err) {
			return fmt.Errorf("create namespace %s: %w", namespace, err)
		}
		slog.Info("namespace created", "namespace", namespace)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get namespace %s: %w", namespace, err)
	}

	missing := false
	for k := range labels {
		if _, ok := existing.Labels[k]; !ok {
			missing = true
			break
		}
	}
	if !missing {
		return nil
	}
	updated := existing.DeepCopy()
	if updated.Labels == nil {
		updated.Labels = map[string]string{}
	}
	for k, v := range labels {
		if _, ok := updated.Labels[k]; !ok {
			updated.Labels[k] = v
		}
	}
	if _, err := n.client.CoreV1().Namespaces().Update(ctx, updated, metav1.UpdateOptions{}); err != nil {
		// 标签只是标记，更新失败不影响安装
		slog.Warn("failed to label namespace", "namespace", namespace, "error", err)
	}
	return nil
}

// validLabels 丢弃不符合 K8s 标签规则的条目，例如包含非 ASCII 字符的包标识。
func validLabels(namespace string, labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		if len(validation.IsQualifiedName(k)) > 0 || len(validation.IsValidLabelValue(v)) > 0 {
			slog.Warn("skipping invalid namespace label", "namespace", namespace, "label", k, "value", v)
			continue
		}
		out[k] = v
	}
	return out
}
