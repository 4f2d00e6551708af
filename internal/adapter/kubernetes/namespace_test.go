package kubernetes

import (
	"context"
	"errors"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	fakeclient "k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func TestEnsureNamespace(t *testing.T) {
	labels := map[string]string{"app.kubernetes.io/managed-by": "dip-hub"}

	tests := []struct {
		name       string
		existing   []runtime.Object
		wantLabels map[string]string
	}{
		{
			name:       "creates missing namespace",
			wantLabels: labels,
		},
		{
			name: "keeps existing labels and adds missing ones",
			existing: []runtime.Object{&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{
				Name:   "dip",
				Labels: map[string]string{"team": "ops"},
			}}},
			wantLabels: map[string]string{"team": "ops", "app.kubernetes.io/managed-by": "dip-hub"},
		},
		{
			name: "does not overwrite an existing label value",
			existing: []runtime.Object{&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{
				Name:   "dip",
				Labels: map[string]string{"app.kubernetes.io/managed-by": "helm"},
			}}},
			wantLabels: map[string]string{"app.kubernetes.io/managed-by": "helm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := fakeclient.NewSimpleClientset(tt.existing...)
			n := NewNamespaceEnsurer(client)

			if err := n.EnsureNamespace(context.Background(), "dip", labels); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ns, err := client.CoreV1().Namespaces().Get(context.Background(), "dip", metav1.GetOptions{})
			if err != nil {
				t.Fatalf("namespace not found: %v", err)
			}
			if len(ns.Labels) != len(tt.wantLabels) {
				t.Fatalf("labels = %v, want %v", ns.Labels, tt.wantLabels)
			}
			for k, v := range tt.wantLabels {
				if ns.Labels[k] != v {
					t.Errorf("label %s = %q, want %q", k, ns.Labels[k], v)
				}
			}
		})
	}
}

func TestEnsureNamespace_GetError(t *testing.T) {
	client := fakeclient.NewSimpleClientset()
	client.PrependReactor("get", "namespaces", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("apiserver unavailable")
	})

	err := NewNamespaceEnsurer(client).EnsureNamespace(context.Background(), "dip", nil)
	if err == nil {
		t.Fatal("expected error when the api server fails")
	}
}

func TestEnsureNamespace_SkipsInvalidLabelValues(t *testing.T) {
	client := fakeclient.NewSimpleClientset()
	labels := map[string]string{
		"app.kubernetes.io/managed-by": "dip-hub",
		"dip-hub/application-key":      "运维分析",
	}

	if err := NewNamespaceEnsurer(client).EnsureNamespace(context.Background(), "dip", labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ns, err := client.CoreV1().Namespaces().Get(context.Background(), "dip", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("namespace not found: %v", err)
	}
	if _, ok := ns.Labels["dip-hub/application-key"]; ok {
		t.Errorf("invalid label value should be skipped: %v", ns.Labels)
	}
	if ns.Labels["app.kubernetes.io/managed-by"] != "dip-hub" {
		t.Errorf("valid label missing: %v", ns.Labels)
	}
}
