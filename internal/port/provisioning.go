package port

import (
	"context"
	"io"
)

// ImageMapping 是镜像上传后源地址到目标仓库地址的映射。
type ImageMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ChartUpload 是 Chart 上传后部署服务解析出的信息。
type ChartUpload struct {
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Values  map[string]any `json:"values"`
}

// InstallReleaseRequest 描述一次 Release 安装或升级。
type InstallReleaseRequest struct {
	Name         string
	Namespace    string
	ChartName    string
	ChartVersion string
	Values       map[string]any
	SetRegistry  bool
}

// ReleaseResult 是 Release 安装或删除后的生效 values。
type ReleaseResult struct {
	Values map[string]any `json:"values"`
}

// AgentCreated 是智能体创建结果。
type AgentCreated struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// DeployInstaller 负责镜像、Chart 上传和 Release 的安装删除。
// token 原样透传给下游服务。
type DeployInstaller interface {
	UploadImage(ctx context.Context, image io.Reader, token string) ([]ImageMapping, error)
	UploadChart(ctx context.Context, chart io.Reader, token string) (*ChartUpload, error)
	InstallRelease(ctx context.Context, req InstallReleaseRequest, token string) (*ReleaseResult, error)
	DeleteRelease(ctx context.Context, name, namespace, token string) (*ReleaseResult, error)
}

// OntologyManager 负责导入和查询知识网络。
type OntologyManager interface {
	CreateKnowledgeNetwork(ctx context.Context, definition any, token, businessDomain string) (string, error)
	GetKnowledgeNetwork(ctx context.Context, id, token, businessDomain string) (map[string]any, error)
}

// AgentFactory 负责导入和查询智能体。
type AgentFactory interface {
	CreateAgent(ctx context.Context, definition any, token, businessDomain string) (*AgentCreated, error)
	GetAgent(ctx context.Context, id, token, businessDomain string) (map[string]any, error)
}
