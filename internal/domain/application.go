package domain

import "time"

// DefaultBusinessDomain 是未声明业务域时使用的公共域。
const DefaultBusinessDomain = "db_public"

// Application 代表一个已安装的应用包，按 Key 唯一。
// 首次安装时创建，升级、配置、置顶时原地更新，卸载时删除。
type Application struct {
	ID             int64                `json:"id"`
	Key            string               `json:"key"`
	Name           string               `json:"name"`
	Description    string               `json:"description,omitempty"`
	Icon           []byte               `json:"icon,omitempty"` // JSON 中为 base64 文本
	Version        string               `json:"version"`
	Category       string               `json:"category,omitempty"`
	BusinessDomain string               `json:"business_domain"`
	MicroApp       *MicroApp            `json:"micro_app,omitempty"`
	ReleaseConfig  []ReleaseConfigItem  `json:"release_config"`
	OntologyConfig []OntologyConfigItem `json:"ontology_config"`
	AgentConfig    []AgentConfigItem    `json:"agent_config"`
	IsConfig       bool                 `json:"is_config"`
	Pinned         bool                 `json:"pinned"`
	UpdatedBy      string               `json:"updated_by,omitempty"`
	UpdatedByID    string               `json:"updated_by_id,omitempty"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// MicroApp 描述应用携带的微前端入口。
type MicroApp struct {
	Name     string `json:"name" yaml:"name"`
	Entry    string `json:"entry" yaml:"entry"`
	Headless bool   `json:"headless" yaml:"headless"`
}

// ReleaseConfigItem 记录一次 Chart 安装产生的 Release，卸载时按此逐个删除。
type ReleaseConfigItem struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// OntologyConfigItem 对应一个已导入的知识网络。IsConfig 只由 Configure 置为 true。
type OntologyConfigItem struct {
	ID       string `json:"id"`
	IsConfig bool   `json:"is_config"`
}

// AgentConfigItem 对应一个已导入的智能体。
type AgentConfigItem struct {
	ID       string `json:"id"`
	IsConfig bool   `json:"is_config"`
}

// Operator 是发起变更的用户。
type Operator struct {
	Name string
	ID   string
}

// MarkConfigured 把所有知识网络和智能体标记为已配置，重复调用结果不变。
func (a *Application) MarkConfigured() {
	for i := range a.OntologyConfig {
		a.OntologyConfig[i].IsConfig = true
	}
	for i := range a.AgentConfig {
		a.AgentConfig[i].IsConfig = true
	}
	a.IsConfig = true
}

// Touch 记录最后一次变更的操作人和时间。
func (a *Application) Touch(op Operator, now time.Time) {
	a.UpdatedBy = op.Name
	a.UpdatedByID = op.ID
	a.UpdatedAt = now
}
