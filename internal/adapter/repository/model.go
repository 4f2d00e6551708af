package repository

import "time"

// ApplicationModel 是 Application 的数据库持久化模型。
type ApplicationModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Key            string `gorm:"column:key;type:varchar(32);uniqueIndex;not null"`
	Name           string `gorm:"type:varchar(128);not null"`
	Description    string `gorm:"type:varchar(800)"`
	Icon           []byte
	Version        string    `gorm:"type:varchar(128)"`
	Category       string    `gorm:"type:varchar(128)"`
	BusinessDomain string    `gorm:"type:varchar(128);default:db_public"`
	MicroApp       string    `gorm:"type:text"` // JSON 序列化的 MicroApp
	ReleaseConfig  string    `gorm:"type:text"` // JSON 序列化的 []ReleaseConfigItem
	OntologyIDs    string    `gorm:"column:ontology_ids;type:text"`
	AgentIDs       string    `gorm:"column:agent_ids;type:text"`
	IsConfig       bool      `gorm:"not null;default:false"`
	Pinned         bool      `gorm:"not null;default:false;index"`
	UpdatedBy      string    `gorm:"type:varchar(128)"`
	UpdatedByID    string    `gorm:"column:updated_by_id;type:varchar(36)"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false;index"`
}

func (ApplicationModel) TableName() string { return "t_application" }
