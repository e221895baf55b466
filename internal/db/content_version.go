package db

import (
	"time"

	"gorm.io/datatypes"
)

// Change types recorded on each snapshot.
const (
	ChangeCreate  = "create"
	ChangeUpdate  = "update"
	ChangeRestore = "restore"
)

// ContentVersion 记录内容可编辑字段的不可变快照。
// (content_type, content_id, version_number) 唯一，版本号从 1 连续递增。
type ContentVersion struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ContentType   ContentType       `gorm:"size:16;not null;uniqueIndex:idx_content_version,priority:1" json:"contentType"`
	ContentID     uint              `gorm:"not null;uniqueIndex:idx_content_version,priority:2" json:"contentId"`
	VersionNumber int               `gorm:"not null;uniqueIndex:idx_content_version,priority:3" json:"versionNumber"`
	Title         string            `json:"title"`
	Body          string            `gorm:"type:text" json:"body"`
	Metadata      datatypes.JSONMap `json:"metadata"`
	ChangeType    string            `gorm:"size:16" json:"changeType"`
	RestoredFrom  int               `gorm:"default:0" json:"restoredFrom,omitempty"`
	ContentHash   string            `gorm:"size:64" json:"contentHash"`
	CreatedBy     uint              `json:"createdBy"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// TableName 指定自定义表名。
func (ContentVersion) TableName() string {
	return "content_versions"
}
