package db

import "time"

// ScheduledAction 记录一次未来的状态变更请求。
// Executed 为 true 后记录即为终态；ClaimToken 非空表示正在被某次执行占用。
type ScheduledAction struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	ContentType  ContentType `gorm:"size:16;not null;index:idx_scheduled_target,priority:1" json:"contentType"`
	ContentID    uint        `gorm:"not null;index:idx_scheduled_target,priority:2" json:"contentId"`
	Action       Action      `gorm:"size:16;not null" json:"action"`
	ScheduledFor time.Time   `gorm:"not null;index:idx_scheduled_due,priority:2" json:"scheduledFor"`
	Executed     bool        `gorm:"not null;default:false;index:idx_scheduled_due,priority:1" json:"executed"`
	ExecutedAt   *time.Time  `json:"executedAt,omitempty"`
	ClaimToken   string      `gorm:"size:36;not null;default:''" json:"-"`
	ClaimedAt    *time.Time  `json:"-"`
	Attempts     int         `gorm:"not null;default:0" json:"attempts"`
	LastError    string      `gorm:"type:text" json:"lastError,omitempty"`
	CreatedBy    uint        `json:"createdBy"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// TableName 指定自定义表名。
func (ScheduledAction) TableName() string {
	return "scheduled_actions"
}

// Claimed reports whether an executor currently holds the record.
func (a ScheduledAction) Claimed() bool {
	return a.ClaimToken != ""
}
