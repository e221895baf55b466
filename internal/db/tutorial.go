package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tutorial 定义了教程模型，是版本历史与计划任务的主要对象。
type Tutorial struct {
	gorm.Model
	Slug        string `gorm:"size:160;uniqueIndex;not null"`
	Title       string `gorm:"not null"`
	Summary     string
	Body        string            `gorm:"type:text"`
	Metadata    datatypes.JSONMap
	Published   bool `gorm:"default:false;index"`
	PublishedAt *time.Time
	UserID      uint
}

// TableName 指定自定义表名。
func (Tutorial) TableName() string {
	return "tutorials"
}
