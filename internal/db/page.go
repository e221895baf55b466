package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Page represents a standalone content page such as About.
type Page struct {
	gorm.Model
	Slug        string `gorm:"size:160;uniqueIndex;not null"`
	Title       string `gorm:"not null"`
	Summary     string
	Body        string `gorm:"type:text"`
	Metadata    datatypes.JSONMap
	Published   bool `gorm:"default:false;index"`
	PublishedAt *time.Time
	UserID      uint
}
