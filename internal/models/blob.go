package models

import (
	"time"

	"gorm.io/datatypes"
)

// Blob is one key of the key-value store. Collections are written as a
// whole JSON array under a single key.
type Blob struct {
	Key       string         `gorm:"primaryKey;type:varchar(64)"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (Blob) TableName() string {
	return "blobs"
}
