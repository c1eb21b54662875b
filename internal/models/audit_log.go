package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PartyAuditLog is one persisted party lifecycle operation, accepted or rejected.
type PartyAuditLog struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	Action    string         `gorm:"not null;index" json:"action"`
	Actor     string         `gorm:"index" json:"actor"`
	Target    string         `json:"target,omitempty"`
	PartyID   string         `gorm:"index" json:"party_id,omitempty"`
	Result    string         `gorm:"not null;index" json:"result"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (a *PartyAuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
