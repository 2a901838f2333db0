package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditInsert AuditAction = "insert"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// AuditLogEntry is an append-only record of one field-level value change.
// Entries are written inside the same transaction as the mutation they
// describe and are never updated or deleted.
type AuditLogEntry struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	UserID    uint        `json:"user_id" gorm:"not null;index"`
	Action    AuditAction `json:"action" gorm:"not null;size:20;index"`
	Entity    string      `json:"table_name" gorm:"column:table_name;not null;size:100;index"`
	RecordID  *uint       `json:"record_id" gorm:"index"`

	OldValue datatypes.JSON `json:"old_value" gorm:"type:jsonb"`
	NewValue datatypes.JSON `json:"new_value" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`

	// Relations
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (AuditLogEntry) TableName() string {
	return "audit_log"
}
