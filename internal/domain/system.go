package domain

import (
	"time"
)

// AuditLog records one successful admin write against the catalog or jobs.
type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id,string"`
	Action    string    `gorm:"size:64;index" json:"action"`
	Method    string    `gorm:"size:8" json:"method"`
	Path      string    `gorm:"size:255" json:"path"`
	Target    string    `gorm:"size:64" json:"target"`
	RemoteIP  string    `gorm:"size:64" json:"remoteIp"`
	Status    int       `json:"status"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// TableName Specify table name
func (AuditLog) TableName() string {
	return "shop_audit_log"
}
