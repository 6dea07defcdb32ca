package model

import "time"

// Audit actions recorded by the session protocol.
const (
	AuditActionLogin   = "login"
	AuditActionRefresh = "refresh"
	AuditActionLogout  = "logout"
)

type AuditEntry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
