package gatekit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditAction represents the type of action in the audit log.
type AuditAction string

const (
	AuditActionAttached AuditAction = "attached"
	AuditActionDetached AuditAction = "detached"
	AuditActionCreated  AuditAction = "created"
	AuditActionUpdated  AuditAction = "updated"
	AuditActionDeleted  AuditAction = "deleted"
)

// AuditTarget names the kind of entity an audit record is about.
type AuditTarget string

const (
	AuditTargetSubject    AuditTarget = "subject"
	AuditTargetRole       AuditTarget = "role"
	AuditTargetPermission AuditTarget = "permission"
)

// AuditRecord records role, permission and assignment changes for compliance and debugging.
type AuditRecord struct {
	bun.BaseModel `bun:"table:gatekit_audit_log,alias:gal"`

	ID        string    `bun:"id,pk,type:uuid"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who performed the action
	ActorID string `bun:"actor_id,notnull"`
	Action  string `bun:"action,notnull"`

	// What was changed: a subject id, a role slug or a permission slug
	TargetType string `bun:"target_type,notnull"`
	Target     string `bun:"target,notnull"`

	// Relation is "roles" or "permissions" for association changes; Slugs holds
	// the slugs that were actually attached or detached.
	Relation string   `bun:"relation"`
	Slugs    []string `bun:"slugs,type:text[]"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`
}

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	ActorID    string
	Action     AuditAction
	TargetType AuditTarget
	Target     string
	Relation   string
	Slugs      []string
	IPAddress  string
	UserAgent  string
	RequestID  string
}

// ToModel converts an AuditEntry to an AuditRecord with a fresh id.
func (e *AuditEntry) ToModel() *AuditRecord {
	return &AuditRecord{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		TargetType: string(e.TargetType),
		Target:     e.Target,
		Relation:   e.Relation,
		Slugs:      e.Slugs,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		RequestID:  e.RequestID,
	}
}

// newAuditEntry fills the request metadata of an entry from ctx.
func newAuditEntry(ctx context.Context, action AuditAction, targetType AuditTarget, target string) *AuditEntry {
	ac := GetAuditContext(ctx)
	actor := ac.ActorID
	if actor == "" {
		actor = "system"
	}
	return &AuditEntry{
		ActorID:    actor,
		Action:     action,
		TargetType: targetType,
		Target:     target,
		IPAddress:  ac.IPAddress,
		UserAgent:  ac.UserAgent,
		RequestID:  ac.RequestID,
	}
}

// matches reports whether the record passes every non-empty field of f.
func (f AuditLogFilter) matches(r *AuditRecord) bool {
	if f.ActorID != "" && r.ActorID != f.ActorID {
		return false
	}
	if f.TargetType != "" && r.TargetType != f.TargetType {
		return false
	}
	if f.Target != "" && r.Target != f.Target {
		return false
	}
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	if f.Relation != "" && r.Relation != f.Relation {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	return true
}
