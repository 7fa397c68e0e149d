package gatekit

import "time"

// AuditLogFilter provides options for filtering audit log queries.
type AuditLogFilter struct {
	// Filter by actor who performed the action
	ActorID string

	// Filter by the changed entity
	TargetType string
	Target     string

	// Filter by action type
	Action string

	// Filter by association kind ("roles" or "permissions")
	Relation string

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// DefaultAuditLimit is applied when a filter leaves Limit at zero.
const DefaultAuditLimit = 100

// NewAuditLogFilter creates a new AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{
		Limit: DefaultAuditLimit,
	}
}

// WithActor sets the actor ID filter.
func (f AuditLogFilter) WithActor(actorID string) AuditLogFilter {
	f.ActorID = actorID
	return f
}

// WithSubject restricts results to changes of a subject's assignments.
func (f AuditLogFilter) WithSubject(subjectID string) AuditLogFilter {
	f.TargetType = string(AuditTargetSubject)
	f.Target = subjectID
	return f
}

// WithRole restricts results to changes of a role (its definition or its permissions).
func (f AuditLogFilter) WithRole(slug string) AuditLogFilter {
	f.TargetType = string(AuditTargetRole)
	f.Target = slug
	return f
}

// WithPermission restricts results to changes of a permission definition.
func (f AuditLogFilter) WithPermission(slug string) AuditLogFilter {
	f.TargetType = string(AuditTargetPermission)
	f.Target = slug
	return f
}

// WithAction sets the action filter.
func (f AuditLogFilter) WithAction(action AuditAction) AuditLogFilter {
	f.Action = string(action)
	return f
}

// WithRelation sets the association kind filter.
func (f AuditLogFilter) WithRelation(relation string) AuditLogFilter {
	f.Relation = relation
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

func (f AuditLogFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultAuditLimit
	}
	return f.Limit
}
