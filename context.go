package gatekit

import (
	"context"
)

// Context keys for gatekit values.
type contextKey string

const (
	contextKeySubjectID contextKey = "gatekit:subject_id"
	contextKeyActorID   contextKey = "gatekit:actor_id"
	contextKeyIPAddress contextKey = "gatekit:ip_address"
	contextKeyUserAgent contextKey = "gatekit:user_agent"
	contextKeyRequestID contextKey = "gatekit:request_id"
	contextKeyChecker   contextKey = "gatekit:checker"
	contextKeySkipAuth  contextKey = "gatekit:skip_auth"
)

func stringValue(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithSubjectID adds the authenticated subject id to the context.
// Authentication middleware outside gatekit is expected to set it.
func WithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, contextKeySubjectID, subjectID)
}

// GetSubjectID retrieves the subject ID from context.
// Returns empty string if not set.
func GetSubjectID(ctx context.Context) string {
	return stringValue(ctx, contextKeySubjectID)
}

// WithActorID adds an actor ID to the context.
// This is the subject performing a mutation (for audit purposes).
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID retrieves the actor ID from context.
// Falls back to the subject ID if actor ID is not explicitly set.
func GetActorID(ctx context.Context) string {
	if actor := stringValue(ctx, contextKeyActorID); actor != "" {
		return actor
	}
	return GetSubjectID(ctx)
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	return stringValue(ctx, contextKeyIPAddress)
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	return stringValue(ctx, contextKeyUserAgent)
}

// WithRequestID adds a request ID to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, contextKeyRequestID)
}

// WithChecker adds a Checker to the context.
// Middleware.LoadChecker sets it for handlers and templates.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// CheckerFromContext retrieves the Checker from context.
// Returns nil if not set.
func CheckerFromContext(ctx context.Context) *Checker {
	if v := ctx.Value(contextKeyChecker); v != nil {
		if c, ok := v.(*Checker); ok {
			return c
		}
	}
	return nil
}

// WithSkipAuthCheck marks ctx so that gates and guards allow every request made with it.
// Use it for trusted internal calls such as seeding or test fixtures.
func WithSkipAuthCheck(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKeySkipAuth, true)
}

// SkipAuthCheck reports whether ctx was marked with WithSkipAuthCheck.
func SkipAuthCheck(ctx context.Context) bool {
	skip, _ := ctx.Value(contextKeySkipAuth).(bool)
	return skip
}

// AuditContext holds all audit-related information from context.
type AuditContext struct {
	ActorID   string
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		ActorID:   GetActorID(ctx),
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext adds all audit information to context at once.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.ActorID != "" {
		ctx = WithActorID(ctx, ac.ActorID)
	}
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}
