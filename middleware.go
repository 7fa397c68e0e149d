package gatekit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Middleware provides HTTP route guards and request context helpers.
type Middleware struct {
	service      *Service
	getSubjectID func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := gatekit.NewMiddleware(service,
//	    gatekit.WithSubjectExtractor(func(r *http.Request) string {
//	        return session.UserID(r)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getSubjectID: defaultGetSubjectID,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithSubjectExtractor sets a custom function to extract the subject id from a request.
func WithSubjectExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getSubjectID = fn
	}
}

// WithErrorHandler sets a custom handler for denied requests.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetSubjectID(r *http.Request) string {
	return GetSubjectID(r.Context())
}

// expectsJSON reports whether the client asked for a JSON response.
func expectsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// defaultErrorHandler answers every denial, authenticated or not, with 403 and the
// guard's message.
func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	message := GuardRoleOrPermission.Message()
	var gerr *Error
	if errors.As(err, &gerr) && gerr.Guard != 0 {
		message = gerr.Guard.Message()
	}

	if expectsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
		return
	}
	http.Error(w, message, http.StatusForbidden)
}

// RequireRole creates middleware that requires any of the roles in a pipe-separated
// expression.
//
// Example:
//
//	router.With(mw.RequireRole("admin|editor")).Get("/admin", adminHandler)
func (m *Middleware) RequireRole(expr string) func(http.Handler) http.Handler {
	return m.guard(GuardRole, ParseExpression(expr))
}

// RequirePermission creates middleware that requires any of the permissions in a
// pipe-separated expression.
//
// Example:
//
//	router.With(mw.RequirePermission("edit-posts")).Put("/posts/{id}", updatePostHandler)
func (m *Middleware) RequirePermission(expr string) func(http.Handler) http.Handler {
	return m.guard(GuardPermission, ParseExpression(expr))
}

// RequireRoleOrPermission creates middleware that passes when any token of the
// expression matches either a role or a permission of the subject.
func (m *Middleware) RequireRoleOrPermission(expr string) func(http.Handler) http.Handler {
	return m.guard(GuardRoleOrPermission, ParseExpression(expr))
}

func (m *Middleware) guard(kind Guard, tokens []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			checker := CheckerFromContext(ctx)
			if checker == nil {
				if subjectID := m.getSubjectID(r); subjectID != "" {
					c, err := m.service.Checker(ctx, subjectID)
					if err != nil {
						m.service.logger.Warn().Err(err).
							Str("subject_id", subjectID).
							Str("guard", kind.String()).
							Msg("failed to load checker")
						m.errorHandler(w, r, NewError(ErrForbidden, kind.Message()).
							WithGuard(kind).
							WithSubject(subjectID))
						return
					}
					checker = c
					ctx = WithChecker(ctx, checker)
				}
			}

			var subject Authorizable
			if checker != nil {
				subject = checker
			}
			if err := AuthorizeContext(ctx, subject, kind, tokens); err != nil {
				m.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadChecker creates middleware that loads the subject's Checker into context.
// Use this when handlers or templates do their own checks.
//
// Example:
//
//	router.With(mw.LoadChecker()).Get("/dashboard", dashboardHandler)
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    checker := gatekit.CheckerFromContext(r.Context())
//	    if checker.HasRole("admin") {
//	        // Show admin features
//	    }
//	}
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subjectID := m.getSubjectID(r)
			if subjectID == "" {
				next.ServeHTTP(w, r)
				return
			}

			checker, err := m.service.Checker(ctx, subjectID)
			if err != nil {
				m.service.logger.Warn().Err(err).Str("subject_id", subjectID).Msg("failed to load checker")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithChecker(ctx, checker)))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from the request
// and adds it to the context for use in assignment operations.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)
			ctx = WithUserAgent(ctx, r.UserAgent())

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			if subjectID := m.getSubjectID(r); subjectID != "" {
				ctx = WithActorID(ctx, subjectID)
				ctx = WithSubjectID(ctx, subjectID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
