package authz

import (
	"context"
	"time"

	"github.com/jmjalil96/CotizateAlgo/internal/platform/logger"
)

// AuditEvent es una decisión de autorización ya tomada. Registrarla nunca
// altera la decisión.
type AuditEvent struct {
	Kind         string // check_permission, manage_user, role_assignment, ...
	UserID       string
	TargetUserID string
	Permission   string
	Allowed      bool
	Reason       string
	At           time.Time
}

// AuditSink recibe eventos de auditoría de autorización.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}

// NopSink descarta todo. Útil en tests.
type NopSink struct{}

func (NopSink) Record(context.Context, AuditEvent) {}

type loggerSink struct {
	log logger.Logger
}

// NewLoggerSink registra eventos como líneas de log estructuradas.
func NewLoggerSink(log logger.Logger) AuditSink {
	return &loggerSink{log: log.With(map[string]any{"component": "authz_audit"})}
}

func (s *loggerSink) Record(_ context.Context, ev AuditEvent) {
	fields := map[string]any{
		"kind":    ev.Kind,
		"user_id": ev.UserID,
		"allowed": ev.Allowed,
	}
	if ev.TargetUserID != "" {
		fields["target_user_id"] = ev.TargetUserID
	}
	if ev.Permission != "" {
		fields["permission"] = ev.Permission
	}
	if ev.Reason != "" {
		fields["reason"] = ev.Reason
	}
	s.log.Info("authorization check", fields)
}
