package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

// Audit actions.
const (
	ActionCheckout     = "checkout"
	ActionReturn       = "return"
	ActionAdjustStock  = "stock.adjust"
	ActionSetStock     = "stock.set"
	ActionWriteOff     = "writeoff"
	ActionProductAdd   = "product.create"
	ActionWorkerSave   = "worker.save"
	ActionSettingsSave = "settings.update"
)

type actorKey struct{}

// ContextWithActor returns a context that attributes audit entries to actor.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by ContextWithActor, or "system".
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "system"
}

// timestamp is the time stored on new rows. Microsecond precision survives
// both backends unchanged.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// recordAudit appends an audit entry using ex, normally the transaction that
// performs the audited change.
func recordAudit(ctx context.Context, ex db.Execer, action, detail string) error {
	_, err := ex.Exec(ctx,
		`INSERT INTO audit_log (occurred_at, actor, action, detail) VALUES (?, ?, ?, ?)`,
		timestamp(), ActorFromContext(ctx), action, detail,
	)
	if err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the most recent audit entries, newest first.
func ListAudit(ctx context.Context, ex db.Execer, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := ex.Query(ctx,
		`SELECT id, occurred_at, actor, action, detail FROM audit_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}

	entries := make([]model.AuditEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.AuditEntry{
			ID:         r.Int64("id"),
			OccurredAt: r.Time("occurred_at"),
			Actor:      r.String("actor"),
			Action:     r.String("action"),
			Detail:     r.String("detail"),
		})
	}
	return entries, nil
}
