package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

const workerColumns = `id, name, contact, section, site, created_at`

func scanWorker(r db.Row) model.Worker {
	return model.Worker{
		ID:        r.String("id"),
		Name:      r.String("name"),
		Contact:   r.String("contact"),
		Section:   r.String("section"),
		Site:      r.String("site"),
		CreatedAt: r.Time("created_at"),
	}
}

// SaveWorker creates a worker or replaces the details of an existing one.
func SaveWorker(ctx context.Context, s db.Storage, w model.Worker) (*model.Worker, error) {
	w.ID = model.NormalizeWorkerID(w.ID)
	w.Name = strings.TrimSpace(w.Name)
	if w.ID == "" {
		return nil, fmt.Errorf("worker id required: %w", ErrInvalidInput)
	}
	if w.Name == "" {
		return nil, fmt.Errorf("worker name required: %w", ErrInvalidInput)
	}

	err := s.WithTx(ctx, func(tx db.Execer) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO workers (id, name, contact, section, site, created_at) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			     name = excluded.name, contact = excluded.contact,
			     section = excluded.section, site = excluded.site`,
			w.ID, w.Name, strings.TrimSpace(w.Contact), strings.TrimSpace(w.Section), strings.TrimSpace(w.Site), timestamp(),
		)
		if err != nil {
			return fmt.Errorf("saving worker: %w", err)
		}
		return recordAudit(ctx, tx, ActionWorkerSave, fmt.Sprintf("%s %q", w.ID, w.Name))
	})
	if err != nil {
		return nil, err
	}

	return GetWorker(ctx, s, w.ID)
}

// GetWorker returns a worker by ID. The ID is normalized first.
func GetWorker(ctx context.Context, ex db.Execer, id string) (*model.Worker, error) {
	id = model.NormalizeWorkerID(id)
	row, err := db.QueryOne(ctx, ex, `SELECT `+workerColumns+` FROM workers WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting worker: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	w := scanWorker(row)
	return &w, nil
}

// ListWorkers returns all workers ordered by name.
func ListWorkers(ctx context.Context, ex db.Execer) ([]model.Worker, error) {
	rows, err := ex.Query(ctx, `SELECT `+workerColumns+` FROM workers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing workers: %w", err)
	}

	workers := make([]model.Worker, 0, len(rows))
	for _, r := range rows {
		workers = append(workers, scanWorker(r))
	}
	return workers, nil
}
