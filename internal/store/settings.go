package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

// Setting keys.
const (
	SettingCompanyName    = "company_name"
	SettingCompanyAddress = "company_address"
	SettingTicketFooter   = "ticket_footer"
	SettingPrinterName    = "printer_name"
	settingJWTSecret      = "jwt_secret"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses insert-if-absent + re-select so concurrent first starts agree.
func GetJWTSecret(ctx context.Context, ex db.Execer) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := ex.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`,
		settingJWTSecret, candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	row, err := db.QueryOne(ctx, ex, `SELECT value FROM settings WHERE key = ?`, settingJWTSecret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}
	if row == nil {
		return "", fmt.Errorf("querying jwt_secret: %w", ErrNotFound)
	}
	return row.String("value"), nil
}

// GetSettings returns the ticket settings, falling back to defaults for
// keys that were never saved.
func GetSettings(ctx context.Context, ex db.Execer) (model.Settings, error) {
	rows, err := ex.Query(ctx, `SELECT key, value FROM settings WHERE key IN (?, ?, ?, ?)`,
		SettingCompanyName, SettingCompanyAddress, SettingTicketFooter, SettingPrinterName,
	)
	if err != nil {
		return model.Settings{}, fmt.Errorf("getting settings: %w", err)
	}

	s := model.DefaultSettings
	for _, r := range rows {
		v := r.String("value")
		switch r.String("key") {
		case SettingCompanyName:
			s.CompanyName = v
		case SettingCompanyAddress:
			s.CompanyAddress = v
		case SettingTicketFooter:
			s.TicketFooter = v
		case SettingPrinterName:
			s.PrinterName = v
		}
	}
	return s, nil
}

// UpdateSettings saves all ticket settings.
func UpdateSettings(ctx context.Context, s db.Storage, settings model.Settings) error {
	values := []struct{ key, value string }{
		{SettingCompanyName, settings.CompanyName},
		{SettingCompanyAddress, settings.CompanyAddress},
		{SettingTicketFooter, settings.TicketFooter},
		{SettingPrinterName, settings.PrinterName},
	}

	return s.WithTx(ctx, func(tx db.Execer) error {
		for _, kv := range values {
			_, err := tx.Exec(ctx,
				`INSERT INTO settings (key, value) VALUES (?, ?)
				 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
				kv.key, kv.value,
			)
			if err != nil {
				return fmt.Errorf("saving setting %s: %w", kv.key, err)
			}
		}
		return recordAudit(ctx, tx, ActionSettingsSave, settings.CompanyName)
	})
}
