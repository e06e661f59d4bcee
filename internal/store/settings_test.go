package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

func TestGetJWTSecretGeneratesAndPersists(t *testing.T) {
	db.ForEachBackend(t, func(t *testing.T, database db.Storage) {
		ctx := context.Background()

		secret1, err := GetJWTSecret(ctx, database)
		require.NoError(t, err)
		assert.Len(t, secret1, 64) // 32 bytes hex-encoded

		secret2, err := GetJWTSecret(ctx, database)
		require.NoError(t, err)
		assert.Equal(t, secret1, secret2)
	})
}

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	db.ForEachBackend(t, func(t *testing.T, database db.Storage) {
		ctx := context.Background()

		got, err := GetSettings(ctx, database)
		require.NoError(t, err)
		assert.Equal(t, model.DefaultSettings, got)

		want := model.Settings{
			CompanyName:    "Acme Mining",
			CompanyAddress: "Camp 4",
			TicketFooter:   "Thanks",
			PrinterName:    "EPSON",
		}
		require.NoError(t, UpdateSettings(ctx, database, want))
		require.NoError(t, UpdateSettings(ctx, database, want))

		got, err = GetSettings(ctx, database)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		// The secret is not one of the ticket settings.
		_, err = GetJWTSecret(ctx, database)
		require.NoError(t, err)
		got, err = GetSettings(ctx, database)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
