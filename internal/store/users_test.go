package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "testuser", "hash123", model.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, "testuser", user.Username)
	assert.Equal(t, model.RoleOperator, user.Role)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := GetUser(ctx, database, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", got.Username)
	assert.Equal(t, "hash123", got.PasswordHash)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	database := db.NewTestDB(t)

	_, err := CreateUser(context.Background(), database, "x", "hash", "manager")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateUser(ctx, database, "dup", "hash", model.RoleOperator)
	require.NoError(t, err)

	_, err = CreateUser(ctx, database, "dup", "hash", model.RoleOperator)
	assert.ErrorIs(t, err, db.ErrConstraint)
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateUser(ctx, database, "alice", "hash", model.RoleAdmin)
	require.NoError(t, err)

	user, err := GetUserByUsername(ctx, database, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)

	missing, err := GetUserByUsername(ctx, database, "bob")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListUsers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "a", "hash", model.RoleOperator)
	CreateUser(ctx, database, "b", "hash", model.RoleSupervisor)

	users, err := ListUsers(ctx, database)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "deleteme", "hash", model.RoleOperator)
	require.NoError(t, DeleteUser(ctx, database, user.ID))

	users, _ := ListUsers(ctx, database)
	assert.Empty(t, users)

	assert.ErrorIs(t, DeleteUser(ctx, database, user.ID), ErrNotFound)

	// The username is free again after a soft delete.
	again, err := CreateUser(ctx, database, "deleteme", "hash", model.RoleOperator)
	require.NoError(t, err)

	got, err := GetUserByUsername(ctx, database, "deleteme")
	require.NoError(t, err)
	assert.Equal(t, again.ID, got.ID)
	assert.Nil(t, got.DeletedAt)
}

func TestUpdateUserAndPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pwuser", "oldhash", model.RoleOperator)
	require.NoError(t, UpdateUserPassword(ctx, database, user.ID, "newhash"))
	require.NoError(t, UpdateUser(ctx, database, user.ID, model.RoleSupervisor))

	got, _ := GetUser(ctx, database, user.ID)
	assert.Equal(t, "newhash", got.PasswordHash)
	assert.Equal(t, model.RoleSupervisor, got.Role)

	n, err := CountAdmins(ctx, database)
	require.NoError(t, err)
	assert.Zero(t, n)
}
