package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
	"github.com/erazemk/irontrace/internal/store"
)

// UsersHandler manages operator accounts. Every route is admin only.
type UsersHandler struct {
	Store db.Storage
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Role string `json:"role"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// target loads the live account named by the {id} path segment. On failure
// it has already written the response.
func (h *UsersHandler) target(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return nil, false
	}

	user, err := store.GetUser(r.Context(), h.Store, id)
	if err != nil {
		storeError(w, "failed to get user", err)
		return nil, false
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return nil, false
	}
	return user, true
}

// hashPassword applies the password rules and hashes it. On failure it has
// already written the response.
func hashPassword(w http.ResponseWriter, password string) (string, bool) {
	if err := model.ValidatePassword(password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return "", false
	}
	return string(hash), true
}

// keepsAnAdmin rejects changes that would remove the last admin account.
func (h *UsersHandler) keepsAnAdmin(w http.ResponseWriter, r *http.Request, user *model.User) bool {
	if user.Role != model.RoleAdmin {
		return true
	}
	admins, err := store.CountAdmins(r.Context(), h.Store)
	if err != nil {
		storeError(w, "failed to count admins", err)
		return false
	}
	if admins <= 1 {
		jsonError(w, http.StatusConflict, "cannot remove the last admin")
		return false
	}
	return true
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.Store)
	if err != nil {
		storeError(w, "failed to list users", err)
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "username and a valid role required")
		return
	}

	hash, ok := hashPassword(w, req.Password)
	if !ok {
		return
	}

	user, err := store.CreateUser(r.Context(), h.Store, req.Username, hash, req.Role)
	switch {
	case errors.Is(err, db.ErrConstraint):
		jsonError(w, http.StatusConflict, "username already exists")
		return
	case err != nil:
		storeError(w, "failed to create user", err)
		return
	}

	slog.Info("user created", "user", GetClaims(r.Context()).Username, "new_user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	if user, ok := h.target(w, r); ok {
		jsonResponse(w, http.StatusOK, user)
	}
}

// Update handles PUT /api/users/{id}: a role change.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.target(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.Role != model.RoleAdmin && !h.keepsAnAdmin(w, r, user) {
		return
	}

	if err := store.UpdateUser(r.Context(), h.Store, user.ID, req.Role); err != nil {
		storeError(w, "failed to update user", err)
		return
	}

	slog.Info("user role updated", "user", GetClaims(r.Context()).Username, "target_user", user.Username,
		"old_role", user.Role, "new_role", req.Role)
	user.Role = req.Role
	jsonResponse(w, http.StatusOK, user)
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.target(w, r)
	if !ok {
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hash, ok := hashPassword(w, req.Password)
	if !ok {
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.Store, user.ID, hash); err != nil {
		storeError(w, "failed to reset password", err)
		return
	}

	slog.Info("user password reset", "user", GetClaims(r.Context()).Username, "target_user", user.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}. Accounts are soft-deleted.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.target(w, r)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == user.ID {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}
	if !h.keepsAnAdmin(w, r, user) {
		return
	}

	if err := store.DeleteUser(r.Context(), h.Store, user.ID); err != nil {
		storeError(w, "failed to delete user", err)
		return
	}

	slog.Info("user deleted", "user", claims.Username, "deleted_user", user.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
