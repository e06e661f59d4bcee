package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
	"github.com/erazemk/irontrace/internal/store"
)

const testJWTSecret = "test-secret"

type recordingNotifier struct {
	mu      sync.Mutex
	contact []string
	tickets []string
}

func (n *recordingNotifier) TicketIssued(_ context.Context, contact string, t *model.Ticket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contact = append(n.contact, contact)
	n.tickets = append(n.tickets, t.ID)
	return nil
}

type testServer struct {
	*httptest.Server
	store    db.Storage
	notifier *recordingNotifier
	admin    string
}

// failingReads makes plain reads matching a statement fragment fail once
// armed. Transactions go to the wrapped storage untouched.
type failingReads struct {
	db.Storage
	fragment string
	armed    atomic.Bool
}

func (f *failingReads) Query(ctx context.Context, query string, args ...any) ([]db.Row, error) {
	if f.armed.Load() && strings.Contains(query, f.fragment) {
		return nil, fmt.Errorf("reading: %w", db.ErrConnection)
	}
	return f.Storage.Query(ctx, query, args...)
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWith(t, nil)
}

// setupTestServerWith serves the router over wrap(storage) when wrap is set.
func setupTestServerWith(t *testing.T, wrap func(db.Storage) db.Storage) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	n := &recordingNotifier{}
	routed := database
	if wrap != nil {
		routed = wrap(database)
	}
	server := httptest.NewServer(NewRouter(routed, testJWTSecret, n))
	t.Cleanup(server.Close)

	ts := &testServer{Server: server, store: database, notifier: n}
	createUser(t, database, "admin", model.RoleAdmin)
	ts.admin = ts.login(t, "admin", "password")
	return ts
}

func createUser(t *testing.T, s db.Storage, username, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = store.CreateUser(context.Background(), s, username, string(hash), role)
	require.NoError(t, err)
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	var resp loginResponse
	status := ts.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: username, Password: password}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// do sends a JSON request and decodes the response into out when non-nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) seed(t *testing.T) {
	t.Helper()
	products := []createProductRequest{
		{ID: "p1", Name: "Drill", UnitPrice: decimal.RequireFromString("1000"), Stock: 10, Category: model.CategoryTool},
		{ID: "p2", Name: "Gloves", UnitPrice: decimal.RequireFromString("2.50"), Stock: 50, Category: model.CategoryConsumable},
	}
	for _, p := range products {
		require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/products", ts.admin, p, nil))
	}
	w := model.Worker{ID: "w-1", Name: "Ana", Contact: "ana@example.com"}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/workers", ts.admin, w, nil))
}

func TestLoginEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	status := ts.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: "admin", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = ts.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: "nobody", Password: "password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = ts.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUnauthenticated(t *testing.T) {
	ts := setupTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/products", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/products", "garbage", nil, nil))
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.login(t, "admin", "password")

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products", token, nil, nil))
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/auth/logout", token, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/products", token, nil, nil))

	// Other sessions stay valid.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products", ts.admin, nil, nil))
}

func TestChangePassword(t *testing.T) {
	ts := setupTestServer(t)

	short := changePasswordRequest{CurrentPassword: "password", NewPassword: "short"}
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/auth/password", ts.admin, short, nil))

	wrong := changePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"}
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPut, "/api/auth/password", ts.admin, wrong, nil))

	ok := changePasswordRequest{CurrentPassword: "password", NewPassword: "new-password"}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, "/api/auth/password", ts.admin, ok, nil))
	ts.login(t, "admin", "new-password")
}

func TestRoleEnforcement(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t)
	createUser(t, ts.store, "op", model.RoleOperator)
	createUser(t, ts.store, "sup", model.RoleSupervisor)
	op := ts.login(t, "op", "password")
	sup := ts.login(t, "sup", "password")

	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/api/users", op, nil, nil))
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/api/users", sup, nil, nil))
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/api/products/P1/adjust", op, adjustRequest{Delta: 1}, nil))
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/api/reports/summary", op, nil, nil))
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPut, "/api/settings", sup, model.DefaultSettings, nil))

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/products/P1/adjust", sup, adjustRequest{Delta: 1}, nil))
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/reports/summary", sup, nil, nil))
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/settings", op, nil, nil))
}

func TestProductsAPI(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t)

	var products []model.Product
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products", ts.admin, nil, &products))
	assert.Len(t, products, 2)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products?q=glo", ts.admin, nil, &products))
	require.Len(t, products, 1)
	assert.Equal(t, "P2", products[0].ID)

	var p model.Product
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products/p1", ts.admin, nil, &p))
	assert.Equal(t, "Drill", p.Name)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/products/NOPE", ts.admin, nil, nil))

	dup := createProductRequest{ID: "P1", Name: "Again", Category: model.CategoryTool}
	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/api/products", ts.admin, dup, nil))

	bad := createProductRequest{ID: "P9", Name: "Thing", Category: "GADGET"}
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/products", ts.admin, bad, nil))
}

func TestStockEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t)

	var p model.Product
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/products/P1/adjust", ts.admin, adjustRequest{Delta: -4}, &p))
	assert.Equal(t, 6, p.Stock)

	var errResp map[string]string
	status := ts.do(t, http.MethodPost, "/api/products/P1/adjust", ts.admin, adjustRequest{Delta: -7}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, errResp["error"], "insufficient stock")

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/products/P1/adjust", ts.admin,
		adjustRequest{Delta: model.MaxStock}, nil))

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, "/api/products/P1/stock", ts.admin, setStockRequest{Stock: 3}, &p))
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/products/P1/stock", ts.admin, setStockRequest{Stock: -1}, nil))

	var wo model.WriteOff
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/products/P2/writeoff", ts.admin,
		writeOffRequest{Quantity: 5, Reason: "torn"}, &wo))
	assert.Equal(t, "P2", wo.ProductID)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/products/P2/writeoff", ts.admin,
		writeOffRequest{Quantity: 1}, nil))

	var writeOffs []model.WriteOff
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/reports/writeoffs", ts.admin, nil, &writeOffs))
	require.Len(t, writeOffs, 1)
	assert.Equal(t, "admin", writeOffs[0].CreatedBy)
}

func TestCheckoutAndReturnFlow(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t)

	var ticket model.Ticket
	status := ts.do(t, http.MethodPost, "/api/checkouts", ts.admin, checkoutRequest{
		WorkerID: "w1",
		Items:    []model.CheckoutItem{{ProductID: "P1", Quantity: 2}, {ProductID: "p2", Quantity: 5}},
	}, &ticket)
	require.Equal(t, http.StatusCreated, status)
	assert.Len(t, ticket.ID, 8)
	assert.Equal(t, "W1", ticket.WorkerID)
	assert.Equal(t, "Ana", ticket.WorkerName)
	assert.True(t, ticket.Registered)
	require.Len(t, ticket.Lines, 2)
	assert.Equal(t, model.LoanActive, ticket.Lines[0].Status)
	assert.Equal(t, model.LoanConsumed, ticket.Lines[1].Status)

	assert.Equal(t, []string{"ana@example.com"}, ts.notifier.contact)
	assert.Equal(t, []string{ticket.ID}, ts.notifier.tickets)

	var active []model.LoanLine
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/tickets/"+ticket.ID+"/active", ts.admin, nil, &active))
	require.Len(t, active, 1)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/workers/w1/loans", ts.admin, nil, &active))
	require.Len(t, active, 1)
	loanID := active[0].ID

	var results []returnResult
	status = ts.do(t, http.MethodPost, "/api/returns", ts.admin, returnRequest{Entries: []model.ReturnEntry{
		{LoanID: loanID, Quantity: 1},
		{LoanID: 9999, Quantity: 1},
		{LoanID: ticket.Lines[1].ID, Quantity: 1},
	}}, &results)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Error)
	assert.NotZero(t, results[0].ReturnedID)
	assert.Contains(t, results[1].Error, "not found")
	assert.Contains(t, results[2].Error, "not active")

	var res returnResult
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/returns/product", ts.admin,
		returnProductRequest{ProductID: "p1"}, &res))
	assert.Equal(t, loanID, res.LoanID)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/returns/product", ts.admin,
		returnProductRequest{ProductID: "p1"}, nil))

	var p model.Product
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products/P1", ts.admin, nil, &p))
	assert.Equal(t, 10, p.Stock)

	var reprint model.Ticket
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/tickets/"+ticket.ID, ts.admin, nil, &reprint))
	assert.Len(t, reprint.Lines, 3)
}

func TestCheckoutRespondsCreatedWhenTicketReadFails(t *testing.T) {
	reads := &failingReads{fragment: "l.transaction_id = ?"}
	ts := setupTestServerWith(t, func(s db.Storage) db.Storage {
		reads.Storage = s
		return reads
	})
	ts.seed(t)
	reads.armed.Store(true)

	var resp map[string]string
	status := ts.do(t, http.MethodPost, "/api/checkouts", ts.admin, checkoutRequest{
		WorkerID: "W1",
		Items:    []model.CheckoutItem{{ProductID: "P1", Quantity: 2}},
	}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, resp["ticket_id"], 8)

	lines, err := store.GetTicketLines(context.Background(), ts.store, resp["ticket_id"])
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Empty(t, ts.notifier.tickets)

	p, err := store.GetProduct(context.Background(), ts.store, "P1")
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock)
}

func TestCheckoutErrors(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t)

	tests := []struct {
		name   string
		req    checkoutRequest
		status int
	}{
		{"no items", checkoutRequest{WorkerID: "W1"}, http.StatusBadRequest},
		{"zero quantity", checkoutRequest{WorkerID: "W1", Items: []model.CheckoutItem{{ProductID: "P1"}}}, http.StatusBadRequest},
		{"unknown worker", checkoutRequest{WorkerID: "W9", Items: []model.CheckoutItem{{ProductID: "P1", Quantity: 1}}}, http.StatusUnprocessableEntity},
		{"unknown product", checkoutRequest{WorkerID: "W1", Items: []model.CheckoutItem{{ProductID: "P9", Quantity: 1}}}, http.StatusNotFound},
		{"insufficient stock", checkoutRequest{WorkerID: "W1", Items: []model.CheckoutItem{{ProductID: "P1", Quantity: 11}}}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, ts.do(t, http.MethodPost, "/api/checkouts", ts.admin, tt.req, nil))
		})
	}

	assert.Empty(t, ts.notifier.tickets)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/tickets/NOPE", ts.admin, nil, nil))
}

func TestReportsAPI(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t)

	status := ts.do(t, http.MethodPost, "/api/checkouts", ts.admin, checkoutRequest{
		WorkerID: "W1",
		Items:    []model.CheckoutItem{{ProductID: "P1", Quantity: 1}, {ProductID: "P2", Quantity: 4}},
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var report model.MovementReport
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/reports/movements?q=gloves", ts.admin, nil, &report))
	require.Len(t, report.Movements, 1)
	assert.Equal(t, 4, report.ConsumableUnits)
	assert.True(t, decimal.RequireFromString("10").Equal(report.ConsumableValue))

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/reports/movements?since=yesterday", ts.admin, nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/reports/audit?limit=x", ts.admin, nil, nil))

	var summary model.Summary
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/reports/summary", ts.admin, nil, &summary))
	assert.Equal(t, 1, summary.ActiveLoanCount)
	assert.True(t, decimal.RequireFromString("1000").Equal(summary.ActiveLoanValue))
	assert.True(t, decimal.RequireFromString("10").Equal(summary.ConsumedTodayValue))

	var audit []model.AuditEntry
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/reports/audit?limit=1", ts.admin, nil, &audit))
	require.Len(t, audit, 1)
	assert.Equal(t, store.ActionCheckout, audit[0].Action)
	assert.Equal(t, "admin", audit[0].Actor)
}

func TestSettingsAPI(t *testing.T) {
	ts := setupTestServer(t)

	var settings model.Settings
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/settings", ts.admin, nil, &settings))
	assert.Equal(t, model.DefaultSettings, settings)

	settings.CompanyName = "Acme Works"
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, "/api/settings", ts.admin, settings, &settings))
	assert.Equal(t, "Acme Works", settings.CompanyName)
}

func TestUsersAPI(t *testing.T) {
	ts := setupTestServer(t)

	var user model.User
	status := ts.do(t, http.MethodPost, "/api/users", ts.admin,
		createUserRequest{Username: "op", Password: "password", Role: model.RoleOperator}, &user)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, model.RoleOperator, user.Role)

	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/api/users", ts.admin,
		createUserRequest{Username: "op", Password: "password", Role: model.RoleOperator}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/users", ts.admin,
		createUserRequest{Username: "x", Password: "password", Role: "manager"}, nil))

	var users []model.User
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/users", ts.admin, nil, &users))
	assert.Len(t, users, 2)

	admin, err := store.GetUserByUsername(context.Background(), ts.store, "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodDelete, "/api/users/"+strconv.FormatInt(admin.ID, 10), ts.admin, nil, nil))

	adminPath := "/api/users/" + strconv.FormatInt(admin.ID, 10)
	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPut, adminPath, ts.admin,
		updateUserRequest{Role: model.RoleOperator}, nil))

	userPath := "/api/users/" + strconv.FormatInt(user.ID, 10)
	var updated model.User
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, userPath, ts.admin,
		updateUserRequest{Role: model.RoleSupervisor}, &updated))
	assert.Equal(t, model.RoleSupervisor, updated.Role)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, userPath+"/password", ts.admin,
		resetPasswordRequest{Password: "short"}, nil))
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, userPath+"/password", ts.admin,
		resetPasswordRequest{Password: "another-password"}, nil))
	ts.login(t, "op", "another-password")

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, userPath, ts.admin, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, userPath, ts.admin, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, userPath, ts.admin, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPut, userPath+"/password", ts.admin,
		resetPasswordRequest{Password: "another-password"}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/users/abc", ts.admin, nil, nil))
}

func TestStoreErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{&store.StockError{ProductID: "P1"}, http.StatusConflict},
		{store.ErrLoanNotActive, http.StatusConflict},
		{db.ErrConstraint, http.StatusConflict},
		{fmt.Errorf("returning: %w", db.ErrConflict), http.StatusConflict},
		{store.ErrInvalidQuantity, http.StatusBadRequest},
		{store.ErrNoItems, http.StatusBadRequest},
		{store.ErrUnknownWorker, http.StatusUnprocessableEntity},
		{db.ErrConnection, http.StatusServiceUnavailable},
		{db.ErrQuery, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, storeErrorStatus(tt.err), "%v", tt.err)
	}
}
