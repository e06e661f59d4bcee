package api

import (
	"net/http"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
	"github.com/erazemk/irontrace/internal/notify"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(s db.Storage, jwtSecret string, n notify.Notifier) http.Handler {
	if n == nil {
		n = notify.Nop{}
	}
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Store: s, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{Store: s}
	productsHandler := &ProductsHandler{Store: s}
	workersHandler := &WorkersHandler{Store: s}
	loansHandler := &LoansHandler{Store: s, Notifier: n}
	ticketsHandler := &TicketsHandler{Store: s}
	reportsHandler := &ReportsHandler{Store: s}
	settingsHandler := &SettingsHandler{Store: s}

	authMW := AuthMiddleware(jwtSecret, s)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireSupervisor := RequireRole(model.RoleSupervisor)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Products: read (all), stock changes (supervisor+), create (admin).
	mux.Handle("GET /api/products", authMW(http.HandlerFunc(productsHandler.List)))
	mux.Handle("POST /api/products", authMW(requireAdmin(http.HandlerFunc(productsHandler.Create))))
	mux.Handle("GET /api/products/{id}", authMW(http.HandlerFunc(productsHandler.Get)))
	mux.Handle("POST /api/products/{id}/adjust", authMW(requireSupervisor(http.HandlerFunc(productsHandler.Adjust))))
	mux.Handle("PUT /api/products/{id}/stock", authMW(requireSupervisor(http.HandlerFunc(productsHandler.SetStock))))
	mux.Handle("POST /api/products/{id}/writeoff", authMW(requireSupervisor(http.HandlerFunc(productsHandler.WriteOff))))

	// Workers: read (all), write (supervisor+).
	mux.Handle("GET /api/workers", authMW(http.HandlerFunc(workersHandler.List)))
	mux.Handle("POST /api/workers", authMW(requireSupervisor(http.HandlerFunc(workersHandler.Save))))
	mux.Handle("GET /api/workers/{id}", authMW(http.HandlerFunc(workersHandler.Get)))
	mux.Handle("GET /api/workers/{id}/loans", authMW(http.HandlerFunc(workersHandler.Loans)))

	// Counter operations (all roles).
	mux.Handle("POST /api/checkouts", authMW(http.HandlerFunc(loansHandler.Checkout)))
	mux.Handle("POST /api/returns", authMW(http.HandlerFunc(loansHandler.Return)))
	mux.Handle("POST /api/returns/product", authMW(http.HandlerFunc(loansHandler.ReturnProduct)))
	mux.Handle("GET /api/tickets/{id}", authMW(http.HandlerFunc(ticketsHandler.Get)))
	mux.Handle("GET /api/tickets/{id}/active", authMW(http.HandlerFunc(ticketsHandler.Active)))

	// Reports (supervisor+).
	mux.Handle("GET /api/reports/movements", authMW(requireSupervisor(http.HandlerFunc(reportsHandler.Movements))))
	mux.Handle("GET /api/reports/summary", authMW(requireSupervisor(http.HandlerFunc(reportsHandler.Summary))))
	mux.Handle("GET /api/reports/audit", authMW(requireSupervisor(http.HandlerFunc(reportsHandler.Audit))))
	mux.Handle("GET /api/reports/writeoffs", authMW(requireSupervisor(http.HandlerFunc(reportsHandler.WriteOffs))))

	// Settings: read (all), write (admin).
	mux.Handle("GET /api/settings", authMW(http.HandlerFunc(settingsHandler.Get)))
	mux.Handle("PUT /api/settings", authMW(requireAdmin(http.HandlerFunc(settingsHandler.Update))))

	return mux
}
