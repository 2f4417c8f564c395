package router

import (
	"net/http"

	"github.com/taskmint/backend/internal/auth"
	"github.com/taskmint/backend/internal/handlers"
	"github.com/taskmint/backend/internal/middleware"
	"github.com/taskmint/backend/internal/models"
)

// Deps carries everything the router mounts.
type Deps struct {
	Auth        *auth.Handler
	Tasks       *handlers.TaskHandler
	Submissions *handlers.SubmissionHandler
	Withdrawals *handlers.WithdrawalHandler
	Payments    *handlers.PaymentHandler
	Users       *handlers.UserHandler

	Validator middleware.TokenValidator
	Accounts  middleware.AccountLookup
}

// New returns an http.Handler serving the API under /api/v1, plus the
// unauthenticated payment webhook under /api/webhooks.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.Auth(d.Validator, d.Accounts)
	worker := middleware.RequireRole(models.RoleWorker)
	buyer := middleware.RequireRole(models.RoleBuyer)
	admin := middleware.RequireRole(models.RoleAdmin)
	buyerOrAdmin := middleware.RequireRole(models.RoleBuyer, models.RoleAdmin)

	handle := func(pattern string, h http.HandlerFunc, mws ...func(http.Handler) http.Handler) {
		var wrapped http.Handler = h
		for i := len(mws) - 1; i >= 0; i-- {
			wrapped = mws[i](wrapped)
		}
		mux.Handle(pattern, wrapped)
	}

	// Auth
	handle("POST /api/v1/auth/register", d.Auth.Register)
	handle("POST /api/v1/auth/login", d.Auth.Login)
	handle("GET /api/v1/auth/me", d.Auth.Me, authed)

	// Tasks
	handle("POST /api/v1/tasks", d.Tasks.Create, authed, buyer)
	handle("GET /api/v1/tasks", d.Tasks.List, authed)
	handle("GET /api/v1/tasks/mine", d.Tasks.MyTasks, authed, buyer)
	handle("GET /api/v1/tasks/{id}", d.Tasks.Get, authed)
	handle("PATCH /api/v1/tasks/{id}", d.Tasks.Update, authed, buyer)
	handle("DELETE /api/v1/tasks/{id}", d.Tasks.Delete, authed, buyerOrAdmin)

	// Submissions
	handle("POST /api/v1/submissions", d.Submissions.Submit, authed, worker)
	handle("GET /api/v1/submissions", d.Submissions.List, authed)
	handle("PATCH /api/v1/submissions/{id}/review", d.Submissions.Review, authed, buyer)

	// Withdrawals
	handle("POST /api/v1/withdrawals", d.Withdrawals.Create, authed, worker)
	handle("GET /api/v1/withdrawals/mine", d.Withdrawals.Mine, authed, worker)
	handle("GET /api/v1/withdrawals", d.Withdrawals.List, authed, admin)
	handle("PATCH /api/v1/withdrawals/{id}/approve", d.Withdrawals.Approve, authed, admin)
	handle("PATCH /api/v1/withdrawals/{id}/reject", d.Withdrawals.Reject, authed, admin)

	// Payments and ledger
	handle("POST /api/v1/payments/checkout", d.Payments.Checkout, authed, buyer)
	handle("POST /api/v1/payments/verify/{sessionID}", d.Payments.Verify, authed, buyer)
	handle("GET /api/v1/transactions", d.Payments.Transactions, authed)
	handle("POST /api/webhooks/payments", d.Payments.Webhook)

	// Notifications and stats
	handle("GET /api/v1/notifications", d.Users.Notifications, authed)
	handle("PATCH /api/v1/notifications/read-all", d.Users.MarkAllNotificationsRead, authed)
	handle("PATCH /api/v1/notifications/{id}/read", d.Users.MarkNotificationRead, authed)
	handle("GET /api/v1/stats", d.Users.Stats, authed)

	// Admin
	handle("GET /api/v1/admin/users", d.Users.ListUsers, authed, admin)
	handle("DELETE /api/v1/admin/users/{id}", d.Users.DeleteUser, authed, admin)
	handle("PATCH /api/v1/admin/users/{id}/role", d.Users.UpdateRole, authed, admin)
	handle("PATCH /api/v1/admin/users/{id}/active", d.Users.SetActive, authed, admin)

	return mux
}
