// Package http exposes the carpool ledger as a JSON API: records, draft
// participation, balances, backups and the sync session.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carpool/internal/core"
	"carpool/internal/ledger"
	"carpool/internal/log"
	"carpool/internal/worker"
)

// SyncService is the sync session as seen by the API.
type SyncService interface {
	State() worker.State
	Login(owner string) error
	Logout()
	Pull(ctx context.Context) error
	Push(ctx context.Context) error
}

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps holds everything the handlers work on.
type Deps struct {
	Ledger *ledger.Store
	// Sync is nil when no remote backend is configured.
	Sync      SyncService
	Readiness []ReadinessCheck
	// Registry receives the HTTP metrics and is served on /metrics.
	// A nil registry disables both.
	Registry  *prometheus.Registry
	RateLimit RateLimitConfig
	Logger    *log.Logger
	Now       func() time.Time
}

type Server struct {
	http.Server
	ledger      *ledger.Store
	sync        SyncService
	readiness   []ReadinessCheck
	rateLimiter *rateLimiter
	security    *securityMetrics
	logger      *log.Logger
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	var reg prometheus.Registerer
	if deps.Registry != nil {
		reg = deps.Registry
	}

	s := &Server{
		ledger:      deps.Ledger,
		sync:        deps.Sync,
		readiness:   deps.Readiness,
		rateLimiter: newRateLimiter(deps.RateLimit),
		security:    newSecurityMetrics(reg),
		logger:      logger,
		now:         now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if deps.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	s.routes(mux)

	var handler http.Handler = mux
	handler = s.withRateLimit(handler)
	handler = s.withSecurityHeaders(handler)
	handler = log.Middleware(logger, extractClientIP)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	// Ledger
	mux.HandleFunc("GET /api/ledger", s.handleGetLedger)
	mux.HandleFunc("DELETE /api/ledger", s.handleClearLedger)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	// Travellers
	mux.HandleFunc("GET /api/travellers", s.handleListTravellers)
	mux.HandleFunc("POST /api/travellers", s.handleAddTraveller)
	mux.HandleFunc("PUT /api/travellers/{id}", s.handleRenameTraveller)
	mux.HandleFunc("DELETE /api/travellers/{id}", s.handleRemoveTraveller)
	mux.HandleFunc("GET /api/travellers/{id}/balance", s.handleTravellerBalance)
	mux.HandleFunc("GET /api/travellers/{id}/history", s.handleTripHistory)

	// Participation
	mux.HandleFunc("GET /api/trips", s.handleGetTrips)
	mux.HandleFunc("DELETE /api/trips", s.handleClearTrips)
	mux.HandleFunc("PUT /api/trips/{date}/{travellerID}", s.handleUpdateTrip)
	mux.HandleFunc("GET /api/draft", s.handleGetDraft)
	mux.HandleFunc("POST /api/draft/toggle", s.handleToggleDraft)
	mux.HandleFunc("POST /api/draft/day", s.handleSetDraftDay)
	mux.HandleFunc("POST /api/draft/save", s.handleSaveDraft)
	mux.HandleFunc("DELETE /api/draft", s.handleDiscardDraft)

	// Money records
	s.entryRoutes(mux, "/api/payments", entryOps{
		list:   func(snap core.Snapshot) []core.Entry { return snap.CashPayments },
		add:    s.ledger.AddCashPayment,
		update: s.ledger.UpdateCashPayment,
		remove: s.ledger.RemoveCashPayment,
		clear:  s.ledger.ClearCashPayments,
	})
	s.entryRoutes(mux, "/api/pending", entryOps{
		list:   func(snap core.Snapshot) []core.Entry { return snap.OtherPending },
		add:    s.ledger.AddOtherPending,
		update: s.ledger.UpdateOtherPending,
		remove: s.ledger.RemoveOtherPending,
		clear:  s.ledger.ClearOtherPending,
	})
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleRemoveExpense)
	mux.HandleFunc("DELETE /api/expenses", s.handleClearExpenses)
	mux.HandleFunc("GET /api/incomes", s.handleListIncomes)
	mux.HandleFunc("POST /api/incomes", s.handleAddIncome)
	mux.HandleFunc("PUT /api/incomes/{id}", s.handleUpdateIncome)
	mux.HandleFunc("DELETE /api/incomes/{id}", s.handleRemoveIncome)

	// Settings
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /api/settings/auto-toll", s.handleGetAutoToll)
	mux.HandleFunc("PUT /api/settings/auto-toll", s.handleSetAutoToll)
	mux.HandleFunc("GET /api/editable", s.handleEditable)

	// Reports
	mux.HandleFunc("GET /api/balances", s.handleBalances)
	mux.HandleFunc("GET /api/summary/expenses", s.handleExpenseSummary)
	mux.HandleFunc("GET /api/summary/income", s.handleIncomeSummary)

	// Backup
	mux.HandleFunc("GET /api/backup", s.handleExportBackup)
	mux.HandleFunc("POST /api/backup", s.handleImportBackup)

	// Sync
	mux.HandleFunc("GET /api/sync", s.handleSyncStatus)
	mux.HandleFunc("POST /api/sync/login", s.handleSyncLogin)
	mux.HandleFunc("POST /api/sync/logout", s.handleSyncLogout)
	mux.HandleFunc("POST /api/sync/now", s.handleSyncNow)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
