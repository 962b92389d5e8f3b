package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"finanzas/internal/confirm"
	"finanzas/internal/core"
	"finanzas/internal/engine"
	"finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/ports"
	"finanzas/internal/services"
)

type (
	AccountService interface {
		List(ctx context.Context) ([]services.TieredAccount, error)
		Eligible(ctx context.Context) ([]engine.EligibleAccount, error)
		Summary(ctx context.Context) (core.AccountsSummary, error)
		Create(ctx context.Context, a core.Account) (core.Account, error)
		SetState(ctx context.Context, id string, state core.AccountState) (core.Account, error)
		Update(ctx context.Context, id string, e core.AccountEdit) (core.Account, error)
		Delete(ctx context.Context, id string) error
	}

	CategoryService interface {
		Create(ctx context.Context, c core.Category) (core.Category, error)
		Update(ctx context.Context, c core.Category) (core.Category, error)
		Delete(ctx context.Context, id string) error
	}

	TransactionLister interface {
		List(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error)
	}

	Registry interface {
		ports.CategoryReader
		ports.TypeReader
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Deps are the collaborators of the server. Health may be nil, and so may
// Categories, which leaves the category registry read-only.
type Deps struct {
	Accounts     AccountService
	Categories   CategoryService
	Transactions TransactionLister
	Registry     Registry
	Reviews      *confirm.Desk
	Health       Pinger
	Logger       *log.Logger
	Now          func() time.Time

	RateLimit      ratelimit.Config
	TrustedProxies []string
}

type Server struct {
	http.Server

	accounts     AccountService
	categories   CategoryService
	transactions TransactionLister
	registry     Registry
	reviews      *confirm.Desk
	health       Pinger
	logger       *log.Logger
	now          func() time.Time

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime            time.Time
	reviewsOpened     atomic.Int64
	reviewsConfirmed  atomic.Int64
	reviewsRejected   atomic.Int64
	persistenceFailed atomic.Int64
}

// NewServer wires the routes and the middleware chain. Call Shutdown to stop
// the background goroutines.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Server{
		accounts:         deps.Accounts,
		categories:       deps.Categories,
		transactions:     deps.Transactions,
		registry:         deps.Registry,
		reviews:          deps.Reviews,
		health:           deps.Health,
		logger:           deps.Logger.WithComponent(log.ComponentHTTP),
		now:              deps.Now,
		securityDetector: security.NewDetector(),
		rateLimiter:      ratelimit.NewLimiter(deps.RateLimit),
	}
	s.appMetrics.uptime = deps.Now()
	for _, cidr := range deps.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err.Error())
		}
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, deps.Logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireUser(h))
	}
	api("GET /api/accounts", s.handleListAccounts)
	api("GET /api/accounts/eligible", s.handleEligibleAccounts)
	api("GET /api/accounts/summary", s.handleAccountsSummary)
	api("POST /api/accounts", s.handleCreateAccount)
	api("PUT /api/accounts/{id}", s.handleUpdateAccount)
	api("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	api("PATCH /api/accounts/{id}/state", s.handleSetAccountState)

	api("GET /api/categories", s.handleCategories)
	if s.categories != nil {
		api("POST /api/categories", s.handleCreateCategory)
		api("PUT /api/categories/{id}", s.handleUpdateCategory)
		api("DELETE /api/categories/{id}", s.handleDeleteCategory)
	}
	api("GET /api/transaction-types", s.handleTransactionTypes)
	api("GET /api/form-options", s.handleFormOptions)

	api("POST /api/reviews", s.handleCreateReview)
	api("GET /api/reviews/{id}", s.handleGetReview)
	api("PUT /api/reviews/{id}/draft", s.handleEditDraft)
	api("POST /api/reviews/{id}/confirm", s.handleConfirmReview)
	api("POST /api/reviews/{id}/cancel", s.handleCancelReview)
	api("POST /api/reviews/{id}/acknowledge", s.handleAcknowledgeReview)

	api("GET /api/transactions", s.handleListTransactions)

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded, try again later").Write(w)
	}
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, onLimit)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
