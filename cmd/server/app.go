package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/auth"
	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/i18n"
	"github.com/diewo77/seo-backoffice/internal/ai"
	"github.com/diewo77/seo-backoffice/internal/config"
	"github.com/diewo77/seo-backoffice/internal/handlers"
	"github.com/diewo77/seo-backoffice/internal/logging"
	"github.com/diewo77/seo-backoffice/internal/metrics"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/internal/policy"
	"github.com/diewo77/seo-backoffice/internal/services"
)

const (
	profileCacheTTL = 5 * time.Minute
	langCookie      = "lang"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux      *http.ServeMux
	db       *gorm.DB
	log      *zap.Logger
	cfg      *config.Config
	sessions *auth.Sessions
	gate     *policy.AuthGate
	fn       *ai.ReportFunction
}

// NewApp creates a new application with all routes configured. fn may wrap
// a nil generator, in which case generation answers 503.
func NewApp(conn *gorm.DB, log *zap.Logger, cfg *config.Config, fn *ai.ReportFunction) *App {
	a := &App{
		mux:  http.NewServeMux(),
		db:   conn,
		log:  log,
		cfg:  cfg,
		gate: policy.NewAuthGate(conn, profileCacheTTL),
		fn:   fn,
	}
	a.sessions = auth.NewSessions(cfg.App.SessionSecret,
		auth.WithSecureCookies(!cfg.App.Dev),
		auth.WithVerifier(a.userExists),
	)
	a.setupRoutes()
	return a
}

// Handler returns the mux behind the global middleware: request logging,
// then the session, then the language preference.
func (a *App) Handler() http.Handler {
	return logging.Middleware(a.log)(a.sessions.Middleware(a.withLanguage(a.mux)))
}

func (a *App) userExists(ctx context.Context, uid uint) bool {
	var n int64
	if err := a.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&n).Error; err != nil {
		a.log.Warn("session verification failed", zap.Uint("user_id", uid), zap.Error(err))
		return false
	}
	return n > 0
}

// route registers h behind the permission gate for resource:action.
func (a *App) route(pattern, resource string, action gate.Action, h http.HandlerFunc) {
	a.mux.Handle(pattern, a.gate.RequirePermission(resource, action)(h))
}

func (a *App) admin(pattern string, h http.HandlerFunc) {
	a.mux.Handle(pattern, a.gate.RequireAdmin()(h))
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	conn, log, authz := a.db, a.log, a.gate

	templates := services.NewTemplateService(conn)
	docs := services.NewDocumentService(conn, templates, nil)
	collector := metrics.NewCollector(log, a.cfg.AI.MetricsTimeout, metrics.SnapshotSources(conn)...)
	reports := services.NewReportService(conn, collector, a.fn, docs, log)
	invoices := services.NewInvoiceService(conn)

	a.mux.HandleFunc("GET /healthz", a.healthz)

	// Public
	ah := handlers.NewAuthHandler(conn, log, a.sessions)
	a.mux.HandleFunc("POST /api/auth/signup", ah.Signup)
	a.mux.HandleFunc("POST /api/auth/login", ah.Login)
	a.mux.HandleFunc("POST /api/auth/logout", ah.Logout)
	a.mux.Handle("GET /api/auth/me", a.gate.RequireAuth(http.HandlerFunc(ah.Me)))

	ch := handlers.NewClientHandler(conn, log, authz)
	a.route("GET /api/clients", "client", gate.ActionList, ch.List)
	a.route("POST /api/clients", "client", gate.ActionCreate, ch.Create)
	a.route("GET /api/clients/{id}", "client", gate.ActionView, ch.View)
	a.route("PUT /api/clients/{id}", "client", gate.ActionUpdate, ch.Update)
	a.route("DELETE /api/clients/{id}", "client", gate.ActionDelete, ch.Delete)

	mh := handlers.NewMetricHandler(conn, log, authz)
	a.route("GET /api/clients/{id}/metrics", "metric", gate.ActionList, mh.List)
	a.route("POST /api/clients/{id}/metrics", "metric", gate.ActionCreate, mh.Create)

	th := handlers.NewTemplateHandler(conn, log, authz, templates, docs)
	a.route("GET /api/templates", "template", gate.ActionList, th.List)
	a.route("POST /api/templates", "template", gate.ActionCreate, th.Create)
	a.route("GET /api/templates/default", "template", gate.ActionView, th.Default)
	a.route("GET /api/templates/tokens", "template", gate.ActionList, th.Tokens)
	a.route("GET /api/templates/{id}", "template", gate.ActionView, th.View)
	a.route("PUT /api/templates/{id}", "template", gate.ActionUpdate, th.Update)
	a.route("DELETE /api/templates/{id}", "template", gate.ActionDelete, th.Delete)
	a.route("POST /api/templates/{id}/duplicate", "template", gate.ActionCreate, th.Duplicate)
	a.route("POST /api/templates/{id}/default", "template", gate.ActionSetDefault, th.SetDefault)
	a.route("GET /api/templates/{id}/preview", "template", gate.ActionExport, th.Preview)
	a.route("GET /api/templates/{id}/pdf", "template", gate.ActionExport, th.PDF)

	rh := handlers.NewReportHandler(conn, log, authz, reports, a.fn)
	a.route("POST /api/functions/generate-report", "report", gate.ActionGenerate, rh.GenerateFunction)
	a.route("GET /api/reports", "report", gate.ActionList, rh.List)
	a.route("POST /api/reports", "report", gate.ActionCreate, rh.Create)
	a.route("GET /api/reports/{id}", "report", gate.ActionView, rh.View)
	a.route("POST /api/reports/{id}/generate", "report", gate.ActionGenerate, rh.Generate)
	a.route("POST /api/reports/{id}/publish", "report", gate.ActionPublish, rh.Publish)
	a.route("DELETE /api/reports/{id}", "report", gate.ActionDelete, rh.Delete)
	a.route("GET /api/reports/{id}/pdf", "report", gate.ActionExport, rh.PDF)

	ih := handlers.NewInvoiceHandler(conn, log, authz, invoices, docs)
	a.route("GET /api/invoices", "invoice", gate.ActionList, ih.List)
	a.route("POST /api/invoices", "invoice", gate.ActionCreate, ih.Create)
	a.route("GET /api/invoices/revenue", "invoice", gate.ActionList, ih.Revenue)
	a.route("GET /api/invoices/{id}", "invoice", gate.ActionView, ih.View)
	a.route("PUT /api/invoices/{id}", "invoice", gate.ActionUpdate, ih.Update)
	a.route("DELETE /api/invoices/{id}", "invoice", gate.ActionDelete, ih.Delete)
	a.route("POST /api/invoices/{id}/finalize", "invoice", gate.ActionFinalize, ih.Finalize)
	a.route("POST /api/invoices/{id}/status", "invoice", gate.ActionTransition, ih.Status)
	a.route("GET /api/invoices/{id}/pdf", "invoice", gate.ActionExport, ih.PDF)

	cth := handlers.NewContractHandler(conn, log, authz, docs)
	a.route("GET /api/contracts", "contract", gate.ActionList, cth.List)
	a.route("POST /api/contracts", "contract", gate.ActionCreate, cth.Create)
	a.route("GET /api/contracts/{id}", "contract", gate.ActionView, cth.View)
	a.route("PUT /api/contracts/{id}", "contract", gate.ActionUpdate, cth.Update)
	a.route("DELETE /api/contracts/{id}", "contract", gate.ActionDelete, cth.Delete)
	a.route("POST /api/contracts/{id}/status", "contract", gate.ActionTransition, cth.Status)
	a.route("GET /api/contracts/{id}/pdf", "contract", gate.ActionExport, cth.PDF)

	ph := handlers.NewProposalHandler(conn, log, authz, docs)
	a.route("GET /api/proposals", "proposal", gate.ActionList, ph.List)
	a.route("POST /api/proposals", "proposal", gate.ActionCreate, ph.Create)
	a.route("GET /api/proposals/{id}", "proposal", gate.ActionView, ph.View)
	a.route("PUT /api/proposals/{id}", "proposal", gate.ActionUpdate, ph.Update)
	a.route("DELETE /api/proposals/{id}", "proposal", gate.ActionDelete, ph.Delete)
	a.route("POST /api/proposals/{id}/status", "proposal", gate.ActionTransition, ph.Status)
	a.route("GET /api/proposals/{id}/pdf", "proposal", gate.ActionExport, ph.PDF)

	tk := handlers.NewTicketHandler(conn, log, authz)
	a.route("GET /api/tickets", "ticket", gate.ActionList, tk.List)
	a.route("POST /api/tickets", "ticket", gate.ActionCreate, tk.Create)
	a.route("GET /api/tickets/{id}", "ticket", gate.ActionView, tk.View)
	a.route("PUT /api/tickets/{id}", "ticket", gate.ActionUpdate, tk.Update)
	a.route("DELETE /api/tickets/{id}", "ticket", gate.ActionDelete, tk.Delete)
	a.route("POST /api/tickets/{id}/status", "ticket", gate.ActionTransition, tk.Status)

	cp := handlers.NewCompanyHandler(conn, log)
	a.route("GET /api/company", "company", gate.ActionView, cp.Get)
	a.route("PUT /api/company", "company", gate.ActionUpdate, cp.Update)

	// Admin: "*:*" profiles only
	aph := handlers.NewAdminProfileHandler(conn, log, a.gate)
	a.admin("GET /api/admin/profiles", aph.List)
	a.admin("POST /api/admin/profiles", aph.Create)
	a.admin("PUT /api/admin/profiles/{id}", aph.Update)
	a.admin("DELETE /api/admin/profiles/{id}", aph.Delete)
	a.admin("PUT /api/admin/profiles/{id}/permissions", aph.SetPermissions)
	a.admin("GET /api/admin/permissions", aph.ListPermissions)

	auph := handlers.NewAdminUserProfileHandler(conn, log, a.gate)
	a.admin("GET /api/admin/users", auph.List)
	a.admin("PUT /api/admin/users/{id}/profile", auph.AssignProfile)
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		httpx.Error(w, r, http.StatusServiceUnavailable, "database_unavailable", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok", "ai": a.fn.Available()})
}

// withLanguage picks the request language: ?lang= (remembered in a cookie),
// then the lang cookie, then Accept-Language, then the configured default.
func (a *App) withLanguage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := a.cfg.App.DefaultLang
		if c, err := r.Cookie(langCookie); err == nil && i18n.Supported(c.Value) {
			lang = c.Value
		} else if h := r.Header.Get("Accept-Language"); h != "" {
			lang = i18n.DetectLanguage(h)
		}
		if q := r.URL.Query().Get("lang"); i18n.Supported(q) {
			lang = q
			http.SetCookie(w, &http.Cookie{
				Name:     langCookie,
				Value:    lang,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}
