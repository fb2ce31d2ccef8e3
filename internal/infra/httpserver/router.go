package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appagent "github.com/complykit/privacy-comply/internal/application/agent"
	appfindings "github.com/complykit/privacy-comply/internal/application/findings"
	apprisks "github.com/complykit/privacy-comply/internal/application/risks"
	appscans "github.com/complykit/privacy-comply/internal/application/scans"
	appusers "github.com/complykit/privacy-comply/internal/application/users"
	domagent "github.com/complykit/privacy-comply/internal/domain/agent"
	"github.com/complykit/privacy-comply/internal/domain/audit"
	"github.com/complykit/privacy-comply/internal/domain/connectors"
	domfindings "github.com/complykit/privacy-comply/internal/domain/findings"
	domrisks "github.com/complykit/privacy-comply/internal/domain/risks"
	domscans "github.com/complykit/privacy-comply/internal/domain/scans"
	domusers "github.com/complykit/privacy-comply/internal/domain/users"
	"github.com/complykit/privacy-comply/internal/middleware"
)

type Router struct {
	scansSvc    *appscans.Service
	usersSvc    *appusers.Service
	risksSvc    *apprisks.Service
	findingsSvc *appfindings.Service
	agentSvc    *appagent.Service
	auditRepo   audit.Repository
}

type Options struct {
	APIKeys        map[string]string
	HealthCheckers map[string]middleware.HealthChecker
	RateCapacity   int
	RateRefill     int
	Audit          audit.Repository
}

func NewRouter(
	scansSvc *appscans.Service,
	usersSvc *appusers.Service,
	risksSvc *apprisks.Service,
	findingsSvc *appfindings.Service,
	agentSvc *appagent.Service,
	opts Options,
) http.Handler {
	r := &Router{
		scansSvc:    scansSvc,
		usersSvc:    usersSvc,
		risksSvc:    risksSvc,
		findingsSvc: findingsSvc,
		agentSvc:    agentSvc,
		auditRepo:   opts.Audit,
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	}
	if opts.RateCapacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(opts.RateCapacity, opts.RateRefill))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		// The tenant URL param only exists once chi has matched the route,
		// so the match check must be mounted inside this group.
		rt.Use(middleware.RequireTenantMatch(func(req *http.Request) string {
			return chi.URLParam(req, "tenant")
		}))

		rt.Post("/scans", r.wrap(r.handleTriggerScan))
		rt.Post("/scans/{id}/retry", r.wrap(r.handleRetryScan))
		rt.Get("/scans/latest", r.wrap(r.handleLatestScans))
		rt.Get("/scans/{id}", r.wrap(r.handleGetScan))
		rt.Get("/scans", r.wrap(r.handleListScans))
		rt.Get("/summary", r.wrap(r.handleSummary))

		rt.Post("/remediate", r.wrap(r.handleRemediate))

		rt.Get("/connectors", r.wrap(r.handleListConnectors))
		rt.Get("/connectors/{name}/health", r.wrap(r.handleConnectorHealth))
		rt.Post("/connectors/{name}/test", r.wrap(r.handleConnectorHealth))

		rt.Post("/users", r.wrap(r.handleCreateUser))
		rt.Get("/users", r.wrap(r.handleListUsers))
		rt.Get("/users/{id}", r.wrap(r.handleGetUser))
		rt.Patch("/users/{id}/status", r.wrap(r.handleUserStatus))
		rt.Post("/users/{id}/permissions", r.wrap(r.handleGrant))
		rt.Delete("/users/{id}/permissions/{resource}", r.wrap(r.handleRevoke))
		rt.Post("/auth/login", r.wrap(r.handleLogin))
		rt.Post("/auth/reset-request", r.wrap(r.handleResetRequest))
		rt.Post("/auth/reset", r.wrap(r.handleReset))

		rt.Post("/risks", r.wrap(r.handleCreateRisk))
		rt.Get("/risks", r.wrap(r.handleListRisks))
		rt.Get("/risks/due", r.wrap(r.handleRisksDue))
		rt.Get("/risks/{id}", r.wrap(r.handleGetRisk))
		rt.Patch("/risks/{id}/scores", r.wrap(r.handleRescore))
		rt.Post("/risks/{id}/measures", r.wrap(r.handleAddMeasure))
		rt.Post("/risks/{id}/measures/{measureID}/complete", r.wrap(r.handleCompleteMeasure))
		rt.Post("/risks/{id}/review", r.wrap(r.handleMarkReviewed))

		rt.Post("/findings", r.wrap(r.handleCreateFinding))
		rt.Get("/findings", r.wrap(r.handleListFindings))
		rt.Get("/findings/overdue", r.wrap(r.handleOverdueFindings))
		rt.Get("/findings/{id}", r.wrap(r.handleGetFinding))
		rt.Patch("/findings/{id}/status", r.wrap(r.handleFindingStatus))
		rt.Post("/findings/{id}/steps/{stepID}/complete", r.wrap(r.handleCompleteStep))

		rt.Post("/alerts", r.wrap(r.handleCreateAlert))
		rt.Get("/alerts", r.wrap(r.handleOpenAlerts))
		rt.Post("/alerts/{id}/ack", r.wrap(r.handleAckAlert))

		rt.Post("/agent/query", r.wrap(r.handleAgentQuery))
		rt.Post("/agent/report", r.wrap(r.handleAgentReport))
		rt.Get("/agent/analyses", r.wrap(r.handleAgentAnalyses))

		rt.Get("/audit", r.wrap(r.handleAuditRange))
		rt.Get("/audit/report", r.wrap(r.handleAuditReport))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// validationError marks client mistakes that should come back as 400
type validationError struct{ err error }

func (v validationError) Error() string { return v.err.Error() }
func (v validationError) Unwrap() error { return v.err }

func badRequest(err error) error { return validationError{err: err} }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, domagent.ErrQuotaExceeded):
			http.Error(w, "agent quota exceeded", http.StatusTooManyRequests)
		case errors.Is(err, connectors.ErrAuthentication):
			http.Error(w, "connector authentication failed", http.StatusBadGateway)
		case errors.Is(err, connectors.ErrConnectivity):
			http.Error(w, "connector unreachable", http.StatusBadGateway)
		case errors.Is(err, connectors.ErrConfiguration),
			errors.Is(err, appfindings.ErrUnknownResource),
			errors.Is(err, appusers.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, appusers.ErrInvalidCredentials):
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
		default:
			var ve validationError
			if errors.As(err, &ve) {
				http.Error(w, ve.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

//
// ==== scans ====
//

// POST /v1/{tenant}/scans
// Body: {"connector": "...", "scopes": [...], "pii_types": [...], ...}
// The scan runs in the background; the response carries the queued state.
func (r *Router) handleTriggerScan(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Connector     string    `json:"connector"`
		Scopes        []string  `json:"scopes"`
		PIITypes      []string  `json:"pii_types"`
		Since         time.Time `json:"since"`
		MaxRecords    int       `json:"max_records"`
		SampleContent bool      `json:"sample_content"`
		Source        string    `json:"source"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	if err := middleware.ValidateConnector(body.Connector, r.scansSvc.Connectors()); err != nil {
		return badRequest(err)
	}

	cmd := appscans.TriggerScanCommand{
		TenantID:      tenant,
		Connector:     body.Connector,
		Scopes:        body.Scopes,
		PIITypes:      body.PIITypes,
		Since:         body.Since,
		MaxRecords:    body.MaxRecords,
		SampleContent: body.SampleContent,
		Source:        body.Source,
		Actor:         middleware.GetTenantFromContext(req.Context()),
	}

	middleware.IncrementScans()
	middleware.IncrementScansRunning()
	go func() {
		defer middleware.DecrementScansRunning()
		result, err := r.scansSvc.TriggerScanUntilDone(cmd)
		if err != nil {
			middleware.IncrementScansFailed()
			log.Printf("background scan error tenant=%s connector=%s: %v", tenant, cmd.Connector, err)
			return
		}
		middleware.AddFindings(result.Counts.Total)
		log.Printf("scan finished tenant=%s connector=%s report=%s", tenant, cmd.Connector, result.ReportURL)
	}()

	return writeJSON(w, map[string]any{
		"status":    "queued",
		"tenant":    tenant,
		"connector": body.Connector,
		"message":   "scan started in background",
		"queuedAt":  time.Now(),
	})
}

// POST /v1/{tenant}/scans/{id}/retry
func (r *Router) handleRetryScan(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateScanID(id); err != nil {
		return badRequest(err)
	}

	result, err := r.scansSvc.RetryScan(req.Context(), tenant, domscans.ScanID(id),
		middleware.GetTenantFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, result)
}

// GET /v1/{tenant}/scans/latest?limit=20
func (r *Router) handleLatestScans(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.scansSvc.Latest(req.Context(), tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/scans/{id}
func (r *Router) handleGetScan(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	scan, err := r.scansSvc.Get(req.Context(), tenant, domscans.ScanID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, scan)
}

// GET /v1/{tenant}/scans?page=&page_size=&connector=&kind=&status=&scope=
func (r *Router) handleListScans(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	q := req.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	filters := map[string]any{}
	for _, key := range []string{"connector", "kind", "status", "scope"} {
		if v := q.Get(key); v != "" {
			filters[key] = v
		}
	}

	result, err := r.scansSvc.Paginate(req.Context(), tenant, page, middleware.ValidateLimit(size), filters)
	if err != nil {
		return err
	}
	return writeJSON(w, result)
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	summary, err := r.scansSvc.Summary(req.Context(), tenant, middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, summary)
}

//
// ==== remediation ====
//

// POST /v1/{tenant}/remediate
// Body: {"connector": "...", "actions": [{"finding_id","type","location"}]}
func (r *Router) handleRemediate(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Connector string                         `json:"connector"`
		Actions   []connectors.RemediationAction `json:"actions"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	if err := middleware.ValidateConnector(body.Connector, r.scansSvc.Connectors()); err != nil {
		return badRequest(err)
	}
	if len(body.Actions) == 0 {
		return badRequest(fmt.Errorf("actions are required"))
	}

	result, err := r.scansSvc.Remediate(req.Context(), appscans.RemediateCommand{
		TenantID:  tenant,
		Connector: body.Connector,
		Actions:   body.Actions,
		Actor:     middleware.GetTenantFromContext(req.Context()),
	})
	if err != nil {
		return err
	}
	middleware.IncrementRemediations()
	return writeJSON(w, result)
}

//
// ==== connectors ====
//

// GET /v1/{tenant}/connectors
func (r *Router) handleListConnectors(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, map[string]any{"connectors": r.scansSvc.Connectors()})
}

// GET /v1/{tenant}/connectors/{name}/health, POST .../test
func (r *Router) handleConnectorHealth(w http.ResponseWriter, req *http.Request) error {
	name := chi.URLParam(req, "name")
	if err := middleware.ValidateConnector(name, r.scansSvc.Connectors()); err != nil {
		return badRequest(err)
	}
	health, err := r.scansSvc.TestConnection(req.Context(), name)
	if err != nil {
		return err
	}
	return writeJSON(w, health)
}

//
// ==== users ====
//

// POST /v1/{tenant}/users
func (r *Router) handleCreateUser(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}

	u, err := r.usersSvc.Register(req.Context(), appusers.RegisterCommand{
		TenantID: tenant,
		Email:    body.Email,
		Name:     body.Name,
		Role:     domusers.Role(body.Role),
		Password: body.Password,
		Actor:    middleware.GetTenantFromContext(req.Context()),
	})
	if err != nil {
		return badRequest(err)
	}
	w.WriteHeader(http.StatusCreated)
	return writeJSON(w, u)
}

// GET /v1/{tenant}/users?status=&limit=
func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	status := domusers.Status(req.URL.Query().Get("status"))

	list, err := r.usersSvc.List(req.Context(), tenant, status, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/users/{id}
func (r *Router) handleGetUser(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	u, err := r.usersSvc.Get(req.Context(), tenant, domusers.UserID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, u)
}

// PATCH /v1/{tenant}/users/{id}/status  {"status": "suspended"}
func (r *Router) handleUserStatus(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	err := r.usersSvc.ChangeStatus(req.Context(), tenant,
		domusers.UserID(chi.URLParam(req, "id")), domusers.Status(body.Status),
		middleware.GetTenantFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]string{"status": body.Status})
}

// POST /v1/{tenant}/users/{id}/permissions
func (r *Router) handleGrant(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var p domusers.Permission
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		return badRequest(err)
	}
	if p.Resource == "" || len(p.Actions) == 0 {
		return badRequest(fmt.Errorf("resource and actions are required"))
	}

	u, err := r.usersSvc.Grant(req.Context(), tenant,
		domusers.UserID(chi.URLParam(req, "id")), p,
		middleware.GetTenantFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, u)
}

// DELETE /v1/{tenant}/users/{id}/permissions/{resource}
func (r *Router) handleRevoke(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	u, err := r.usersSvc.Revoke(req.Context(), tenant,
		domusers.UserID(chi.URLParam(req, "id")), chi.URLParam(req, "resource"),
		middleware.GetTenantFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, u)
}

// POST /v1/{tenant}/auth/login
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	u, err := r.usersSvc.Authenticate(req.Context(), tenant, body.Email, body.Password)
	if err != nil {
		return err
	}
	return writeJSON(w, u)
}

// POST /v1/{tenant}/auth/reset-request
func (r *Router) handleResetRequest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	token, err := r.usersSvc.RequestPasswordReset(req.Context(), tenant, body.Email)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]string{"reset_token": token})
}

// POST /v1/{tenant}/auth/reset
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Email    string `json:"email"`
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	if err := r.usersSvc.ResetPassword(req.Context(), tenant, body.Email, body.Token, body.Password); err != nil {
		return err
	}
	return writeJSON(w, map[string]string{"status": "password updated"})
}

//
// ==== risks ====
//

// POST /v1/{tenant}/risks
func (r *Router) handleCreateRisk(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Category        string    `json:"category"`
		Description     string    `json:"description"`
		ImpactScore     int       `json:"impact_score"`
		LikelihoodScore int       `json:"likelihood_score"`
		NextReviewAt    time.Time `json:"next_review_at"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}

	a, err := r.risksSvc.Create(req.Context(), apprisks.CreateAssessmentCommand{
		TenantID:        tenant,
		Category:        body.Category,
		Description:     body.Description,
		ImpactScore:     body.ImpactScore,
		LikelihoodScore: body.LikelihoodScore,
		NextReviewAt:    body.NextReviewAt,
		Actor:           middleware.GetTenantFromContext(req.Context()),
	})
	if err != nil {
		return badRequest(err)
	}
	w.WriteHeader(http.StatusCreated)
	return writeJSON(w, a)
}

// GET /v1/{tenant}/risks?status=&limit=
func (r *Router) handleListRisks(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	status := domrisks.Status(req.URL.Query().Get("status"))

	list, err := r.risksSvc.List(req.Context(), tenant, status, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/risks/due
func (r *Router) handleRisksDue(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	list, err := r.risksSvc.DueForReview(req.Context(), tenant)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/risks/{id}
func (r *Router) handleGetRisk(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	a, err := r.risksSvc.Get(req.Context(), tenant, domrisks.AssessmentID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, a)
}

// PATCH /v1/{tenant}/risks/{id}/scores {"impact_score": 4, "likelihood_score": 3}
func (r *Router) handleRescore(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		ImpactScore     int `json:"impact_score"`
		LikelihoodScore int `json:"likelihood_score"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}

	a, err := r.risksSvc.Rescore(req.Context(), tenant,
		domrisks.AssessmentID(chi.URLParam(req, "id")),
		body.ImpactScore, body.LikelihoodScore,
		middleware.GetTenantFromContext(req.Context()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return badRequest(err)
	}
	return writeJSON(w, a)
}

// POST /v1/{tenant}/risks/{id}/measures
func (r *Router) handleAddMeasure(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var m domrisks.MitigationMeasure
	if err := json.NewDecoder(req.Body).Decode(&m); err != nil {
		return badRequest(err)
	}
	if m.Description == "" {
		return badRequest(fmt.Errorf("description is required"))
	}

	a, err := r.risksSvc.AddMeasure(req.Context(), tenant,
		domrisks.AssessmentID(chi.URLParam(req, "id")), m,
		middleware.GetTenantFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, a)
}

// POST /v1/{tenant}/risks/{id}/measures/{measureID}/complete
func (r *Router) handleCompleteMeasure(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	a, err := r.risksSvc.CompleteMeasure(req.Context(), tenant,
		domrisks.AssessmentID(chi.URLParam(req, "id")),
		chi.URLParam(req, "measureID"),
		middleware.GetTenantFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, a)
}

// POST /v1/{tenant}/risks/{id}/review {"next_review_at": "..."}
func (r *Router) handleMarkReviewed(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		NextReviewAt time.Time `json:"next_review_at"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}

	a, err := r.risksSvc.MarkReviewed(req.Context(), tenant,
		domrisks.AssessmentID(chi.URLParam(req, "id")), body.NextReviewAt,
		middleware.GetTenantFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, a)
}

//
// ==== findings & alerts ====
//

// POST /v1/{tenant}/findings
func (r *Router) handleCreateFinding(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		ScanID      string                        `json:"scan_id"`
		Regulation  string                        `json:"regulation"`
		Title       string                        `json:"title"`
		Description string                        `json:"description"`
		Severity    string                        `json:"severity"`
		Steps       []domfindings.RemediationStep `json:"steps"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	if err := middleware.ValidateRegulation(body.Regulation); err != nil {
		return badRequest(err)
	}
	if err := middleware.ValidateSeverity(body.Severity); err != nil {
		return badRequest(err)
	}

	f, err := r.findingsSvc.CreateFinding(req.Context(), appfindings.CreateFindingCommand{
		TenantID:    tenant,
		ScanID:      body.ScanID,
		Regulation:  domfindings.Regulation(body.Regulation),
		Title:       body.Title,
		Description: body.Description,
		Severity:    domfindings.Severity(body.Severity),
		Steps:       body.Steps,
		Actor:       middleware.GetTenantFromContext(req.Context()),
	})
	if err != nil {
		return badRequest(err)
	}
	w.WriteHeader(http.StatusCreated)
	return writeJSON(w, f)
}

// GET /v1/{tenant}/findings?status=&limit=
func (r *Router) handleListFindings(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	status := domfindings.Status(req.URL.Query().Get("status"))

	list, err := r.findingsSvc.List(req.Context(), tenant, status, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/findings/overdue
func (r *Router) handleOverdueFindings(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.findingsSvc.Overdue(req.Context(), tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/findings/{id}
func (r *Router) handleGetFinding(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	f, err := r.findingsSvc.Get(req.Context(), tenant, domfindings.FindingID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, f)
}

// PATCH /v1/{tenant}/findings/{id}/status {"status": "resolved"}
func (r *Router) handleFindingStatus(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	err := r.findingsSvc.UpdateStatus(req.Context(), tenant,
		domfindings.FindingID(chi.URLParam(req, "id")), domfindings.Status(body.Status),
		middleware.GetTenantFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]string{"status": body.Status})
}

// POST /v1/{tenant}/findings/{id}/steps/{stepID}/complete
func (r *Router) handleCompleteStep(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	f, err := r.findingsSvc.CompleteStep(req.Context(), tenant,
		domfindings.FindingID(chi.URLParam(req, "id")),
		chi.URLParam(req, "stepID"),
		middleware.GetTenantFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, f)
}

// POST /v1/{tenant}/alerts
func (r *Router) handleCreateAlert(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		ResourceKind string `json:"resource_kind"`
		ResourceID   string `json:"resource_id"`
		Message      string `json:"message"`
		Severity     string `json:"severity"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	if err := middleware.ValidateSeverity(body.Severity); err != nil {
		return badRequest(err)
	}

	a, err := r.findingsSvc.CreateAlert(req.Context(), appfindings.CreateAlertCommand{
		TenantID:     tenant,
		ResourceKind: domfindings.ResourceKind(body.ResourceKind),
		ResourceID:   body.ResourceID,
		Message:      body.Message,
		Severity:     domfindings.Severity(body.Severity),
		Actor:        middleware.GetTenantFromContext(req.Context()),
	})
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return writeJSON(w, a)
}

// GET /v1/{tenant}/alerts?limit=
func (r *Router) handleOpenAlerts(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.findingsSvc.OpenAlerts(req.Context(), tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// POST /v1/{tenant}/alerts/{id}/ack
func (r *Router) handleAckAlert(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		By string `json:"by"`
	}
	_ = json.NewDecoder(req.Body).Decode(&body)
	if body.By == "" {
		body.By = middleware.GetTenantFromContext(req.Context())
	}

	err := r.findingsSvc.AcknowledgeAlert(req.Context(), tenant,
		domfindings.AlertID(chi.URLParam(req, "id")), body.By)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]string{"status": "acknowledged"})
}

//
// ==== audit ====
//

// auditWindow parses the from/to query params; default is the last 7 days
func auditWindow(req *http.Request) (time.Time, time.Time, error) {
	q := req.URL.Query()
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -7)
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, badRequest(fmt.Errorf("invalid from: %w", err))
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, badRequest(fmt.Errorf("invalid to: %w", err))
		}
		to = t
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, badRequest(fmt.Errorf("from must be before to"))
	}
	return from, to, nil
}

// GET /v1/{tenant}/audit?from=&to=&limit=
func (r *Router) handleAuditRange(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	from, to, err := auditWindow(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	entries, err := r.auditRepo.Range(req.Context(), tenant, from, to, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, entries)
}

// GET /v1/{tenant}/audit/report?from=&to=
func (r *Router) handleAuditReport(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	from, to, err := auditWindow(req)
	if err != nil {
		return err
	}

	entries, err := r.auditRepo.Range(req.Context(), tenant, from, to, 0)
	if err != nil {
		return err
	}
	return writeJSON(w, audit.BuildReport(tenant, from, to, entries))
}

//
// ==== agent ====
//

// POST /v1/{tenant}/agent/query {"query": "..."}
func (r *Router) handleAgentQuery(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	if body.Query == "" {
		return badRequest(fmt.Errorf("query is required"))
	}

	a, err := r.agentSvc.Query(req.Context(), tenant, body.Query)
	if err != nil {
		return err
	}
	return writeJSON(w, a)
}

// POST /v1/{tenant}/agent/report {"scan_id": "..."}
// Fetches the scan's findings artifact and runs the compliance agent on it.
func (r *Router) handleAgentReport(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		ScanID string `json:"scan_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(err)
	}
	if body.ScanID == "" {
		return badRequest(fmt.Errorf("scan_id is required"))
	}

	a, err := r.agentSvc.Report(req.Context(), tenant, body.ScanID)
	if err != nil {
		return err
	}
	return writeJSON(w, a)
}

// GET /v1/{tenant}/agent/analyses?page=&page_size=&scan_id=
func (r *Router) handleAgentAnalyses(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	q := req.URL.Query()

	if scanID := q.Get("scan_id"); scanID != "" {
		a, err := r.agentSvc.LatestByScan(req.Context(), tenant, scanID)
		if err != nil {
			return err
		}
		return writeJSON(w, a)
	}

	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	list, err := r.agentSvc.Paginate(req.Context(), tenant, page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}
