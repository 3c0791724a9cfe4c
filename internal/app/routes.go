package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teamplane/teamplane/internal/billing"
	"github.com/teamplane/teamplane/internal/identity"
	"github.com/teamplane/teamplane/internal/metrics"
	"github.com/teamplane/teamplane/internal/store"
)

// Deps holds shared dependencies injected into HTTP handlers.
type Deps struct {
	Config   *Config
	Store    *store.Store
	Handlers *Handlers
	Webhook  *billing.WebhookHandler
	Verifier identity.Verifier
	Version  string
}

// RegisterRoutes wires all HTTP handlers onto the given ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps *Deps) {
	h := deps.Handlers
	auth := identity.Middleware(deps.Verifier)

	// Health / readiness are unauthenticated liveness/readiness probes.
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/readyz", handleReadyz(deps.Store))

	metricsHandler := promhttp.Handler()
	if deps.Config.PublicMetrics {
		mux.Handle("/metrics", metricsHandler)
	} else {
		mux.Handle("/metrics", auth(metricsHandler))
	}

	// Stripe webhook (signature-authenticated)
	webhookLimiter := NewRateLimiter("stripe_webhook", 120, time.Minute)
	mux.Handle("/api/billing/webhook", webhookLimiter.Middleware(deps.Webhook))

	// Session provisioning (token-authenticated)
	mux.Handle("POST /api/auth/session", auth(http.HandlerFunc(h.HandleSession)))

	// Team surface
	mux.Handle("GET /api/team", auth(http.HandlerFunc(h.HandleGetTeam)))
	mux.Handle("GET /api/activity", auth(http.HandlerFunc(h.HandleActivity)))

	invitations := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListInvitations(w, r)
		case http.MethodPost:
			h.HandleCreateInvitation(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.Handle("/api/team/invitations", auth(invitations))
	mux.Handle("DELETE /api/team/invitations/{id}", auth(http.HandlerFunc(h.HandleRevokeInvitation)))
	mux.Handle("POST /api/invitations/{id}/accept", auth(http.HandlerFunc(h.HandleAcceptInvitation)))

	apiKeys := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListAPIKeys(w, r)
		case http.MethodPost:
			h.HandleCreateAPIKey(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.Handle("/api/team/api-keys", auth(apiKeys))
	mux.Handle("DELETE /api/team/api-keys/{id}", auth(http.HandlerFunc(h.HandleRevokeAPIKey)))

	projects := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListProjects(w, r)
		case http.MethodPost:
			h.HandleCreateProject(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.Handle("/api/team/projects", auth(projects))

	webhookEndpoints := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListWebhookEndpoints(w, r)
		case http.MethodPost:
			h.HandleCreateWebhookEndpoint(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.Handle("/api/team/webhooks", auth(webhookEndpoints))
	mux.Handle("DELETE /api/team/webhooks/{id}", auth(http.HandlerFunc(h.HandleDeactivateWebhookEndpoint)))

	usage := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListUsage(w, r)
		case http.MethodPost:
			h.HandleRecordUsage(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.Handle("/api/usage", auth(usage))
	mux.Handle("GET /api/entitlements", auth(http.HandlerFunc(h.HandleEntitlements)))

	// Billing redirects (token-authenticated)
	mux.Handle("POST /api/billing/checkout", auth(http.HandlerFunc(h.HandleCheckout)))
	mux.Handle("POST /api/billing/portal", auth(http.HandlerFunc(h.HandlePortal)))
}

// Instrument wraps the mux and counts requests by matched route and status.
func Instrument(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)
		metrics.HTTPRequestsTotal.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready once the store answers a ping.
func handleReadyz(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
