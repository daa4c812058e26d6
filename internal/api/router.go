package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/modalsource/postal/internal/domain"
	"github.com/modalsource/postal/internal/store"
)

// requestTimeout caps request handling; a full check against slow DNS
// needs headroom over the per-query timeouts.
const requestTimeout = 60 * time.Second

// RouterConfig carries the dependencies for the API router.
type RouterConfig struct {
	// Service runs domain verifications.
	Service CheckService
	// Store is the domain record store.
	Store store.Store
	// Records is the system-wide record generation configuration.
	Records domain.RecordConfig
	// MaxBodySize caps request body size in bytes.
	MaxBodySize int64
}

// NewRouter creates a chi router with all endpoints and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	h := &Handler{
		service:     cfg.Service,
		store:       cfg.Store,
		records:     cfg.Records,
		maxBodySize: cfg.MaxBodySize,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Heartbeat("/ping"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/domains", h.handleListDomains)
		r.Post("/domains", h.handleCreateDomain)
		r.Get("/domains/{name}", h.handleGetDomain)
		r.Get("/domains/{name}/setup", h.handleSetup)
		r.Post("/domains/{name}/check", h.handleCheck)
	})

	// served to receiving mail servers, host-routed
	r.Get("/.well-known/mta-sts.txt", h.handlePolicy)

	return r
}
