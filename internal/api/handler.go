// Package api provides the HTTP surface of the domain authentication
// verifier: a JSON API for managing and checking domains, and the
// plain-text MTA-STS policy serving endpoint.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/modalsource/postal/internal/domain"
	"github.com/modalsource/postal/internal/store"
	"github.com/modalsource/postal/internal/verifier"
)

// CheckService runs a verification for a stored domain.
type CheckService interface {
	Check(ctx context.Context, name string, source verifier.Source) (*domain.Domain, domain.Result, error)
}

// Handler manages API endpoints.
type Handler struct {
	service     CheckService
	store       store.Store
	records     domain.RecordConfig
	maxBodySize int64
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// handleHealth returns service health status.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   "postal-dns",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateDomainRequest is the body for creating a domain.
type CreateDomainRequest struct {
	Name             string   `json:"name"`
	WebhookURL       string   `json:"webhook_url,omitempty"`
	DKIMPublicKey    string   `json:"dkim_public_key,omitempty"`
	MTASTSEnabled    bool     `json:"mta_sts_enabled,omitempty"`
	MTASTSMode       string   `json:"mta_sts_mode,omitempty"`
	MTASTSMaxAge     int      `json:"mta_sts_max_age,omitempty"`
	MTASTSMXPatterns []string `json:"mta_sts_mx_patterns,omitempty"`
	TLSRPTEnabled    bool     `json:"tls_rpt_enabled,omitempty"`
	TLSRPTEmail      string   `json:"tls_rpt_email,omitempty"`
	// Verified marks the domain as ownership-verified at creation. The
	// verification flow itself lives outside this service.
	Verified bool `json:"verified,omitempty"`
}

// handleCreateDomain registers a new domain.
func (h *Handler) handleCreateDomain(w http.ResponseWriter, r *http.Request) {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	var req CreateDomainRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, ErrInvalidRequestBody.Error())
		return
	}

	name, err := domain.ParseName(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}

	d := &domain.Domain{
		Name:             name,
		WebhookURL:       req.WebhookURL,
		DKIMPublicKey:    req.DKIMPublicKey,
		MTASTSEnabled:    req.MTASTSEnabled,
		MTASTSMode:       domain.MTASTSMode(req.MTASTSMode),
		MTASTSMaxAge:     req.MTASTSMaxAge,
		MTASTSMXPatterns: req.MTASTSMXPatterns,
		TLSRPTEnabled:    req.TLSRPTEnabled,
		TLSRPTEmail:      req.TLSRPTEmail,
	}

	if req.Verified {
		now := time.Now().UTC()
		d.VerifiedAt = &now
	}

	if err := h.store.Create(r.Context(), d); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateName):
			writeError(w, http.StatusConflict, errCodeConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidMTASTSMode), errors.Is(err, domain.ErrInvalidMTASTSMaxAge):
			writeError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
		}

		return
	}

	writeData(w, http.StatusCreated, d)
}

// handleListDomains returns every registered domain.
func (h *Handler) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
		return
	}

	writeData(w, http.StatusOK, domains)
}

// handleGetDomain returns a single domain with its current statuses.
func (h *Handler) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errCodeNotFound, err.Error())
			return
		}

		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())

		return
	}

	writeData(w, http.StatusOK, d)
}

// SetupRecord is one DNS record a domain owner must publish.
type SetupRecord struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// handleSetup returns the DNS records the domain is expected to publish.
func (h *Handler) handleSetup(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errCodeNotFound, err.Error())
			return
		}

		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())

		return
	}

	writeData(w, http.StatusOK, setupRecords(d, h.records))
}

// setupRecords assembles the expected record list for a domain.
func setupRecords(d *domain.Domain, cfg domain.RecordConfig) []SetupRecord {
	records := []SetupRecord{
		{Type: "TXT", Name: d.Name, Value: d.SPFRecord(cfg)},
	}

	if dkim := d.DKIMRecord(); dkim != "" {
		records = append(records, SetupRecord{
			Type:  "TXT",
			Name:  d.DKIMRecordName(cfg) + "." + d.Name,
			Value: dkim,
		})
	}

	records = append(records, SetupRecord{
		Type:  "CNAME",
		Name:  d.ReturnPathDomain(cfg),
		Value: cfg.ReturnPathDomain,
	})

	for _, mx := range cfg.MXRecords {
		records = append(records, SetupRecord{Type: "MX", Name: d.Name, Value: mx})
	}

	if cfg.DMARCPreferredEntry != "" {
		records = append(records, SetupRecord{
			Type:  "TXT",
			Name:  "_dmarc." + d.Name,
			Value: cfg.DMARCPreferredEntry,
		})
	}

	if d.MTASTSEnabled {
		records = append(records, SetupRecord{
			Type:  "TXT",
			Name:  d.MTASTSRecordName(),
			Value: d.MTASTSRecordValue(),
		})
	}

	if d.TLSRPTEnabled {
		records = append(records, SetupRecord{
			Type:  "TXT",
			Name:  d.TLSRPTRecordName(),
			Value: d.TLSRPTRecordValue(),
		})
	}

	return records
}

// CheckResponse is the body returned by the check endpoint.
type CheckResponse struct {
	Domain *domain.Domain `json:"domain"`
	Result domain.Result  `json:"result"`
	DNSOk  bool           `json:"dns_ok"`
}

// handleCheck runs a manual verification of the domain.
func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, errCodeValidation, ErrDomainNameRequired.Error())
		return
	}

	d, res, err := h.service.Check(r.Context(), name, verifier.SourceManual)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errCodeNotFound, err.Error())
			return
		}

		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())

		return
	}

	writeData(w, http.StatusOK, CheckResponse{
		Domain: d,
		Result: res,
		DNSOk:  res.DNSOk(),
	})
}
