package api

import (
	"fmt"
	"net/http"

	"github.com/modalsource/postal/internal/domain"
)

// Plain-text bodies for the policy serving endpoint. Internal diagnostic
// detail stays in the per-mechanism error fields and is never exposed here.
const (
	policyInvalidDomain = "Invalid domain"
	policyNotFound      = "MTA-STS policy not found"
	policyNotConfigured = "MTA-STS policy not configured"
)

// handlePolicy serves a domain's MTA-STS policy file. The domain is
// derived from the request host, with the mta-sts. label stripped, and
// must be verified with MTA-STS enabled.
func (h *Handler) handlePolicy(w http.ResponseWriter, r *http.Request) {
	name, err := domain.ParsePolicyHost(r.Host)
	if err != nil {
		writePolicyError(w, policyInvalidDomain)
		return
	}

	d, err := h.store.FindForPolicy(r.Context(), name)
	if err != nil {
		writePolicyError(w, policyNotFound)
		return
	}

	content := d.MTASTSPolicyContent(h.records)
	if content == "" {
		writePolicyError(w, policyNotConfigured)
		return
	}

	maxAge := d.MTASTSMaxAge
	if maxAge <= 0 {
		maxAge = domain.DefaultMTASTSMaxAge
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", maxAge))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

// writePolicyError responds with a short plain-text not-found body.
func writePolicyError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(message))
}
