package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modalsource/postal/internal/domain"
	"github.com/modalsource/postal/internal/store"
)

// newPolicyRouter seeds a store with a verified MTA-STS domain
func newPolicyRouter(t *testing.T, mutate func(*domain.Domain)) http.Handler {
	t.Helper()

	now := time.Now().UTC()
	d := &domain.Domain{
		Name:             "example.com",
		VerifiedAt:       &now,
		MTASTSEnabled:    true,
		MTASTSMode:       domain.MTASTSModeEnforce,
		MTASTSMaxAge:     86400,
		MTASTSMXPatterns: []string{"*.mx.example.com"},
	}

	if mutate != nil {
		mutate(d)
	}

	st := store.NewMemory()
	require.NoError(t, st.Create(context.Background(), d))

	return NewRouter(RouterConfig{
		Service: &stubService{},
		Store:   st,
		Records: testRecordConfig,
	})
}

func getPolicy(handler http.Handler, host string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "http://"+host+"/.well-known/mta-sts.txt", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestHandlePolicy(t *testing.T) {
	handler := newPolicyRouter(t, nil)

	rec := getPolicy(handler, "mta-sts.example.com")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "version: STSv1\nmode: enforce\nmx: *.mx.example.com\nmax_age: 86400\n", rec.Body.String())
}

func TestHandlePolicy_HostVariants(t *testing.T) {
	handler := newPolicyRouter(t, nil)

	cases := []struct {
		name string
		host string
	}{
		{name: "uppercase host", host: "mta-sts.EXAMPLE.COM"},
		{name: "host with port", host: "mta-sts.example.com:8443"},
		{name: "bare domain", host: "example.com"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := getPolicy(handler, tc.host)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "version: STSv1")
		})
	}
}

func TestHandlePolicy_DefaultPatterns(t *testing.T) {
	handler := newPolicyRouter(t, func(d *domain.Domain) {
		d.MTASTSMXPatterns = nil
		d.MTASTSMode = domain.MTASTSModeTesting
	})

	rec := getPolicy(handler, "mta-sts.example.com")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"version: STSv1\nmode: testing\nmx: *.mx1.postal.example.com\nmx: *.mx2.postal.example.com\nmax_age: 86400\n",
		rec.Body.String())
}

func TestHandlePolicy_InvalidHost(t *testing.T) {
	handler := newPolicyRouter(t, nil)

	rec := getPolicy(handler, "mta-sts.localhost")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invalid domain", rec.Body.String())
}

func TestHandlePolicy_UnknownDomain(t *testing.T) {
	handler := newPolicyRouter(t, nil)

	rec := getPolicy(handler, "mta-sts.other.example.net")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MTA-STS policy not found", rec.Body.String())
}

func TestHandlePolicy_UnverifiedDomain(t *testing.T) {
	handler := newPolicyRouter(t, func(d *domain.Domain) {
		d.VerifiedAt = nil
	})

	rec := getPolicy(handler, "mta-sts.example.com")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MTA-STS policy not found", rec.Body.String())
}

func TestHandlePolicy_DisabledDomain(t *testing.T) {
	handler := newPolicyRouter(t, func(d *domain.Domain) {
		d.MTASTSEnabled = false
	})

	rec := getPolicy(handler, "mta-sts.example.com")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MTA-STS policy not found", rec.Body.String())
}
