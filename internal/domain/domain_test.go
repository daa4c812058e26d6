package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		domain  Domain
		wantErr error
	}{
		{
			name:   "valid minimal",
			domain: Domain{Name: "example.com"},
		},
		{
			name: "valid with mta-sts",
			domain: Domain{
				Name:          "example.com",
				MTASTSEnabled: true,
				MTASTSMode:    MTASTSModeEnforce,
				MTASTSMaxAge:  86400,
			},
		},
		{
			name:    "missing name",
			domain:  Domain{},
			wantErr: ErrNameRequired,
		},
		{
			name:    "bad mode",
			domain:  Domain{Name: "example.com", MTASTSMode: "aggressive"},
			wantErr: ErrInvalidMTASTSMode,
		},
		{
			name:    "negative max age",
			domain:  Domain{Name: "example.com", MTASTSMaxAge: -1},
			wantErr: ErrInvalidMTASTSMaxAge,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.domain.Validate()

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestMTASTSModeValid(t *testing.T) {
	assert.True(t, MTASTSModeNone.Valid())
	assert.True(t, MTASTSModeTesting.Valid())
	assert.True(t, MTASTSModeEnforce.Valid())
	assert.False(t, MTASTSMode("").Valid())
	assert.False(t, MTASTSMode("strict").Valid())
}

func TestApplyResult(t *testing.T) {
	d := &Domain{
		Name:      "example.com",
		SPFStatus: StatusInvalid,
		SPFError:  "stale diagnostic",
	}

	res := Result{
		SPF:        Check{Status: StatusOK},
		DKIM:       Check{Status: StatusMissing, Error: "no record"},
		MX:         Check{Status: StatusOK},
		ReturnPath: Check{Status: StatusOK},
		DMARC:      Check{Status: StatusMissing},
		MTASTS:     Check{Status: StatusInvalid, Error: "fetch failed"},
		CheckedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	d.ApplyResult(res)

	assert.Equal(t, StatusOK, d.SPFStatus)
	assert.Empty(t, d.SPFError, "a clean check must clear the previous diagnostic")
	assert.Equal(t, StatusMissing, d.DKIMStatus)
	assert.Equal(t, "no record", d.DKIMError)
	assert.Equal(t, StatusInvalid, d.MTASTSStatus)
	assert.Equal(t, "fetch failed", d.MTASTSError)
	assert.Empty(t, d.TLSRPTStatus, "unchecked mechanisms reset to unchecked")
	require.NotNil(t, d.DNSCheckedAt)
	assert.Equal(t, res.CheckedAt, *d.DNSCheckedAt)
}

func TestResultDNSOk(t *testing.T) {
	allOK := Result{
		SPF:        Check{Status: StatusOK},
		DKIM:       Check{Status: StatusOK},
		MX:         Check{Status: StatusOK},
		ReturnPath: Check{Status: StatusOK},
		DMARC:      Check{Status: StatusOK},
	}

	cases := []struct {
		name   string
		mutate func(*Result)
		want   bool
	}{
		{
			name:   "all ok",
			mutate: func(*Result) {},
			want:   true,
		},
		{
			name:   "mx missing tolerated",
			mutate: func(r *Result) { r.MX = Check{Status: StatusMissing} },
			want:   true,
		},
		{
			name:   "return path missing tolerated",
			mutate: func(r *Result) { r.ReturnPath = Check{Status: StatusMissing} },
			want:   true,
		},
		{
			name:   "dmarc missing tolerated",
			mutate: func(r *Result) { r.DMARC = Check{Status: StatusMissing} },
			want:   true,
		},
		{
			name:   "spf missing fails",
			mutate: func(r *Result) { r.SPF = Check{Status: StatusMissing} },
			want:   false,
		},
		{
			name:   "dkim invalid fails",
			mutate: func(r *Result) { r.DKIM = Check{Status: StatusInvalid} },
			want:   false,
		},
		{
			name:   "mx invalid fails",
			mutate: func(r *Result) { r.MX = Check{Status: StatusInvalid} },
			want:   false,
		},
		{
			name:   "mta-sts invalid does not fail",
			mutate: func(r *Result) { r.MTASTS = Check{Status: StatusInvalid} },
			want:   true,
		},
		{
			name:   "tls-rpt invalid does not fail",
			mutate: func(r *Result) { r.TLSRPT = Check{Status: StatusInvalid} },
			want:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := allOK
			tc.mutate(&res)

			assert.Equal(t, tc.want, res.DNSOk())
		})
	}
}

func TestNewDKIMIdentifierString(t *testing.T) {
	seen := map[string]bool{}

	for range 20 {
		id := NewDKIMIdentifierString()
		require.Len(t, id, 6)

		for _, c := range id {
			assert.True(t, c >= 'A' && c <= 'Z', "identifier must be uppercase letters, got %q", id)
		}

		seen[id] = true
	}

	assert.Greater(t, len(seen), 1, "identifiers should vary between calls")
}
