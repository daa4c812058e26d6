package verifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modalsource/postal/internal/domain"
	"github.com/modalsource/postal/internal/store"
	"github.com/modalsource/postal/internal/webhook"
)

// recordingNotifier captures webhook deliveries for assertions
type recordingNotifier struct {
	mu        sync.Mutex
	endpoints []string
	events    []webhook.Event
	delivered chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{delivered: make(chan struct{}, 8)}
}

func (r *recordingNotifier) Send(_ context.Context, endpoint string, event webhook.Event) error {
	r.mu.Lock()
	r.endpoints = append(r.endpoints, endpoint)
	r.events = append(r.events, event)
	r.mu.Unlock()

	r.delivered <- struct{}{}

	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

// newTestService wires a service against the fixture and returns its parts
func newTestService(t *testing.T, fixture *dnsFixture) (*Service, *store.Memory, *recordingNotifier) {
	t.Helper()

	v, _ := newTestVerifier(t, fixture)
	st := store.NewMemory()
	notifier := newRecordingNotifier()

	return NewService(st, v, WithNotifier(notifier)), st, notifier
}

func createTestDomain(t *testing.T, st *store.Memory, mutate func(*domain.Domain)) *domain.Domain {
	t.Helper()

	d := testDomain()
	if mutate != nil {
		mutate(d)
	}

	require.NoError(t, st.Create(context.Background(), d))

	return d
}

func TestServiceCheck_PersistsResult(t *testing.T) {
	svc, st, notifier := newTestService(t, goodFixture())
	createTestDomain(t, st, nil)

	d, res, err := svc.Check(context.Background(), "example.com", SourceManual)
	require.NoError(t, err)

	assert.True(t, res.DNSOk())
	assert.Equal(t, domain.StatusOK, d.SPFStatus)
	require.NotNil(t, d.DNSCheckedAt)

	stored, err := st.Get(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOK, stored.SPFStatus)
	assert.Equal(t, domain.StatusOK, stored.DKIMStatus)
	require.NotNil(t, stored.DNSCheckedAt)

	assert.Zero(t, notifier.count(), "manual checks never emit webhooks")
}

func TestServiceCheck_UnknownDomain(t *testing.T) {
	svc, _, _ := newTestService(t, goodFixture())

	_, _, err := svc.Check(context.Background(), "unknown.example.com", SourceManual)

	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestServiceCheck_AutoFailureFiresWebhook(t *testing.T) {
	svc, st, notifier := newTestService(t, &dnsFixture{})
	createTestDomain(t, st, func(d *domain.Domain) {
		d.WebhookURL = "https://hooks.example.com/dns"
	})

	_, res, err := svc.Check(context.Background(), "example.com", SourceAuto)
	require.NoError(t, err)
	require.False(t, res.DNSOk())

	select {
	case <-notifier.delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a webhook delivery")
	}

	require.Equal(t, 1, notifier.count())
	assert.Equal(t, "https://hooks.example.com/dns", notifier.endpoints[0])
	assert.Equal(t, webhook.EventDomainDNSError, notifier.events[0].Event)

	payload, ok := notifier.events[0].Payload.(webhook.DomainDNSErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "example.com", payload.Domain)
	assert.Equal(t, domain.StatusMissing, payload.SPFStatus)
}

func TestServiceCheck_AutoFailureWithoutURL(t *testing.T) {
	svc, st, notifier := newTestService(t, &dnsFixture{})
	createTestDomain(t, st, nil)

	_, res, err := svc.Check(context.Background(), "example.com", SourceAuto)
	require.NoError(t, err)
	require.False(t, res.DNSOk())

	select {
	case <-notifier.delivered:
		t.Fatal("no webhook should fire without a configured URL")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServiceCheck_AutoSuccessNoWebhook(t *testing.T) {
	svc, st, notifier := newTestService(t, goodFixture())
	createTestDomain(t, st, func(d *domain.Domain) {
		d.WebhookURL = "https://hooks.example.com/dns"
	})

	_, res, err := svc.Check(context.Background(), "example.com", SourceAuto)
	require.NoError(t, err)
	require.True(t, res.DNSOk())

	select {
	case <-notifier.delivered:
		t.Fatal("no webhook should fire for a passing run")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCheckStale(t *testing.T) {
	svc, st, _ := newTestService(t, goodFixture())

	createTestDomain(t, st, nil)

	fresh := testDomain()
	fresh.Name = "fresh.example.com"
	require.NoError(t, st.Create(context.Background(), fresh))

	recent := domain.Result{CheckedAt: time.Now().UTC()}
	require.NoError(t, st.ApplyResult(context.Background(), fresh.Name, recent))

	svc.checkStale(context.Background(), time.Now().Add(-time.Hour))

	stale, err := st.Get(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOK, stale.SPFStatus, "never-checked domain should be re-checked")

	skipped, err := st.Get(context.Background(), fresh.Name)
	require.NoError(t, err)
	assert.Empty(t, skipped.SPFStatus, "recently checked domain should be skipped")
}
