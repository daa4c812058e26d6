package verifier

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modalsource/postal/internal/domain"
	"github.com/modalsource/postal/internal/store"
	"github.com/modalsource/postal/internal/webhook"
)

// Source distinguishes operator-triggered checks from scheduled ones.
// Only automatic checks emit failure webhooks.
type Source string

const (
	SourceManual Source = "manual"
	SourceAuto   Source = "auto"
)

// webhookTimeout bounds a single fire-and-forget delivery attempt.
const webhookTimeout = 30 * time.Second

// Notifier delivers webhook events.
type Notifier interface {
	Send(ctx context.Context, endpoint string, event webhook.Event) error
}

// Service runs verifications against stored domains, persists each run as
// one atomic snapshot, and emits DomainDNSError events for failed
// automatic runs.
type Service struct {
	store    store.Store
	verifier *Verifier
	notifier Notifier
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithNotifier sets the webhook notifier. Without one, failed automatic
// checks are only logged.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// NewService creates a check service.
func NewService(st store.Store, v *Verifier, opts ...ServiceOption) *Service {
	s := &Service{
		store:    st,
		verifier: v,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Check verifies the named domain, persists the snapshot, and returns the
// updated record and result. Individual mechanism failures never fail the
// run; only store access can.
func (s *Service) Check(ctx context.Context, name string, source Source) (*domain.Domain, domain.Result, error) {
	d, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, domain.Result{}, err
	}

	res := s.verifier.Verify(ctx, d)

	if err := s.store.ApplyResult(ctx, d.Name, res); err != nil {
		return nil, domain.Result{}, err
	}

	d.ApplyResult(res)

	log.Info().
		Str("domain", d.Name).
		Str("source", string(source)).
		Bool("dns_ok", res.DNSOk()).
		Msg("dns check complete")

	if source == SourceAuto && !res.DNSOk() && d.WebhookURL != "" {
		s.notifyFailure(d, res)
	}

	return d, res, nil
}

// notifyFailure fires the DomainDNSError webhook in the background. The
// delivery result is logged and never affects the check.
func (s *Service) notifyFailure(d *domain.Domain, res domain.Result) {
	if s.notifier == nil {
		return
	}

	event := webhook.NewDomainDNSError(d, res)
	endpoint := d.WebhookURL
	name := d.Name

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
		defer cancel()

		if err := s.notifier.Send(ctx, endpoint, event); err != nil {
			log.Warn().Err(err).Str("domain", name).Msg("webhook delivery failed")
		}
	}()
}

// RunScheduled re-checks stale domains on the given interval until the
// context is canceled. A domain is stale when it has never been checked
// or its last check is older than the interval.
func (s *Service) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkStale(ctx, time.Now().Add(-interval))
		}
	}
}

// checkStale runs automatic checks for every domain last checked before
// the cutoff.
func (s *Service) checkStale(ctx context.Context, cutoff time.Time) {
	domains, err := s.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing domains for scheduled checks")
		return
	}

	for _, d := range domains {
		if d.DNSCheckedAt != nil && d.DNSCheckedAt.After(cutoff) {
			continue
		}

		if _, _, err := s.Check(ctx, d.Name, SourceAuto); err != nil {
			log.Error().Err(err).Str("domain", d.Name).Msg("scheduled dns check failed")
		}

		if ctx.Err() != nil {
			return
		}
	}
}
