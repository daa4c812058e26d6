// Package verifier checks the DNS and HTTPS artifacts a mail-sending
// domain must publish: SPF, DKIM, MX, return path, DMARC, MTA-STS, and
// TLS-RPT. Each mechanism yields a status and diagnostic; resolver and
// transport failures never escape a checker.
package verifier

import (
	"context"
	"sync"
	"time"

	"github.com/modalsource/postal/internal/dnsresolver"
	"github.com/modalsource/postal/internal/domain"
)

// Fetcher validates a domain's MTA-STS policy file over HTTPS.
type Fetcher interface {
	Fetch(ctx context.Context, domainName string) FetchResult
}

// Verifier runs the mechanism checks for a domain against an immutable
// configuration snapshot.
type Verifier struct {
	cfg         domain.RecordConfig
	resolver    dnsresolver.Resolver
	fetcher     Fetcher
	perDomainNS bool
}

// VerifierOption configures the Verifier.
type VerifierOption func(*Verifier)

// WithResolver overrides the DNS resolver used for lookups.
func WithResolver(r dnsresolver.Resolver) VerifierOption {
	return func(v *Verifier) {
		if r != nil {
			v.resolver = r
		}
	}
}

// WithFetcher overrides the MTA-STS policy fetcher.
func WithFetcher(f Fetcher) VerifierOption {
	return func(v *Verifier) {
		if f != nil {
			v.fetcher = f
		}
	}
}

// WithPerDomainNameservers routes each domain's lookups through its own
// authoritative nameservers instead of the fixed resolver.
func WithPerDomainNameservers(enabled bool) VerifierOption {
	return func(v *Verifier) {
		v.perDomainNS = enabled
	}
}

// New creates a verifier for the given system-wide record configuration.
func New(cfg domain.RecordConfig, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		cfg:      cfg,
		resolver: dnsresolver.New(),
		fetcher:  NewPolicyFetcher(),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Verify runs every applicable mechanism check for the domain and returns
// the result snapshot. The five always-on checks and the two conditional
// checks run concurrently; each writes a distinct field.
func (v *Verifier) Verify(ctx context.Context, d *domain.Domain) domain.Result {
	res := domain.Result{CheckedAt: time.Now().UTC()}
	resolver := v.resolverFor(ctx, d)

	var wg sync.WaitGroup

	wg.Go(func() { res.SPF = v.checkSPF(ctx, resolver, d) })
	wg.Go(func() { res.DKIM = v.checkDKIM(ctx, resolver, d) })
	wg.Go(func() { res.MX = v.checkMX(ctx, resolver, d) })
	wg.Go(func() { res.ReturnPath = v.checkReturnPath(ctx, resolver, d) })
	wg.Go(func() { res.DMARC = v.checkDMARC(ctx, resolver, d) })

	if d.MTASTSEnabled {
		wg.Go(func() { res.MTASTS = v.checkMTASTS(ctx, resolver, d) })
	}

	if d.TLSRPTEnabled {
		wg.Go(func() { res.TLSRPT = v.checkTLSRPT(ctx, resolver, d) })
	}

	wg.Wait()

	return res
}

// resolverFor picks the resolver for a domain, honoring the per-domain
// authoritative option when the underlying resolver supports it.
func (v *Verifier) resolverFor(ctx context.Context, d *domain.Domain) dnsresolver.Resolver {
	if !v.perDomainNS {
		return v.resolver
	}

	lookuper, ok := v.resolver.(dnsresolver.AuthoritativeLookuper)
	if !ok {
		return v.resolver
	}

	return lookuper.ForDomain(ctx, d.Name)
}

// lookupTXT wraps a TXT query, folding resolver failures into an empty
// record set since absence and transport failure are not distinguished.
func lookupTXT(ctx context.Context, r dnsresolver.Resolver, name string) []string {
	records, err := r.TXT(ctx, name)
	if err != nil {
		return nil
	}

	return records
}

// lookupCNAME wraps a CNAME query with the same failure folding.
func lookupCNAME(ctx context.Context, r dnsresolver.Resolver, name string) []string {
	records, err := r.CNAME(ctx, name)
	if err != nil {
		return nil
	}

	return records
}
