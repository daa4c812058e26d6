package dnsresolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestDNSServer launches a local DNS server that responds with preconfigured records
func startTestDNSServer(t *testing.T, handler dns.Handler) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	server := &dns.Server{
		PacketConn: pc,
		Handler:    handler,
	}

	go func() { _ = server.ActivateAndServe() }()

	t.Cleanup(func() { _ = server.Shutdown() })

	return pc.LocalAddr().String()
}

// recordHandler serves a fixed answer section per query type
type recordHandler struct {
	answers map[uint16][]dns.RR
}

func (h *recordHandler) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	msg := new(dns.Msg)
	msg.SetReply(r)
	msg.Authoritative = true

	if len(r.Question) > 0 {
		msg.Answer = h.answers[r.Question[0].Qtype]
	}

	_ = w.WriteMsg(msg)
}

func newTestClient(t *testing.T, handler dns.Handler) *Client {
	t.Helper()

	addr := startTestDNSServer(t, handler)

	return New(WithServer(addr), WithTimeout(2*time.Second))
}

func TestTXT(t *testing.T) {
	handler := &recordHandler{answers: map[uint16][]dns.RR{
		dns.TypeTXT: {
			&dns.TXT{
				Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 300},
				Txt: []string{"v=spf1 include:spf.postal", ".example.com ~all"},
			},
			&dns.TXT{
				Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 300},
				Txt: []string{"google-site-verification=abc"},
			},
		},
	}}

	c := newTestClient(t, handler)

	records, err := c.TXT(context.Background(), "example.com")
	require.NoError(t, err)

	// multi-part strings are joined into one record
	assert.Equal(t, []string{"v=spf1 include:spf.postal.example.com ~all", "google-site-verification=abc"}, records)
}

func TestTXT_NoRecords(t *testing.T) {
	c := newTestClient(t, &recordHandler{})

	records, err := c.TXT(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCNAME(t *testing.T) {
	handler := &recordHandler{answers: map[uint16][]dns.RR{
		dns.TypeCNAME: {
			&dns.CNAME{
				Hdr:    dns.RR_Header{Name: "psrp.example.com.", Rrtype: dns.TypeCNAME, Class: dns.ClassINET, Ttl: 300},
				Target: "rp.postal.example.com.",
			},
		},
	}}

	c := newTestClient(t, handler)

	records, err := c.CNAME(context.Background(), "psrp.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"rp.postal.example.com"}, records)
}

func TestMX(t *testing.T) {
	handler := &recordHandler{answers: map[uint16][]dns.RR{
		dns.TypeMX: {
			&dns.MX{
				Hdr:        dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 300},
				Preference: 10,
				Mx:         "MX1.Postal.Example.Com.",
			},
			&dns.MX{
				Hdr:        dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 300},
				Preference: 20,
				Mx:         "mx2.postal.example.com.",
			},
		},
	}}

	c := newTestClient(t, handler)

	records, err := c.MX(context.Background(), "example.com")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, MX{Priority: 10, Host: "mx1.postal.example.com"}, records[0])
	assert.Equal(t, MX{Priority: 20, Host: "mx2.postal.example.com"}, records[1])
}

func TestForDomain_FallsBackWithoutNS(t *testing.T) {
	c := newTestClient(t, &recordHandler{})

	resolver := c.ForDomain(context.Background(), "example.com")
	assert.Same(t, c, resolver)
}

func TestForDomain_UsesAuthoritativeServer(t *testing.T) {
	handler := &recordHandler{answers: map[uint16][]dns.RR{
		dns.TypeNS: {
			&dns.NS{
				Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 300},
				Ns:  "ns1.example.com.",
			},
		},
	}}

	c := newTestClient(t, handler)

	resolver := c.ForDomain(context.Background(), "example.com")
	require.NotNil(t, resolver)

	authoritative, ok := resolver.(*Client)
	require.True(t, ok)
	assert.Equal(t, "ns1.example.com:53", authoritative.server)
}
