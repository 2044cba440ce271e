package registry

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hakim/snipe/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLookup(t *testing.T) {
	d := NewDirectory(nil, nil)

	com, ok := d.Lookup("com")
	require.True(t, ok)
	assert.Equal(t, "https://rdap.verisign.com/com/v1/", com.RDAPBaseURL)
	assert.Equal(t, "whois.verisign-grs.com:43", com.WhoisAddr())
	assert.Equal(t, "https://rdap.verisign.com/com/v1/domain/abcd.com", com.RDAPURL("abcd.com"))

	dev, ok := d.Lookup("dev")
	require.True(t, ok)
	assert.True(t, dev.HasRDAP())
	assert.False(t, dev.HasWHOIS())

	_, ok = d.Lookup("zz")
	assert.False(t, ok)
}

func TestOverlay(t *testing.T) {
	d := NewDirectory(map[string]Endpoint{
		"com":  {WhoisHost: "127.0.0.1", WhoisPort: 4343, NotFound: []string{"nothing here"}},
		".NEW": {RDAPBaseURL: "http://localhost:9000/rdap"},
	}, nil)

	com, ok := d.Lookup("com")
	require.True(t, ok)
	assert.Equal(t, "https://rdap.verisign.com/com/v1/", com.RDAPBaseURL)
	assert.Equal(t, "127.0.0.1:4343", com.WhoisAddr())
	assert.Equal(t, []string{"nothing here"}, com.NotFound)

	nw, ok := d.Lookup("new")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9000/rdap/domain/x.new", nw.RDAPURL("x.new"))
	assert.Equal(t, "localhost", nw.RegistryHost())
}

func TestParseWhoisAddr(t *testing.T) {
	tests := []struct {
		in      string
		host    string
		port    int
		wantErr bool
	}{
		{"whois.nic.io", "whois.nic.io", 43, false},
		{"127.0.0.1:4343", "127.0.0.1", 4343, false},
		{"", "", 0, false},
		{"host:notaport", "", 0, true},
		{"host:70000", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, port, err := ParseWhoisAddr(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
		})
	}
}

func TestParseReferral(t *testing.T) {
	text := "% IANA WHOIS server\n\ndomain:       IO\n\norganisation: Internet Computer Bureau Limited\n\nwhois:        whois.nic.io\n\nstatus:       ACTIVE\n"
	assert.Equal(t, "whois.nic.io", ParseReferral(text))
	assert.Equal(t, "whois.verisign-grs.com", ParseReferral("refer:        whois.verisign-grs.com\n"))
	assert.Empty(t, ParseReferral("domain: XX\nstatus: ACTIVE\n"))
}

// ianaServer answers TLD queries on a loopback listener
func ianaServer(t *testing.T, reply string) (string, *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	var hits atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			hits.Add(1)
			go func(c net.Conn) {
				defer c.Close()
				_, _ = bufio.NewReader(c).ReadString('\n')
				_, _ = c.Write([]byte(reply))
			}(conn)
		}
	}()
	return ln.Addr().String(), &hits
}

func TestIANAResolverReferralAndBootstrap(t *testing.T) {
	addr, _ := ianaServer(t, "domain: SH\nwhois:        whois.nic.sh\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"1.0","services":[[["sh","ac"],["http://rdap.nic.sh/","https://rdap.nic.sh/"]],[["zz"],["https://rdap.zz/"]]]}`))
	}))
	defer srv.Close()

	r := &IANAResolver{
		Whois:        &transport.WhoisClient{Timeout: 2 * time.Second},
		WhoisAddr:    addr,
		BootstrapURL: srv.URL,
		HTTPClient:   srv.Client(),
	}

	e, err := r.Discover(context.Background(), "sh")
	require.NoError(t, err)
	assert.Equal(t, "whois.nic.sh", e.WhoisHost)
	assert.Equal(t, "https://rdap.nic.sh/", e.RDAPBaseURL)
}

func TestIANAResolverNothingFound(t *testing.T) {
	addr, _ := ianaServer(t, "% This query returned 0 objects.\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"services":[]}`))
	}))
	defer srv.Close()

	r := &IANAResolver{
		Whois:        &transport.WhoisClient{Timeout: 2 * time.Second},
		WhoisAddr:    addr,
		BootstrapURL: srv.URL,
		HTTPClient:   srv.Client(),
	}
	_, err := r.Discover(context.Background(), "qq")
	require.ErrorIs(t, err, ErrNoEndpoint)
}

func TestIANAResolverUnreachableIsNotAVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := &IANAResolver{BootstrapURL: srv.URL, HTTPClient: srv.Client()}
	_, err := r.Discover(context.Background(), "qq")
	require.ErrorIs(t, err, ErrDiscoveryFailed)
	assert.NotErrorIs(t, err, ErrNoEndpoint)
}

func TestIANAResolverTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	r := &IANAResolver{BootstrapURL: srv.URL, HTTPClient: srv.Client(), Timeout: 100 * time.Millisecond}

	start := time.Now()
	_, err := r.Discover(context.Background(), "qq")
	require.ErrorIs(t, err, ErrDiscoveryFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestIANAResolverFetchesBootstrapOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"services":[[["sh","ac"],["https://rdap.nic.sh/"]]]}`))
	}))
	defer srv.Close()

	r := &IANAResolver{BootstrapURL: srv.URL, HTTPClient: srv.Client()}

	var wg sync.WaitGroup
	for _, tld := range []string{"sh", "ac", "sh", "ac"} {
		wg.Add(1)
		go func(tld string) {
			defer wg.Done()
			e, err := r.Discover(context.Background(), tld)
			assert.NoError(t, err)
			assert.Equal(t, "https://rdap.nic.sh/", e.RDAPBaseURL)
		}(tld)
	}
	wg.Wait()
	assert.Equal(t, int32(1), hits.Load())
}

type countingResolver struct {
	calls atomic.Int32
	delay time.Duration
	err   error
	// failures is how many leading calls return err; zero means all of them
	failures int32
}

func (c *countingResolver) Discover(ctx context.Context, tld string) (Endpoint, error) {
	n := c.calls.Add(1)
	time.Sleep(c.delay)
	if c.err != nil && (c.failures == 0 || n <= c.failures) {
		return Endpoint{}, c.err
	}
	return Endpoint{WhoisHost: "whois.nic." + tld}, nil
}

func TestResolveCachesAndDeduplicates(t *testing.T) {
	res := &countingResolver{delay: 50 * time.Millisecond}
	d := NewDirectory(nil, res)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := d.Resolve(context.Background(), "sh")
			assert.NoError(t, err)
			assert.Equal(t, "whois.nic.sh", e.WhoisHost)
		}()
	}
	wg.Wait()

	_, err := d.Resolve(context.Background(), "sh")
	require.NoError(t, err)
	assert.Equal(t, int32(1), res.calls.Load())

	e, ok := d.Lookup("sh")
	require.True(t, ok)
	assert.Equal(t, "sh", e.TLD)
}

func TestResolveCachesMisses(t *testing.T) {
	res := &countingResolver{err: fmt.Errorf("%w: qq", ErrNoEndpoint)}
	d := NewDirectory(nil, res)

	_, err := d.Resolve(context.Background(), "qq")
	require.ErrorIs(t, err, ErrNoEndpoint)
	_, err = d.Resolve(context.Background(), "qq")
	require.ErrorIs(t, err, ErrNoEndpoint)
	assert.Equal(t, int32(1), res.calls.Load())
}

func TestResolveRetriesFailedDiscovery(t *testing.T) {
	timeout := fmt.Errorf("%w: sh: dial tcp: i/o timeout", ErrDiscoveryFailed)
	res := &countingResolver{err: timeout, failures: 1}
	d := NewDirectory(nil, res)

	_, err := d.Resolve(context.Background(), "sh")
	require.ErrorIs(t, err, ErrDiscoveryFailed)

	e, err := d.Resolve(context.Background(), "sh")
	require.NoError(t, err)
	assert.Equal(t, "whois.nic.sh", e.WhoisHost)

	_, err = d.Resolve(context.Background(), "sh")
	require.NoError(t, err)
	assert.Equal(t, int32(2), res.calls.Load())
}

func TestResolveWithoutResolver(t *testing.T) {
	d := NewDirectory(nil, nil)
	_, err := d.Resolve(context.Background(), "qq")
	require.ErrorIs(t, err, ErrNoEndpoint)

	e, err := d.Resolve(context.Background(), "io")
	require.NoError(t, err)
	assert.Equal(t, "whois.nic.io", e.WhoisHost)
}

func TestEntriesSorted(t *testing.T) {
	d := NewDirectory(nil, nil)
	entries := d.Entries()
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].TLD, entries[i].TLD)
	}
}
