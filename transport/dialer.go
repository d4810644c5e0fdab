package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

var ErrRestrictedAddress = errors.New("transport: destination address is restricted")

const (
	defaultDialTimeout   = 5 * time.Second
	defaultDialKeepAlive = 30 * time.Second
)

// DefaultRestrictedPrefixes covers loopback, private, link-local, CGNAT and
// unspecified ranges for IPv4 and IPv6.
func DefaultRestrictedPrefixes() []netip.Prefix {
	return []netip.Prefix{
		netip.MustParsePrefix("0.0.0.0/8"),
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("100.64.0.0/10"),
		netip.MustParsePrefix("127.0.0.0/8"),
		netip.MustParsePrefix("169.254.0.0/16"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("192.168.0.0/16"),
		netip.MustParsePrefix("::1/128"),
		netip.MustParsePrefix("::/128"),
		netip.MustParsePrefix("fc00::/7"),
		netip.MustParsePrefix("fe80::/10"),
	}
}

// RestrictedDialer refuses connections to addresses inside Denied. The check
// runs on the resolved address, after DNS, so hostnames cannot bypass it.
type RestrictedDialer struct {
	Denied    []netip.Prefix
	Timeout   time.Duration
	KeepAlive time.Duration
}

func NewRestrictedDialer(denied ...netip.Prefix) *RestrictedDialer {
	if len(denied) == 0 {
		denied = DefaultRestrictedPrefixes()
	}
	return &RestrictedDialer{
		Denied:    append([]netip.Prefix(nil), denied...),
		Timeout:   defaultDialTimeout,
		KeepAlive: defaultDialKeepAlive,
	}
}

func (d *RestrictedDialer) DialContext(ctx context.Context, network string, address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   defaultDialTimeout,
		KeepAlive: defaultDialKeepAlive,
		Control:   d.control,
	}
	if d != nil && d.Timeout > 0 {
		dialer.Timeout = d.Timeout
	}
	if d != nil && d.KeepAlive > 0 {
		dialer.KeepAlive = d.KeepAlive
	}
	return dialer.DialContext(ctx, network, address)
}

// Restricted reports whether addr falls inside a denied prefix.
func (d *RestrictedDialer) Restricted(addr netip.Addr) bool {
	if d == nil || !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range d.Denied {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func (d *RestrictedDialer) control(_ string, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: unparseable address %q", ErrRestrictedAddress, host)
	}
	if d.Restricted(addr) {
		return fmt.Errorf("%w: %s", ErrRestrictedAddress, addr)
	}
	return nil
}

// NewRestrictedHTTPClient returns a client whose connections go through
// dialer. Proxies are disabled so the dialed address is the destination.
func NewRestrictedHTTPClient(dialer *RestrictedDialer, timeout time.Duration) *http.Client {
	if dialer == nil {
		dialer = NewRestrictedDialer()
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	var roundTripper *http.Transport
	if ok {
		roundTripper = base.Clone()
	} else {
		roundTripper = &http.Transport{}
	}
	roundTripper.Proxy = nil
	roundTripper.DialContext = dialer.DialContext
	return &http.Client{Transport: roundTripper, Timeout: timeout}
}
