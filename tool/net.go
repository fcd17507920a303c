package tool

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

var (
	// ProbeDialTimeout bounds a single TCP connection attempt.
	ProbeDialTimeout = 30 * time.Second
	// ProbeBackoff is the fixed sleep between failed attempts.
	ProbeBackoff = 10 * time.Second

	icmpProbeTimeout = 2 * time.Second
)

// Prober blocks until a TCP connection to the push service endpoint
// succeeds. Retries are unbounded so the daemon rides out sleep/wake
// and roaming cycles unattended.
type Prober struct {
	Host string
	Port int

	// injectable for tests; nil means the real implementation
	dial  func(network, addr string, timeout time.Duration) (net.Conn, error)
	sleep func(ctx context.Context, d time.Duration)
	ping  func(host string)
}

func NewProber(host string, port int) *Prober {
	return &Prober{Host: host, Port: port}
}

// Wait loops until one connection attempt succeeds, sleeping
// ProbeBackoff after each transient failure. Transient means address
// resolution failure, timeout or connection refused; anything else is
// returned to the caller. Returns ctx.Err() when the context is
// cancelled during backoff.
func (p *Prober) Wait(ctx context.Context) error {
	addr := net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.quickICMPProbe()

		DefaultLogger.Debugf("Trying connection to %s", addr)
		conn, err := p.dialFunc()("tcp", addr, ProbeDialTimeout)
		if err == nil {
			if closeErr := conn.Close(); closeErr != nil {
				DefaultLogger.Debugf("Failed to close probe connection: %v", closeErr)
			}
			DefaultLogger.Debug("Connection successful")
			return nil
		}
		if !retryableDialError(err) {
			return err
		}

		DefaultLogger.Debugf("Connection failed (%v). Retrying in %s", err, ProbeBackoff)
		p.sleepFunc()(ctx, ProbeBackoff)
	}
}

// retryableDialError reports whether err belongs to the transient
// failure classes the prober recovers from on its own.
func retryableDialError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

// quickICMPProbe pings the API host once for diagnostics. The TCP dial
// stays the authoritative gate; ICMP may be filtered on many networks.
func (p *Prober) quickICMPProbe() {
	if p.ping != nil {
		p.ping(p.Host)
		return
	}
	pinger, err := probing.NewPinger(p.Host)
	if err != nil {
		DefaultLogger.Debugf("ICMP probe setup failed: %v", err)
		return
	}
	pinger.Count = 1
	pinger.Timeout = icmpProbeTimeout
	pinger.SetPrivileged(false)
	if err := pinger.Run(); err != nil {
		DefaultLogger.Debugf("ICMP probe failed: %v", err)
		return
	}
	stats := pinger.Statistics()
	DefaultLogger.Debugf("ICMP probe: %d/%d replies from %s", stats.PacketsRecv, stats.PacketsSent, p.Host)
}

func (p *Prober) dialFunc() func(network, addr string, timeout time.Duration) (net.Conn, error) {
	if p.dial != nil {
		return p.dial
	}
	return net.DialTimeout
}

func (p *Prober) sleepFunc() func(ctx context.Context, d time.Duration) {
	if p.sleep != nil {
		return p.sleep
	}
	return func(ctx context.Context, d time.Duration) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
}
