package tool

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func pipeConn(t *testing.T) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })
	return client
}

func TestProberRetriesThroughTimeoutsThenSucceeds(t *testing.T) {
	attempts := 0
	var slept []time.Duration

	p := NewProber("api.pushbullet.com", 80)
	p.ping = func(string) {}
	p.dial = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		attempts++
		assert.Equal(t, "tcp", network)
		assert.Equal(t, "api.pushbullet.com:80", addr)
		assert.Equal(t, ProbeDialTimeout, timeout)
		if attempts < 3 {
			return nil, timeoutError{}
		}
		return pipeConn(t), nil
	}
	p.sleep = func(_ context.Context, d time.Duration) {
		slept = append(slept, d)
	}

	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{ProbeBackoff, ProbeBackoff}, slept)
}

func TestProberReturnsNonRetryableErrors(t *testing.T) {
	fatal := errors.New("address already in use")
	p := NewProber("api.pushbullet.com", 80)
	p.ping = func(string) {}
	p.dial = func(string, string, time.Duration) (net.Conn, error) {
		return nil, fatal
	}

	err := p.Wait(context.Background())
	assert.ErrorIs(t, err, fatal)
}

func TestProberStopsOnCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewProber("api.pushbullet.com", 80)
	p.ping = func(string) {}
	p.dial = func(string, string, time.Duration) (net.Conn, error) {
		return nil, timeoutError{}
	}
	p.sleep = func(context.Context, time.Duration) {
		cancel()
	}

	err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryableDialError(t *testing.T) {
	assert.True(t, retryableDialError(&net.DNSError{Err: "no such host", Name: "api.pushbullet.com"}))
	assert.True(t, retryableDialError(timeoutError{}))
	assert.True(t, retryableDialError(&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}))

	assert.False(t, retryableDialError(errors.New("network is unreachable")))
}
