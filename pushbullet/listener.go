package pushbullet

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bulletd/bulletd/tool"
	"github.com/bulletd/bulletd/types"
)

// The stream sends a "nop" heartbeat roughly every 30 seconds; a read
// deadline a few heartbeats out turns a silently dead connection into
// a read error the supervisor can recover from.
const (
	handshakeTimeout = 30 * time.Second
	readDeadline     = 95 * time.Second
)

// Listener is one subscription to the realtime event stream. Events are
// handed to onPush synchronously in delivery order; any error from the
// transport or from onPush ends RunForever through onError.
type Listener struct {
	streamURL string
	token     string
	dialer    *websocket.Dialer
	onPush    func(types.Event) error
	onError   func(error) error

	sessionID string
	closed    atomic.Bool
	closeOnce sync.Once

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewListener builds a subscription bound to its event and error
// callbacks. Nothing is dialed until RunForever.
func NewListener(cfg types.AppConfig, token string, onPush func(types.Event) error, onError func(error) error) *Listener {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	if cfg.ProxyHost != "" {
		proxyURL := &url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("%s:%d", cfg.ProxyHost, cfg.ProxyPort),
		}
		dialer.Proxy = http.ProxyURL(proxyURL)
	}
	return &Listener{
		streamURL: cfg.StreamURL,
		token:     token,
		dialer:    dialer,
		onPush:    onPush,
		onError:   onError,
		sessionID: uuid.NewString(),
	}
}

// SessionID identifies this subscription in logs and the status API.
func (l *Listener) SessionID() string {
	return l.sessionID
}

// RunForever dials the stream and blocks reading events until the
// connection fails, a callback errors, or Close is called. A Close-
// triggered return is nil; everything else goes through onError.
func (l *Listener) RunForever() error {
	conn, resp, err := l.dialer.Dial(l.streamURL+"/"+l.token, nil)
	if err != nil {
		if resp != nil {
			return l.onError(fmt.Errorf("stream handshake failed with status %d: %v", resp.StatusCode, err))
		}
		return l.onError(fmt.Errorf("stream dial failed: %v", err))
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	if l.closed.Load() {
		// Close raced with the handshake; treat as a clean shutdown.
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Debugf("Failed to close stream: %v", err)
		}
		return nil
	}
	tool.DefaultLogger.Debugf("Stream connected, session %s", l.sessionID)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return l.runError(fmt.Errorf("failed to set read deadline: %v", err))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return l.runError(fmt.Errorf("stream read failed: %v", err))
		}

		var event types.Event
		if err := sonic.Unmarshal(data, &event); err != nil {
			return l.runError(fmt.Errorf("failed to parse stream event: %v", err))
		}
		if event.Type == "nop" {
			tool.DefaultLogger.Debugf("Heartbeat on session %s", l.sessionID)
			continue
		}
		if err := l.onPush(event); err != nil {
			return l.runError(err)
		}
	}
}

// runError suppresses errors caused by a deliberate Close.
func (l *Listener) runError(err error) error {
	if l.closed.Load() {
		return nil
	}
	return l.onError(err)
}

// Close shuts the subscription down. Safe to call from another
// goroutine and more than once; it unblocks a pending RunForever read.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.mu.Lock()
		conn := l.conn
		l.mu.Unlock()
		if conn == nil {
			return
		}
		deadline := time.Now().Add(time.Second)
		if writeErr := conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline); writeErr != nil {
			tool.DefaultLogger.Debugf("Failed to send close frame: %v", writeErr)
		}
		err = conn.Close()
	})
	return err
}
