// Package notify delivers desktop notifications over the session bus.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"golang.org/x/time/rate"

	"github.com/bulletd/bulletd/tool"
)

const (
	notifyInterface = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"

	// AppName identifies this daemon on the notification bus.
	AppName = "bulletd"
	// ExpireTimeoutMs is the fixed auto-expire duration per notification.
	ExpireTimeoutMs = 5000
	// bodyWrapWidth mirrors classic terminal fill width.
	bodyWrapWidth = 70
)

// Sink sends notifications through org.freedesktop.Notifications. A
// rate limiter in front absorbs bursts after reconnects; delivery
// itself is fire-and-forget with no replace id, actions or hints.
type Sink struct {
	conn    *dbus.Conn
	icon    string
	limiter *rate.Limiter
}

// NewSink connects to the session bus. A missing notification service
// is a fatal condition for this daemon, surfaced here.
func NewSink(icon string, perSecond float64, burst int) (*Sink, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %v", err)
	}
	if burst < 1 {
		burst = 1
	}
	return &Sink{
		conn:    conn,
		icon:    icon,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}, nil
}

// Notify trims and wraps the text, then issues one Notify call. Blocks
// on the rate limiter when notifications arrive faster than allowed.
func (s *Sink) Notify(title, body string) error {
	if err := s.limiter.Wait(context.Background()); err != nil {
		return fmt.Errorf("notification rate limiter: %v", err)
	}

	title = strings.TrimSpace(title)
	body = wrap(strings.TrimSpace(body), bodyWrapWidth)

	tool.DefaultLogger.Debugf("Sending notification via D-Bus: %s", title)
	obj := s.conn.Object(notifyInterface, dbus.ObjectPath(notifyPath))
	call := obj.Call(notifyInterface+".Notify", 0,
		AppName, uint32(0), s.icon, title, body,
		[]string{}, map[string]dbus.Variant{}, int32(ExpireTimeoutMs))
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %v", call.Err)
	}
	return nil
}

// wrap greedily fills words into lines of at most width characters.
// Words longer than the width stay on their own line.
func wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}
	var b strings.Builder
	lineLen := 0
	for i, word := range words {
		switch {
		case i == 0:
			b.WriteString(word)
			lineLen = len(word)
		case lineLen+1+len(word) > width:
			b.WriteByte('\n')
			b.WriteString(word)
			lineLen = len(word)
		default:
			b.WriteByte(' ')
			b.WriteString(word)
			lineLen += 1 + len(word)
		}
	}
	return b.String()
}
