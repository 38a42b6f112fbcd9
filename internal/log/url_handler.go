package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
)

// MaskValue replaces redacted credential material in log output.
const MaskValue = "***REDACTED***"

// sensitiveParams are query-parameter names whose values are redacted
// from logged URLs. Matching is case-insensitive.
var sensitiveParams = map[string]bool{
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"auth":          true,
	"authorization": true,
	"api_key":       true,
	"apikey":        true,
	"key":           true,
	"secret":        true,
	"password":      true,
	"passwd":        true,
	"session":       true,
	"session_id":    true,
	"sessionid":     true,
	"sid":           true,
	"jsessionid":    true,
	"signature":     true,
	"sig":           true,
}

// URLHandler wraps an slog.Handler and scrubs credentials embedded in
// URL-shaped attribute values.
//
// Design decision: a handler wrapper rather than sanitizing at each
// call site. The frontier logs URLs from many places (scheduler drops,
// dup-filter hits, queue errors) and a single choke point cannot be
// forgotten in one of them.
type URLHandler struct {
	// handler is the underlying slog handler receiving scrubbed records.
	handler slog.Handler
}

// NewURLHandler creates a URLHandler wrapping handler. If handler is
// nil, slog.Default().Handler() is used.
func NewURLHandler(handler slog.Handler) *URLHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &URLHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *URLHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle scrubs the record's attributes and passes it on.
func (h *URLHandler) Handle(ctx context.Context, r slog.Record) error {
	scrubbed := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		scrubbed.AddAttrs(h.scrubAttr(a))
		return true
	})
	return h.handler.Handle(ctx, scrubbed)
}

// WithAttrs returns a new handler with scrubbed attributes added.
func (h *URLHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		scrubbed[i] = h.scrubAttr(a)
	}
	return &URLHandler{handler: h.handler.WithAttrs(scrubbed)}
}

// WithGroup returns a new handler with the given group name.
func (h *URLHandler) WithGroup(name string) slog.Handler {
	return &URLHandler{handler: h.handler.WithGroup(name)}
}

// scrubAttr scrubs a single attribute, recursing into groups.
func (h *URLHandler) scrubAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		scrubbed := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			scrubbed[i] = h.scrubAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(scrubbed...)}
	}

	if a.Value.Kind() == slog.KindString {
		if scrubbed, changed := ScrubURL(a.Value.String()); changed {
			return slog.String(a.Key, scrubbed)
		}
	}

	return a
}

// ScrubURL redacts credential material from a URL-shaped string:
// the password part of userinfo and the values of sensitive query
// parameters. The second return reports whether anything was redacted.
// Non-URL strings are returned unchanged.
func ScrubURL(s string) (string, bool) {
	if !strings.Contains(s, "://") {
		return s, false
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s, false
	}

	changed := false

	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), MaskValue)
			changed = true
		}
	}

	if u.RawQuery != "" {
		values, err := url.ParseQuery(u.RawQuery)
		if err == nil {
			for name := range values {
				if sensitiveParams[strings.ToLower(name)] {
					values.Set(name, MaskValue)
					changed = true
				}
			}
			if changed {
				u.RawQuery = values.Encode()
			}
		}
	}

	if !changed {
		return s, false
	}
	// url.UserPassword escapes the mask's asterisks; undo that so the
	// redaction marker stays recognizable in log output.
	return strings.ReplaceAll(u.String(), url.QueryEscape(MaskValue), MaskValue), true
}

// NewLogger creates a text logger with URL scrubbing.
// verbose selects Debug level, otherwise Warn.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewURLHandler(textHandler))
}
