package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/isquat/isquat/internal/auth"
)

// auditLog records who did what to which resource. Sign-ins, submissions,
// rejected images and admin decisions all pass through here; detail is
// appended as extra key/value pairs.
func auditLog(r *http.Request, action, resourceType, resourceID string, detail ...any) {
	attrs := make([]any, 0, 14+len(detail))
	attrs = append(attrs,
		"action", action,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"client_ip", clientIP(r),
		"request_id", RequestIDFromContext(r.Context()),
	)
	if u := auth.UserFromContext(r.Context()); u != nil {
		attrs = append(attrs, "user_id", u.ID, "user_role", u.Role)
	} else {
		attrs = append(attrs, "user_id", "")
	}
	attrs = append(attrs, detail...)
	slog.Info("audit", attrs...)
}

// clientIP prefers the first X-Forwarded-For hop, then the peer address
// without its port.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hop, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(hop)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
