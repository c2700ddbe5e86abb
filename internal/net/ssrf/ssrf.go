// Package ssrf validates outbound request targets against Server-Side
// Request Forgery. The guard is hostname-literal based: it rejects known
// localhost aliases, internal suffixes, and private or link-local IP
// literals by string and address inspection only. It deliberately performs
// no DNS resolution, so a public hostname that resolves to a private
// address at request time is not caught. Callers that need a stricter
// boundary must resolve and re-validate themselves.
package ssrf

import (
	"fmt"
	"net/netip"
	"strings"
)

// BlockedError is returned when a target is rejected by the guard.
type BlockedError struct {
	Message string
}

func (e *BlockedError) Error() string { return e.Message }

// NewBlockedError creates a BlockedError with the given message.
func NewBlockedError(message string) *BlockedError {
	return &BlockedError{Message: message}
}

// blockedHostnames are exact hostnames that are always rejected.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
}

// blockedSuffixes mark hostnames that point at internal or local resources.
var blockedSuffixes = []string{
	".localhost",
	".local",
	".internal",
}

// normalizeHostname lowercases, trims whitespace and trailing dots, and
// unwraps IPv6 brackets.
func normalizeHostname(hostname string) string {
	h := strings.ToLower(strings.TrimSpace(hostname))
	h = strings.TrimSuffix(h, ".")
	if strings.HasPrefix(h, "[") && strings.HasSuffix(h, "]") {
		h = h[1 : len(h)-1]
	}
	return h
}

// IsBlockedHostname reports whether the hostname matches a blocked name or
// suffix.
func IsBlockedHostname(hostname string) bool {
	h := normalizeHostname(hostname)
	if h == "" {
		return false
	}
	if blockedHostnames[h] {
		return true
	}
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(h, suffix) {
			return true
		}
	}
	return false
}

// IsPrivateAddr reports whether the string is an IP literal in a private,
// loopback, link-local, or otherwise non-public range. Non-IP strings
// return false.
func IsPrivateAddr(host string) bool {
	addr, err := netip.ParseAddr(normalizeHostname(host))
	if err != nil {
		return false
	}
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified() ||
		addr.IsMulticast()
}

// ValidateHost checks a hostname or IP literal against the guard rules.
// It returns a BlockedError for rejected targets and nil otherwise.
func ValidateHost(host string) error {
	h := normalizeHostname(host)
	if h == "" {
		return NewBlockedError("empty hostname")
	}
	if IsBlockedHostname(h) {
		return NewBlockedError(fmt.Sprintf("blocked hostname: %s", h))
	}
	if IsPrivateAddr(h) {
		return NewBlockedError("blocked: private or internal address")
	}
	return nil
}
