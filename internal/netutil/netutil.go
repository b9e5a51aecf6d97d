package netutil

import (
	"net/netip"
	"strings"
	"unicode/utf8"
)

const MaxDeviceInfoLength = 512

// NormalizeIP accepts a bare IP or an address with a port (for example
// "192.0.2.4:1234" or "[2001:db8::1]:443") and returns the canonical IP
// portion without zone identifiers. The second return value reports
// whether the input parsed as an IP at all.
func NormalizeIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if addrPort, err := netip.ParseAddrPort(raw); err == nil {
		addr := addrPort.Addr().WithZone("")
		if addr.IsValid() {
			return addr.String(), true
		}
	}
	if addr, err := netip.ParseAddr(raw); err == nil {
		addr = addr.WithZone("")
		if addr.IsValid() {
			return addr.String(), true
		}
	}
	// Bracketed IPv6 with a non-numeric port, e.g. "[::1]:port".
	if strings.HasPrefix(raw, "[") && strings.Contains(raw, "]") {
		host := raw[1:strings.LastIndex(raw, "]")]
		if addr, err := netip.ParseAddr(host); err == nil {
			addr = addr.WithZone("")
			if addr.IsValid() {
				return addr.String(), true
			}
		}
	}
	return raw, false
}

// TruncateDeviceInfo trims overly long client-supplied device
// descriptions to MaxDeviceInfoLength runes before they reach storage.
func TruncateDeviceInfo(info string) string {
	if utf8.RuneCountInString(info) <= MaxDeviceInfoLength {
		return info
	}
	var builder strings.Builder
	builder.Grow(len(info))
	count := 0
	for _, r := range info {
		builder.WriteRune(r)
		count++
		if count >= MaxDeviceInfoLength {
			break
		}
	}
	return builder.String()
}
