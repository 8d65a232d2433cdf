package models

import "strings"

const (
	KeyPrefixWallet = "wallet:"
	KeyPrefixIP     = "ip:"
	KeyUnknown      = "unknown"
)

// ClientKey derives the bucket a request is counted against. A wallet identity
// wins over the network origin; callers with neither share the "unknown" bucket.
func ClientKey(wallet, ip string) string {
	if wallet = strings.TrimSpace(wallet); wallet != "" {
		return KeyPrefixWallet + SanitizeKeySegment(wallet)
	}
	if ip = strings.TrimSpace(ip); ip != "" {
		return KeyPrefixIP + SanitizeKeySegment(ip)
	}
	return KeyUnknown
}

// keyEscaper hex-escapes the delimiter and the escape byte itself, so every '_'
// in a sanitized segment starts a three-byte escape and distinct inputs stay distinct.
var keyEscaper = strings.NewReplacer("_", "_5f", ":", "_3a")

// SanitizeKeySegment escapes delimiter characters in key segments so a
// user-controlled identifier containing ':' cannot alias another bucket.
// IPv6 addresses are escaped too ("::1" becomes "_3a_3a1").
func SanitizeKeySegment(s string) string {
	return keyEscaper.Replace(s)
}
