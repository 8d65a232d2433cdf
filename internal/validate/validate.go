// Package validate holds the shape checks applied to request input before it
// reaches a service. Every function is pure and returns a validation_error.
package validate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/mr-tron/base58"

	dErrors "shadow/pkg/domain-errors"
)

const (
	ShadowSuffix = ".shadow"

	maxLabelLength  = 63
	maxDomainLength = 253

	MaxQueryLength = 200
	DefaultLimit   = 10
	MaxLimit       = 100

	pubkeyBytes = 32
)

// Pubkey checks that s is a base58 encoded 32-byte public key.
func Pubkey(field, s string) error {
	if s == "" {
		return invalid("%s is required", field)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return invalid("%s is not valid base58", field)
	}
	if len(raw) != pubkeyBytes {
		return invalid("%s must decode to %d bytes, got %d", field, pubkeyBytes, len(raw))
	}
	return nil
}

// Domain accepts "<label>.shadow" names and ordinary dotted custom domains.
func Domain(domain string) error {
	if name, ok := strings.CutSuffix(domain, ShadowSuffix); ok {
		return shadowLabel(name)
	}
	if domain == "" {
		return invalid("domain cannot be empty")
	}
	if len(domain) > maxDomainLength {
		return invalid("domain too long (max %d characters)", maxDomainLength)
	}
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return invalid("domain must have at least a TLD")
	}
	for _, part := range parts {
		if part == "" {
			return invalid("domain parts cannot be empty")
		}
		if len(part) > maxLabelLength {
			return invalid("domain part too long (max %d characters)", maxLabelLength)
		}
	}
	return nil
}

func shadowLabel(name string) error {
	switch {
	case name == "":
		return invalid("domain name cannot be empty")
	case len(name) > maxLabelLength:
		return invalid("domain name too long (max %d characters)", maxLabelLength)
	case strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-"):
		return invalid("domain name cannot start or end with a hyphen")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' {
			return invalid("domain name can only contain alphanumeric characters and hyphens")
		}
	}
	return nil
}

// IPFSCID accepts an empty value, a bare CID, or an ipfs:// reference.
func IPFSCID(cid string) error {
	return contentRef(cid, "ipfs://", "IPFS CID", 10, 100)
}

// ArweaveTx accepts an empty value, a bare transaction id, or an arweave:// reference.
func ArweaveTx(tx string) error {
	return contentRef(tx, "arweave://", "Arweave transaction ID", 20, 100)
}

func contentRef(ref, scheme, what string, minLen, maxLen int) error {
	id, prefixed := strings.CutPrefix(ref, scheme)
	if prefixed && id == "" {
		return invalid("%s cannot be empty", what)
	}
	if id == "" {
		return nil
	}
	if len(id) < minLen || len(id) > maxLen {
		return invalid("invalid %s length", what)
	}
	return nil
}

func SearchQuery(q string) error {
	if q == "" {
		return invalid("search query cannot be empty")
	}
	if len(q) > MaxQueryLength {
		return invalid("search query too long (max %d characters)", MaxQueryLength)
	}
	return nil
}

// Limit returns DefaultLimit for nil and rejects values outside [1, MaxLimit].
func Limit(limit *int) (int, error) {
	if limit == nil {
		return DefaultLimit, nil
	}
	if *limit < 1 {
		return 0, invalid("limit must be at least 1")
	}
	if *limit > MaxLimit {
		return 0, invalid("limit cannot exceed %d", MaxLimit)
	}
	return *limit, nil
}

// Sanitize drops control characters other than newline, carriage return and tab.
// ParseLimit reads a limit query parameter; "" means the default.
func ParseLimit(raw string) (int, error) {
	if raw == "" {
		return Limit(nil)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("limit must be an integer")
	}
	return Limit(&n)
}

func Sanitize(field, s string, maxLen int) (string, error) {
	if len(s) > maxLen {
		return "", invalid("%s too long (max %d characters)", field, maxLen)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s), nil
}

func invalid(format string, args ...any) error {
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf(format, args...))
}
