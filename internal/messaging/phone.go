package messaging

import (
	"errors"
	"strings"
)

// TransportPrefix is prepended by the chat transport to WhatsApp addresses.
const TransportPrefix = "whatsapp:"

// ErrInvalidAddress is returned when an address cannot be normalized to E.164.
var ErrInvalidAddress = errors.New("messaging: address is not a valid E.164 number")

// NormalizeAddress strips the transport prefix if present and validates that
// the remainder is an E.164 number with a leading +. Normalization is
// idempotent: feeding the result back in yields the same value.
func NormalizeAddress(value string) (string, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, TransportPrefix)
	if len(value) < 2 || !strings.HasPrefix(value, "+") {
		return "", ErrInvalidAddress
	}
	for _, r := range value[1:] {
		if r < '0' || r > '9' {
			return "", ErrInvalidAddress
		}
	}
	return value, nil
}

// WhatsAppAddress re-applies the transport prefix for outbound WhatsApp sends.
// Callers pass a normalized address; the prefix is never doubled.
func WhatsAppAddress(normalized string) string {
	if strings.HasPrefix(normalized, TransportPrefix) {
		return normalized
	}
	return TransportPrefix + normalized
}
