package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const RefundStatusFailed = "failed"

// RefundRecord is the single refund request stored for a transaction.
type RefundRecord struct {
	ID              string
	TransactionID   string
	RefundStatus    string
	ResponseMessage string
	CreatedAt       time.Time
}

// RefundRule configures the scheduled sweep: successful transactions of
// ProductIDs within the last WindowHours whose output contains any of
// Signatures are reversed.
type RefundRule struct {
	ID            string
	Name          string
	ProductIDs    []string
	Signatures    []string
	WindowHours   int
	LastCheckedAt *time.Time
}

// Window returns the rolling window as a duration.
func (r RefundRule) Window() time.Duration {
	return time.Duration(r.WindowHours) * time.Hour
}

// Matches reports whether output contains any signature, ignoring case.
// The output is compared in its JSON-encoded form, without HTML escaping.
func (r RefundRule) Matches(output []string) bool {
	var raw bytes.Buffer
	enc := json.NewEncoder(&raw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(output); err != nil {
		return false
	}
	haystack := strings.ToLower(raw.String())
	for _, sig := range r.Signatures {
		if sig == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(sig)) {
			return true
		}
	}
	return false
}

// ParseSignatures splits a comma separated signature list, dropping blanks.
func ParseSignatures(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
