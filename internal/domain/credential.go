package domain

import "strings"

// Credential is one identifier/secret pair submitted for batch lookup.
type Credential struct {
	Identifier string
	Secret     string
}

// ParseCredentialLines turns "id|secret" or "id:secret" lines into
// credentials. Blank and malformed lines are dropped. The pipe separator
// wins when both are present since secrets often contain colons.
func ParseCredentialLines(lines []string) []Credential {
	out := make([]Credential, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, secret, ok := strings.Cut(line, "|")
		if !ok {
			id, secret, ok = strings.Cut(line, ":")
		}
		if !ok {
			continue
		}
		id = strings.TrimSpace(id)
		secret = strings.TrimSpace(secret)
		if id == "" || secret == "" {
			continue
		}
		out = append(out, Credential{Identifier: id, Secret: secret})
	}
	return out
}
