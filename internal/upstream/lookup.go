package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
)

const (
	defaultLookupTimeout = 75 * time.Second
	snippetRunes         = 200
)

// LookupClient exchanges credentials for refresh tokens.
type LookupClient struct {
	url  string
	http doer
}

func NewLookupClient(url string, timeout time.Duration, httpClient *http.Client) *LookupClient {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &LookupClient{url: url, http: newDoer(timeout, httpClient)}
}

type lookupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type lookupResponse struct {
	RefreshToken string `json:"refresh_token"`
	Error        string `json:"error"`
	Message      string `json:"message"`
}

// Lookup posts one credential pair. A reply without refresh_token is an
// error carrying the service's own message when it sent one.
func (c *LookupClient) Lookup(ctx context.Context, cred domain.Credential) (app.LookupOutcome, error) {
	if c.url == "" {
		return app.LookupOutcome{}, errors.New("lookup service url not configured")
	}
	body, err := json.Marshal(lookupRequest{Email: cred.Identifier, Password: cred.Secret})
	if err != nil {
		return app.LookupOutcome{}, fmt.Errorf("marshal lookup request: %w", err)
	}

	status, respBody, err := c.http.do(ctx, http.MethodPost, c.url, "application/json", body)
	if err != nil {
		return app.LookupOutcome{}, err
	}

	var resp lookupResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return app.LookupOutcome{}, fmt.Errorf("lookup service returned status %d: %s", status, snippet(respBody))
	}
	if resp.RefreshToken != "" {
		return app.LookupOutcome{RefreshToken: resp.RefreshToken, Raw: string(respBody)}, nil
	}
	switch {
	case resp.Error != "":
		return app.LookupOutcome{}, errors.New(resp.Error)
	case resp.Message != "":
		return app.LookupOutcome{}, errors.New(resp.Message)
	default:
		return app.LookupOutcome{}, fmt.Errorf("lookup service returned status %d without refresh token", status)
	}
}

// snippet shortens a reply for error messages, cutting on a rune boundary.
func snippet(body []byte) string {
	s := strings.ToValidUTF8(strings.TrimSpace(string(body)), "\uFFFD")
	if utf8.RuneCountInString(s) <= snippetRunes {
		return s
	}
	return string([]rune(s)[:snippetRunes]) + "..."
}
