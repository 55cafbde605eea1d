package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
)

const defaultProductTimeout = 60 * time.Second

// ProductClient calls the per-product upstream APIs.
type ProductClient struct {
	http doer
}

// NewProductClient builds a client whose calls are bounded by timeout. A nil
// httpClient gets a fresh one.
func NewProductClient(timeout time.Duration, httpClient *http.Client) *ProductClient {
	if timeout <= 0 {
		timeout = defaultProductTimeout
	}
	return &ProductClient{http: newDoer(timeout, httpClient)}
}

func (c *ProductClient) CallProduct(ctx context.Context, call app.ProductCall) (app.ProductResponse, error) {
	method := strings.ToUpper(call.Method)
	if method == "" {
		method = http.MethodGet
	}
	var body []byte
	if method != http.MethodGet && call.Body != "" {
		body = []byte(call.Body)
	}

	status, respBody, err := c.http.do(ctx, method, call.URL, payloadContentType(body), body)
	return app.ProductResponse{StatusCode: status, Body: respBody}, err
}

func payloadContentType(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if json.Valid(body) {
		return "application/json"
	}
	return "application/x-www-form-urlencoded"
}
