package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
	"go.uber.org/zap"
)

type BatchLooker interface {
	BatchLookup(ctx context.Context, in app.BatchLookupInput) (app.BatchLookupResult, error)
}

// lookupRequest accepts credentials either as lines or as one
// newline-separated text blob.
type lookupRequest struct {
	Token          string   `json:"token"`
	Product        string   `json:"product"`
	UseMasterToken bool     `json:"useMasterToken"`
	Lines          []string `json:"lines"`
	Text           string   `json:"text"`
}

type lookupEntryView struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	RefreshToken  string `json:"refreshToken,omitempty"`
	Error         string `json:"error,omitempty"`
	TransactionID string `json:"transactionId"`
}

type lookupResponse struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Charged string            `json:"charged"`
	Results []lookupEntryView `json:"results"`
}

func HandleLookup(svc BatchLooker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lookupRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		lines := req.Lines
		if req.Text != "" {
			lines = append(lines, strings.Split(req.Text, "\n")...)
		}

		res, err := svc.BatchLookup(r.Context(), app.BatchLookupInput{
			Token:          req.Token,
			Product:        req.Product,
			UseMasterToken: req.UseMasterToken,
			Lines:          lines,
		})
		if err != nil {
			writeDomainError(w, r, logger, err, "")
			return
		}

		out := lookupResponse{
			Success: true,
			Count:   res.Count,
			Charged: res.Charged.String(),
			Results: make([]lookupEntryView, 0, len(res.Results)),
		}
		for _, e := range res.Results {
			out.Results = append(out.Results, lookupEntryView{
				ID:            e.Identifier,
				Status:        string(e.Status),
				RefreshToken:  e.RefreshToken,
				Error:         e.Error,
				TransactionID: e.TransactionID,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
