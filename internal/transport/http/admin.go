package http

import (
	"context"
	"net/http"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
	"go.uber.org/zap"
)

type SweepTrigger interface {
	Run(ctx context.Context) (app.SweepReport, error)
}

// HandleSweep runs one refund sweep pass synchronously and reports totals.
func HandleSweep(svc SweepTrigger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Run(r.Context())
		if err != nil {
			writeDomainError(w, r, logger, err, "")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Success bool            `json:"success"`
			Report  app.SweepReport `json:"report"`
		}{Success: true, Report: report})
	}
}
