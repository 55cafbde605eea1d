package http

import (
	"net/http"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
	"go.uber.org/zap"
)

type TOTPGenerator interface {
	Code(secret string) (app.TOTPCode, error)
}

func HandleTOTP(svc TOTPGenerator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Secret string `json:"secret"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		code, err := svc.Code(req.Secret)
		if err != nil {
			writeDomainError(w, r, logger, err, "")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Success   bool   `json:"success"`
			Code      string `json:"code"`
			Remaining int    `json:"remaining"`
		}{Success: true, Code: code.Code, Remaining: code.Remaining})
	}
}
