package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"go.uber.org/zap"
)

type RefundRequester interface {
	RequestRefund(ctx context.Context, transactionID string) (app.RefundResult, error)
}

type refundRequest struct {
	TransactionID string `json:"transactionId"`
}

type refundView struct {
	ID              string    `json:"id"`
	TransactionID   string    `json:"transactionId"`
	RefundStatus    string    `json:"refundStatus"`
	ResponseMessage string    `json:"responseMessage"`
	CreatedAt       time.Time `json:"createdAt"`
}

type refundResponse struct {
	Success         bool       `json:"success"`
	RefundStatus    string     `json:"refundStatus"`
	ResponseMessage string     `json:"responseMessage"`
	Refund          refundView `json:"refund"`
}

func toRefundView(rec domain.RefundRecord) refundView {
	return refundView{
		ID:              rec.ID,
		TransactionID:   rec.TransactionID,
		RefundStatus:    rec.RefundStatus,
		ResponseMessage: rec.ResponseMessage,
		CreatedAt:       rec.CreatedAt,
	}
}

// HandleRefund submits a refund request for a transaction. A repeat request
// answers 409 with the record already on file.
func HandleRefund(svc RefundRequester, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refundRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.RequestRefund(r.Context(), req.TransactionID)
		if err != nil {
			if errors.Is(err, domain.ErrRefundAlreadyRequested) && res.Record.ID != "" {
				writeJSON(w, http.StatusConflict, struct {
					errorResponse
					Refund refundView `json:"refund"`
				}{
					errorResponse: errorResponse{
						Message:       err.Error(),
						ErrorType:     kindErrorTypes[domain.KindConflict],
						Code:          "refund_already_requested",
						TransactionID: res.Record.TransactionID,
					},
					Refund: toRefundView(res.Record),
				})
				return
			}
			writeDomainError(w, r, logger, err, "")
			return
		}

		writeJSON(w, http.StatusCreated, refundResponse{
			Success:         true,
			RefundStatus:    res.Record.RefundStatus,
			ResponseMessage: res.Record.ResponseMessage,
			Refund:          toRefundView(res.Record),
		})
	}
}
