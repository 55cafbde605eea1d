package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"go.uber.org/zap"
)

type Settler interface {
	Settle(ctx context.Context, in app.SettleInput) (app.SettleResult, error)
}

// settleRequest names the product by productId or productName; product and
// quantity are accepted as aliases.
type settleRequest struct {
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	Product        string `json:"product"`
	Token          string `json:"token"`
	Qty            int    `json:"qty"`
	Quantity       int    `json:"quantity"`
	UseMasterToken bool   `json:"useMasterToken"`
}

func (r settleRequest) product() string {
	for _, p := range []string{r.ProductID, r.ProductName, r.Product} {
		if strings.TrimSpace(p) != "" {
			return p
		}
	}
	return ""
}

func (r settleRequest) quantity() int {
	if r.Qty != 0 {
		return r.Qty
	}
	return r.Quantity
}

type settleResponse struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	TransactionID    string   `json:"transactionId"`
	DeliveredPayload []string `json:"deliveredPayload"`
	Warning          string   `json:"warning,omitempty"`
}

// HandleSettle redeems a token against a product.
func HandleSettle(svc Settler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settleRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.Settle(r.Context(), app.SettleInput{
			Product:        req.product(),
			Token:          req.Token,
			Quantity:       req.quantity(),
			UseMasterToken: req.UseMasterToken,
		})
		if err != nil {
			if errors.Is(err, domain.ErrPostDeliveryLedger) && res.TransactionID != "" {
				logger.Warn("settlement delivered without ledger update",
					zap.String("transaction_id", res.TransactionID),
					zap.Error(err),
				)
				writeJSON(w, http.StatusOK, settleResponse{
					Success:          true,
					Message:          res.Message,
					TransactionID:    res.TransactionID,
					DeliveredPayload: nonNil(res.Delivered),
					Warning:          "credit deduction pending reconciliation",
				})
				return
			}
			writeDomainError(w, r, logger, err, res.TransactionID)
			return
		}
		if !res.Success {
			status, errorType, code := errorStatus(res.Failure)
			writeJSON(w, status, errorResponse{
				Success:       false,
				Message:       res.Message,
				ErrorType:     errorType,
				Code:          code,
				TransactionID: res.TransactionID,
			})
			return
		}

		writeJSON(w, http.StatusOK, settleResponse{
			Success:          true,
			Message:          res.Message,
			TransactionID:    res.TransactionID,
			DeliveredPayload: nonNil(res.Delivered),
		})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
