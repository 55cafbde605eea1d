package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TokenQuerier interface {
	Balance(ctx context.Context, token string) (domain.Token, error)
	History(ctx context.Context, token string, limit int) ([]domain.Transaction, error)
	Transaction(ctx context.Context, id string) (app.TransactionDetail, error)
}

type balanceResponse struct {
	Success          bool   `json:"success"`
	Token            string `json:"token"`
	ProductID        string `json:"productId,omitempty"`
	Credits          string `json:"credits"`
	Master           bool   `json:"master"`
	Activated        bool   `json:"activated"`
	Locked           bool   `json:"locked"`
	ActivationStatus string `json:"activationStatus"`
}

type transactionView struct {
	ID           string    `json:"id"`
	Token        string    `json:"token"`
	Master       bool      `json:"master"`
	ProductID    string    `json:"productId,omitempty"`
	ProductName  string    `json:"productName"`
	Qty          int       `json:"qty"`
	Status       string    `json:"status"`
	OutputResult []string  `json:"outputResult"`
	ResponseData string    `json:"responseData,omitempty"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toTransactionView(t domain.Transaction) transactionView {
	return transactionView{
		ID:           t.ID,
		Token:        t.Token,
		Master:       t.Master,
		ProductID:    t.ProductID,
		ProductName:  t.ProductName,
		Qty:          t.Qty,
		Status:       string(t.Status),
		OutputResult: nonNil(t.OutputResult),
		ResponseData: t.ResponseData,
		Note:         t.Note,
		CreatedAt:    t.CreatedAt,
	}
}

func HandleBalance(svc TokenQuerier, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, err := svc.Balance(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeDomainError(w, r, logger, err, "")
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{
			Success:          true,
			Token:            tok.Token,
			ProductID:        tok.ProductID,
			Credits:          tok.Credits.String(),
			Master:           tok.Master,
			Activated:        tok.Activated,
			Locked:           tok.Locked,
			ActivationStatus: string(tok.ActivationStatus),
		})
	}
}

// HandleHistory lists a token's transactions, newest first.
func HandleHistory(svc TokenQuerier, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		txns, err := svc.History(r.Context(), chi.URLParam(r, "token"), limit)
		if err != nil {
			writeDomainError(w, r, logger, err, "")
			return
		}
		views := make([]transactionView, 0, len(txns))
		for _, t := range txns {
			views = append(views, toTransactionView(t))
		}
		writeJSON(w, http.StatusOK, struct {
			Success      bool              `json:"success"`
			Transactions []transactionView `json:"transactions"`
		}{Success: true, Transactions: views})
	}
}

func HandleTransaction(svc TokenQuerier, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.Transaction(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, r, logger, err, "")
			return
		}
		resp := struct {
			Success     bool            `json:"success"`
			Transaction transactionView `json:"transaction"`
			Refund      *refundView     `json:"refund,omitempty"`
		}{Success: true, Transaction: toTransactionView(detail.Transaction)}
		if detail.Refund != nil {
			v := toRefundView(*detail.Refund)
			resp.Refund = &v
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
