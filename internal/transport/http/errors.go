package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"go.uber.org/zap"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

// errorCodes names each domain error on the wire.
var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrInvalidQuantity, "invalid_quantity"},
	{domain.ErrInvalidID, "invalid_id"},
	{domain.ErrProductRequired, "product_required"},
	{domain.ErrTokenRequired, "token_required"},
	{domain.ErrTransactionRequired, "transaction_required"},
	{domain.ErrNoCredentials, "no_credentials"},
	{domain.ErrTooManyCredentials, "too_many_credentials"},
	{domain.ErrInvalidTOTPSecret, "invalid_totp_secret"},
	{domain.ErrProductNotFound, "product_not_found"},
	{domain.ErrInvalidToken, "invalid_token"},
	{domain.ErrTransactionNotFound, "transaction_not_found"},
	{domain.ErrRuleNotFound, "rule_not_found"},
	{domain.ErrTokenLocked, "token_locked"},
	{domain.ErrActivationPending, "activation_pending"},
	{domain.ErrActivationRejected, "activation_rejected"},
	{domain.ErrTokenProductInvalid, "token_product_invalid"},
	{domain.ErrInsufficientCredits, "insufficient_credits"},
	{domain.ErrInsufficientStock, "insufficient_stock"},
	{domain.ErrRefundAlreadyRequested, "refund_already_requested"},
	{domain.ErrRefundWindowExpired, "refund_window_expired"},
	{domain.ErrUpstream, "upstream_failed"},
	{domain.ErrPostDeliveryLedger, "post_delivery_ledger"},
	{domain.ErrProductMisconfigured, "product_misconfigured"},
}

var kindErrorTypes = map[domain.Kind]string{
	domain.KindValidation:           "validation_error",
	domain.KindNotFound:             "not_found_error",
	domain.KindAuthorization:        "authorization_error",
	domain.KindInsufficientResource: "insufficient_resource_error",
	domain.KindConflict:             "conflict_error",
	domain.KindUpstream:             "upstream_error",
	domain.KindPersistence:          "persistence_error",
}

type errorResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ErrorType     string `json:"errorType"`
	Code          string `json:"code"`
	TransactionID string `json:"transactionId,omitempty"`
}

// errorStatus maps err to its HTTP status, errorType and code.
func errorStatus(err error) (int, string, string) {
	kind := domain.KindOf(err)
	code := codeInternalError
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			code = c.code
			break
		}
	}

	status := http.StatusInternalServerError
	switch kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindAuthorization:
		status = http.StatusForbidden
	case domain.KindInsufficientResource:
		status = http.StatusBadRequest
		if errors.Is(err, domain.ErrInsufficientCredits) {
			status = http.StatusPaymentRequired
		}
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindUpstream:
		status = http.StatusBadGateway
	}
	return status, kindErrorTypes[kind], code
}

// writeDomainError renders err in the error envelope. Server-side failures
// are logged and their detail withheld from the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, transactionID string) {
	status, errorType, code := errorStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{
		Success:       false,
		Message:       msg,
		ErrorType:     errorType,
		Code:          code,
		TransactionID: transactionID,
	})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	errorType := kindErrorTypes[domain.KindValidation]
	switch {
	case status == http.StatusNotFound:
		errorType = kindErrorTypes[domain.KindNotFound]
	case status == http.StatusForbidden:
		errorType = kindErrorTypes[domain.KindAuthorization]
	case status >= http.StatusInternalServerError:
		errorType = kindErrorTypes[domain.KindPersistence]
	}
	writeJSON(w, status, errorResponse{
		Success:   false,
		Message:   msg,
		ErrorType: errorType,
		Code:      code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"internal error","errorType":"persistence_error","code":"internal_error"}`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}
