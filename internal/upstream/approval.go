package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
)

const defaultApprovalTimeout = 30 * time.Second

// ApprovalClient submits refund requests to the external approval workflow.
type ApprovalClient struct {
	url  string
	http doer
}

func NewApprovalClient(url string, timeout time.Duration, httpClient *http.Client) *ApprovalClient {
	if timeout <= 0 {
		timeout = defaultApprovalTimeout
	}
	return &ApprovalClient{url: url, http: newDoer(timeout, httpClient)}
}

type approvalTransaction struct {
	ID           string    `json:"id"`
	Token        string    `json:"token"`
	Master       bool      `json:"master"`
	ProductID    string    `json:"product_id,omitempty"`
	ProductName  string    `json:"product_name"`
	Qty          int       `json:"qty"`
	Status       string    `json:"status"`
	OutputResult []string  `json:"output_result"`
	ResponseData string    `json:"response_data"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"created_at"`
}

type approvalResponse struct {
	RefundStatus    string `json:"refund_status"`
	ResponseMessage string `json:"response_message"`
}

// SubmitRefund posts the full transaction. Any non-200 reply, or a reply
// that cannot be read, is a failed decision rather than an error.
func (c *ApprovalClient) SubmitRefund(ctx context.Context, txn domain.Transaction) (app.RefundDecision, error) {
	if c.url == "" {
		return app.RefundDecision{}, fmt.Errorf("refund approval url not configured")
	}
	body, err := json.Marshal(approvalTransaction{
		ID:           txn.ID,
		Token:        txn.Token,
		Master:       txn.Master,
		ProductID:    txn.ProductID,
		ProductName:  txn.ProductName,
		Qty:          txn.Qty,
		Status:       string(txn.Status),
		OutputResult: txn.OutputResult,
		ResponseData: txn.ResponseData,
		Note:         txn.Note,
		CreatedAt:    txn.CreatedAt,
	})
	if err != nil {
		return app.RefundDecision{}, fmt.Errorf("marshal refund request: %w", err)
	}

	status, respBody, err := c.http.do(ctx, http.MethodPost, c.url, "application/json", body)
	if err != nil {
		return app.RefundDecision{}, err
	}
	failed := app.RefundDecision{RefundStatus: domain.RefundStatusFailed, ResponseMessage: "Server Error"}
	if status != http.StatusOK {
		return failed, nil
	}

	var resp approvalResponse
	if err := json.Unmarshal(respBody, &resp); err != nil || resp.RefundStatus == "" {
		return failed, nil
	}
	return app.RefundDecision{RefundStatus: resp.RefundStatus, ResponseMessage: resp.ResponseMessage}, nil
}
