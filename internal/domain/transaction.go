package domain

import (
	"strings"
	"time"
)

type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "success"
	TransactionFailed  TransactionStatus = "failed"
)

const (
	NoteRefunded              = "Refunded"
	NoteLedgerDeductionFailed = "LedgerDeductionFailed"
	RefundedOutput            = "Order Refunded"
)

// Transaction records one settlement attempt. Only Note (and, on sweep
// reversal, OutputResult) change after insert.
type Transaction struct {
	ID           string
	Token        string
	Master       bool
	ProductID    string
	ProductName  string
	Qty          int
	Status       TransactionStatus
	OutputResult []string
	ResponseData string
	Note         string
	CreatedAt    time.Time
}

// Refunded reports whether the sweep already reversed the transaction.
func (t Transaction) Refunded() bool {
	return strings.Contains(t.Note, NoteRefunded)
}

// Charged reports whether the token was debited for a successful
// transaction. Deliveries whose post-delivery debit failed were never paid.
func (t Transaction) Charged() bool {
	return t.Status == TransactionSuccess && !strings.Contains(t.Note, NoteLedgerDeductionFailed)
}

// AppendNote adds a word to an existing note, space separated.
func AppendNote(note, word string) string {
	if note == "" {
		return word
	}
	return note + " " + word
}
