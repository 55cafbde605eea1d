package domain

import "errors"

var (
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidID            = errors.New("invalid id")
	ErrProductRequired      = errors.New("product id or name required")
	ErrTokenRequired        = errors.New("token required")
	ErrTransactionRequired  = errors.New("transaction id required")
	ErrNoCredentials        = errors.New("no valid credential lines")
	ErrTooManyCredentials   = errors.New("too many credential lines")
	ErrInvalidTOTPSecret    = errors.New("invalid totp secret")
	ErrProductMisconfigured = errors.New("product misconfigured")

	ErrProductNotFound     = errors.New("product not found")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRuleNotFound        = errors.New("refund rule not found")

	ErrTokenLocked         = errors.New("token locked")
	ErrActivationPending   = errors.New("token activation pending")
	ErrActivationRejected  = errors.New("token activation rejected")
	ErrTokenProductInvalid = errors.New("token not valid for product")

	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInsufficientStock   = errors.New("insufficient stock")

	ErrRefundAlreadyRequested = errors.New("refund already requested")
	ErrRefundWindowExpired    = errors.New("refund window expired")

	ErrUpstream = errors.New("upstream call failed")

	// ErrPostDeliveryLedger means goods were delivered and recorded but the
	// credit deduction could not be applied afterwards.
	ErrPostDeliveryLedger = errors.New("post-delivery ledger error")
)

// Kind groups errors into the classes callers react to.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindNotFound             Kind = "not_found"
	KindAuthorization        Kind = "authorization"
	KindInsufficientResource Kind = "insufficient_resource"
	KindConflict             Kind = "conflict"
	KindUpstream             Kind = "upstream"
	KindPersistence          Kind = "persistence"
)

var kinds = map[error]Kind{
	ErrInvalidQuantity:        KindValidation,
	ErrInvalidID:              KindValidation,
	ErrProductRequired:        KindValidation,
	ErrTokenRequired:          KindValidation,
	ErrTransactionRequired:    KindValidation,
	ErrNoCredentials:          KindValidation,
	ErrTooManyCredentials:     KindValidation,
	ErrInvalidTOTPSecret:      KindValidation,
	ErrProductNotFound:        KindNotFound,
	ErrInvalidToken:           KindNotFound,
	ErrTransactionNotFound:    KindNotFound,
	ErrRuleNotFound:           KindNotFound,
	ErrTokenLocked:            KindAuthorization,
	ErrActivationPending:      KindAuthorization,
	ErrActivationRejected:     KindAuthorization,
	ErrTokenProductInvalid:    KindAuthorization,
	ErrInsufficientCredits:    KindInsufficientResource,
	ErrInsufficientStock:      KindInsufficientResource,
	ErrRefundAlreadyRequested: KindConflict,
	ErrRefundWindowExpired:    KindConflict,
	ErrUpstream:               KindUpstream,
	ErrPostDeliveryLedger:     KindPersistence,
	ErrProductMisconfigured:   KindPersistence,
}

// KindOf classifies err. Anything unrecognised is treated as a persistence
// failure, since the only other source of errors is the data store.
func KindOf(err error) Kind {
	for target, kind := range kinds {
		if errors.Is(err, target) {
			return kind
		}
	}
	return KindPersistence
}
