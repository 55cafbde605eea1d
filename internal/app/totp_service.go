package app

import (
	"strings"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/clock"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpPeriod = 30

// TOTPService derives RFC 6238 codes from shared secrets.
type TOTPService struct {
	clock clock.Clock
}

func NewTOTPService(clk clock.Clock) *TOTPService {
	return &TOTPService{clock: clk}
}

type TOTPCode struct {
	Code      string
	Remaining int
}

// Code returns the current 6-digit code for a base32 secret and the seconds
// left before it rotates. Spaces and dashes in the secret are ignored.
func (s *TOTPService) Code(secret string) (TOTPCode, error) {
	secret = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(secret))
	if secret == "" {
		return TOTPCode{}, domain.ErrInvalidTOTPSecret
	}
	now := s.clock.Now()
	code, err := totp.GenerateCodeCustom(strings.ToUpper(secret), now, totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPCode{}, domain.ErrInvalidTOTPSecret
	}
	return TOTPCode{
		Code:      code,
		Remaining: totpPeriod - int(now.Unix()%totpPeriod),
	}, nil
}
