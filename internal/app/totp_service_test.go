package app

import (
	"testing"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/clock"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 6238 SHA1 vectors, truncated to six digits.
func TestTOTPService_Code(t *testing.T) {
	t.Parallel()

	const secret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

	cases := []struct {
		name      string
		secret    string
		unix      int64
		code      string
		remaining int
	}{
		{name: "t=59", secret: secret, unix: 59, code: "287082", remaining: 1},
		{name: "t=1111111109", secret: secret, unix: 1111111109, code: "081804", remaining: 1},
		{name: "t=1234567890", secret: secret, unix: 1234567890, code: "005924", remaining: 30},
		{name: "lowercase with spaces", secret: "gezd gnbv gy3t qojq gezd gnbv gy3t qojq", unix: 59, code: "287082", remaining: 1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := NewTOTPService(clock.NewFixed(time.Unix(tc.unix, 0)))
			got, err := svc.Code(tc.secret)
			require.NoError(t, err)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.remaining, got.Remaining)
		})
	}

	t.Run("invalid secret", func(t *testing.T) {
		svc := NewTOTPService(clock.NewFixed(time.Unix(59, 0)))
		_, err := svc.Code("not base32!")
		require.ErrorIs(t, err, domain.ErrInvalidTOTPSecret)

		_, err = svc.Code("   ")
		require.ErrorIs(t, err, domain.ErrInvalidTOTPSecret)
	})
}
