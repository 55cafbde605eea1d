package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	cases := []struct {
		name    string
		level   string
		format  string
		enabled zap.AtomicLevel
		wantErr bool
	}{
		{name: "json info", level: "info", format: "json", enabled: zap.NewAtomicLevelAt(zap.InfoLevel)},
		{name: "console debug", level: "DEBUG", format: "console", enabled: zap.NewAtomicLevelAt(zap.DebugLevel)},
		{name: "empty format is json", level: "warn", format: "", enabled: zap.NewAtomicLevelAt(zap.WarnLevel)},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.level, tc.format)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			lvl := tc.enabled.Level()
			assert.True(t, logger.Core().Enabled(lvl))
			if lvl > zap.DebugLevel {
				assert.False(t, logger.Core().Enabled(lvl-1))
			}
		})
	}
}
