package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "development", cfg: DevelopmentConfig()},
		{name: "json", cfg: Config{Level: "warn", Format: "json"}},
		{name: "empty level", cfg: Config{Format: "console"}},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info("test message")
		})
	}
}

func TestFallbacks(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	assert.Equal(t, "ssr", logger.Name())
	assert.NotNil(t, NewNop().Logger)
}

func TestEncodingFormat(t *testing.T) {
	assert.Equal(t, "json", encodingFormat(Config{Format: "json"}))
	assert.Equal(t, "console", encodingFormat(Config{Format: ""}))
	assert.Equal(t, "console", encodingFormat(Config{Format: "text"}))
}
