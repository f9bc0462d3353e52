package redis

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptionsAppliesTuning(t *testing.T) {
	opts := newOptions("localhost:6379",
		WithPassword("s3cret"),
		WithDB(2),
		WithPoolSize(8),
		WithMaxRetries(3),
		WithTLS(),
	)

	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "s3cret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, 3, opts.MaxRetries)
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), opts.TLSConfig.MinVersion)
}

func TestNewOptionsDefaultsArePlain(t *testing.T) {
	opts := newOptions("localhost:6379")

	assert.Empty(t, opts.Password)
	assert.Zero(t, opts.DB)
	assert.Nil(t, opts.TLSConfig)
}
