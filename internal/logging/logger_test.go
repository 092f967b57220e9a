package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	l, err := New("debug", "flora-test")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New("loud", "flora-test")
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	fallback := zap.NewNop()
	reqLog := zap.NewExample()

	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.NotNil(t, FromContext(context.Background(), nil))

	ctx := WithContext(context.Background(), reqLog)
	assert.Same(t, reqLog, FromContext(ctx, fallback))
}
