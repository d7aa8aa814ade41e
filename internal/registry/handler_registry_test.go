package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/pkg/sdk"
)

func TestExecuteOnUnloadedEndpointReturnsNotLoaded(t *testing.T) {
	r := New(zap.NewNop())
	_, err := r.Execute(context.Background(), "missing", sdk.Context{}, domain.Request{}, 0)
	assert.ErrorIs(t, err, domain.ErrNotLoaded)
}

func TestUnloadOnUnloadedEndpointReturnsNotLoaded(t *testing.T) {
	r := New(zap.NewNop())
	_, err := r.Unload("missing")
	assert.ErrorIs(t, err, domain.ErrNotLoaded)
}

func TestStatsEmptyRegistry(t *testing.T) {
	r := New(zap.NewNop())
	stats := r.Stats()
	assert.Equal(t, 0, stats.Loaded)
	assert.Equal(t, 0, stats.Draining)
	assert.EqualValues(t, 0, stats.ActiveRequests)
}

func TestCleanupDrainedOnEmptyRegistry(t *testing.T) {
	r := New(zap.NewNop())
	assert.Equal(t, 0, r.CleanupDrained())
}
