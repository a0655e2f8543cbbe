package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/oxidb/oxidbtest"
)

func TestPoolRoundRobin(t *testing.T) {
	srv := oxidbtest.Start(t)
	p, err := NewPool(context.Background(), srv.Addr(), 3, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	first := p.Get()
	second := p.Get()
	assert.NotSame(t, first, second)
	p.Get()
	assert.Same(t, first, p.Get())
	assert.NoError(t, p.Ping(context.Background()))
}

func TestPoolConnectFailure(t *testing.T) {
	_, err := NewPool(context.Background(), "127.0.0.1:1", 1, zap.NewNop())
	assert.Error(t, err)
}

func TestPoolReconnectSwapsClient(t *testing.T) {
	srv := oxidbtest.Start(t)
	p, err := NewPool(context.Background(), srv.Addr(), 1, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	before := p.Get()
	p.reconnect(0)
	after := p.Get()
	assert.NotSame(t, before, after)
	assert.NoError(t, p.Ping(context.Background()))
}
