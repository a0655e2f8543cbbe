package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/db"
	"github.com/parisxmas/OxiDB/OxiSign/internal/oxidb/oxidbtest"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store/storetest"
)

func TestOxiDBStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		srv := oxidbtest.Start(t)
		pool, err := db.NewPool(context.Background(), srv.Addr(), 2, zap.NewNop())
		require.NoError(t, err)
		s := NewStore(pool)
		require.NoError(t, s.EnsureIndexes(context.Background()))
		t.Cleanup(func() { s.Close() })
		return s
	})
}
