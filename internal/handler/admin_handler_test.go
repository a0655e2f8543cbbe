package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/parisxmas/OxiDB/OxiSign/internal/auth"
	"github.com/parisxmas/OxiDB/OxiSign/internal/notify"
	"github.com/parisxmas/OxiDB/OxiSign/internal/service"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

func TestAdminPurgeRecordsCredential(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := service.NewAdminService(store.NewMemory(), notify.NewRecorder(), notify.NewComposer("http://sign.test"), zap.NewNop())
	admin, err := auth.NewAdmin("s3cret", Deny)
	require.NoError(t, err)
	h := admin.Middleware(http.HandlerFunc(NewAdminHandler(svc, zap.New(core)).ClearAll))

	tok, err := auth.GenerateToken("s3cret", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name    string
		header  string
		value   string
		auth    string
		subject any
	}{
		{"admin key", "X-Admin-Key", "s3cret", "key", nil},
		{"bearer token", "Authorization", "Bearer " + tok, "token", "admin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logs.TakeAll()
			req := httptest.NewRequest(http.MethodDelete, "/api/admin/clear-all-data", nil)
			req.Header.Set(tc.header, tc.value)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)

			entries := logs.FilterMessage("Admin purge").All()
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.Equal(t, "clear_all", fields["action"])
			assert.Equal(t, tc.auth, fields["auth"])
			assert.Equal(t, tc.subject, fields["subject"])
		})
	}
}
