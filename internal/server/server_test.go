package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFOCUS_Server_Readyz(t *testing.T) {
	t.Parallel()

	t.Run("ready once the catalog is loaded", func(t *testing.T) {
		t.Parallel()

		srv := newTestServerWithData(t)
		rec := httptest.NewRecorder()
		srv.readyzHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready without a catalog", func(t *testing.T) {
		t.Parallel()

		srv := &Server{log: testLogger()}
		rec := httptest.NewRecorder()
		srv.readyzHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestFOCUS_Server_AuthMiddleware(t *testing.T) {
	t.Parallel()

	srv := &Server{
		log: testLogger(),
		cfg: Config{AllowedTokens: []string{"token-a", "token-b"}},
	}

	var reached bool
	handler := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"first allowed token", "Bearer token-a", http.StatusOK},
		{"second allowed token", "Bearer token-b", http.StatusOK},
		{"scheme is case-insensitive", "bearer token-a", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reached = false
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)
			require.Equal(t, tc.wantStatus == http.StatusOK, reached)
			if tc.wantStatus == http.StatusUnauthorized {
				require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestFOCUS_Server_ConfigValidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing collaborators", func(t *testing.T) {
		t.Parallel()

		_, err := New(ctx, Config{})
		require.ErrorContains(t, err, "logger is required")

		_, err = New(ctx, Config{Logger: testLogger()})
		require.ErrorContains(t, err, "catalog is required")
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg := Config{}
		cfg.Logger = testLogger()
		require.Error(t, cfg.Validate())

		srv := newTestServerWithData(t)
		require.Equal(t, defaultFocusVersion, srv.cfg.DefaultVersion)
		require.Equal(t, defaultReadHeaderTimeout, srv.cfg.ReadHeaderTimeout)
		require.Equal(t, defaultShutdownTimeout, srv.cfg.ShutdownTimeout)
	})

	t.Run("version resolution", func(t *testing.T) {
		t.Parallel()

		cfg := Config{DefaultVersion: "1.1"}
		require.Equal(t, "1.1", cfg.version(""))
		require.Equal(t, "1.2", cfg.version("1.2"))
	})
}
