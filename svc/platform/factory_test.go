package platform_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/shopflow/svc/platform"
)

// fakePlatform serves an OAuth token endpoint and a tiny X-like API.
type fakePlatform struct {
	srv         *httptest.Server
	tokenCalls  atomic.Int32
	lastAuth    atomic.Value
	issuedToken string
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	fp := &fakePlatform{issuedToken: "fresh-token"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		fp.tokenCalls.Add(1)
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  fp.issuedToken,
			"token_type":    "Bearer",
			"refresh_token": "rotated-refresh",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, r *http.Request) {
		fp.lastAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1850","text":"hi"}}`))
	})

	fp.srv = httptest.NewServer(mux)
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakePlatform) config() platform.Config {
	p := platform.ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     fp.srv.URL + "/oauth/token",
		AuthURL:      fp.srv.URL + "/oauth/authorize",
		APIBaseURL:   fp.srv.URL,
	}
	return platform.Config{Facebook: p, TikTok: p, X: p, RequestTimeout: 5 * time.Second}
}

func TestFactory_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fp := newFakePlatform(t)
	store := platform.NewMemoryCredentialStore()
	require.NoError(t, store.Save(ctx, &platform.Credential{
		Platform:    platform.X,
		Scope:       "user-1",
		AccessToken: "valid-token",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	f := platform.NewFactory(fp.config(), store)

	t.Run("unsupported", func(t *testing.T) {
		_, err := f.Create(ctx, "myspace", "user-1")
		assert.ErrorIs(t, err, platform.ErrUnsupportedPlatform)
	})

	t.Run("not connected", func(t *testing.T) {
		_, err := f.Create(ctx, platform.Facebook, "user-1")
		assert.ErrorIs(t, err, platform.ErrCredentialsNotFound)
	})

	t.Run("valid token", func(t *testing.T) {
		a, err := f.Create(ctx, platform.X, "user-1")
		require.NoError(t, err)
		assert.Equal(t, platform.X, a.Platform())

		res, err := a.Publish(ctx, platform.PublishRequest{Title: "hi"})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "1850", res.PostID)
		assert.Equal(t, "Bearer valid-token", fp.lastAuth.Load())
		assert.Zero(t, fp.tokenCalls.Load())
	})
}

func TestFactory_RefreshesAndCachesPerScope(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fp := newFakePlatform(t)
	store := platform.NewMemoryCredentialStore()
	require.NoError(t, store.Save(ctx, &platform.Credential{
		Platform:     platform.X,
		Scope:        "user-2",
		AccessToken:  "expired-token",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	f := platform.NewFactory(fp.config(), store)

	for range 3 {
		a, err := f.Create(ctx, platform.X, "user-2")
		require.NoError(t, err)
		_, err = a.Publish(ctx, platform.PublishRequest{Body: "post"})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), fp.tokenCalls.Load())
	assert.Equal(t, "Bearer fresh-token", fp.lastAuth.Load())

	stored, err := store.Get(ctx, platform.X, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored.AccessToken)
	assert.Equal(t, "rotated-refresh", stored.RefreshToken)
	assert.True(t, stored.Expiry.After(time.Now()))
}

func TestFactory_Connect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fp := newFakePlatform(t)
	store := platform.NewMemoryCredentialStore()
	f := platform.NewFactory(fp.config(), store)

	authURL, err := f.AuthCodeURL(platform.Facebook, "state-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(authURL, fp.srv.URL+"/oauth/authorize?"))
	assert.Contains(t, authURL, "client_id=client")
	assert.Contains(t, authURL, "state=state-1")

	_, err = f.AuthCodeURL("myspace", "s")
	assert.ErrorIs(t, err, platform.ErrUnsupportedPlatform)

	cred, err := f.Connect(ctx, platform.Facebook, "user-3", "page-9", "code-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", cred.AccessToken)
	assert.Equal(t, "page-9", cred.AccountID)

	stored, err := store.Get(ctx, platform.Facebook, "user-3")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored.AccessToken)
	assert.Equal(t, "rotated-refresh", stored.RefreshToken)
}

func TestMemoryCredentialStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := platform.NewMemoryCredentialStore()
	_, err := store.Get(ctx, platform.X, "u")
	assert.ErrorIs(t, err, platform.ErrCredentialsNotFound)

	require.NoError(t, store.Save(ctx, &platform.Credential{Platform: platform.X, Scope: "u", AccessToken: "a"}))
	c, err := store.Get(ctx, platform.X, "u")
	require.NoError(t, err)
	assert.Equal(t, "a", c.AccessToken)
	assert.False(t, c.UpdatedAt.IsZero())

	require.NoError(t, store.Delete(ctx, platform.X, "u"))
	_, err = store.Get(ctx, platform.X, "u")
	assert.ErrorIs(t, err, platform.ErrCredentialsNotFound)
}
