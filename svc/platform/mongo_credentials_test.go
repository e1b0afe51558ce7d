package platform_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dmitrymomot/shopflow/pkg/mongo"
	"github.com/dmitrymomot/shopflow/pkg/secrets"
	"github.com/dmitrymomot/shopflow/svc/platform"
)

func TestMongoCredentialStore(t *testing.T) {
	url := os.Getenv("SHOPFLOW_TEST_MONGODB_URL")
	if url == "" {
		t.Skip("SHOPFLOW_TEST_MONGODB_URL not set")
	}

	ctx := context.Background()
	db, err := mongo.Open(ctx, mongo.Config{
		ConnectionURL:  url,
		Database:       "shopflow_test_" + uuid.NewString()[:8],
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    10,
		RetryAttempts:  1,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Client().Disconnect(context.Background())
	})

	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	cipher, err := secrets.NewCipher(key)
	require.NoError(t, err)

	store := platform.NewMongoCredentialStore(db, cipher)
	require.NoError(t, store.EnsureIndexes(ctx))

	_, err = store.Get(ctx, platform.X, "u1")
	assert.ErrorIs(t, err, platform.ErrCredentialsNotFound)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Save(ctx, &platform.Credential{
		Platform:     platform.X,
		Scope:        "u1",
		AccountID:    "acc",
		AccessToken:  "plain-access",
		RefreshToken: "plain-refresh",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}))

	got, err := store.Get(ctx, platform.X, "u1")
	require.NoError(t, err)
	assert.Equal(t, "plain-access", got.AccessToken)
	assert.Equal(t, "plain-refresh", got.RefreshToken)
	assert.Equal(t, "acc", got.AccountID)
	assert.True(t, expiry.Equal(got.Expiry))

	var raw bson.M
	require.NoError(t, db.Collection("platform_credentials").FindOne(ctx, bson.D{{Key: "_id", Value: "x:u1"}}).Decode(&raw))
	assert.NotEqual(t, "plain-access", raw["access_token"])

	require.NoError(t, store.Delete(ctx, platform.X, "u1"))
	_, err = store.Get(ctx, platform.X, "u1")
	assert.ErrorIs(t, err, platform.ErrCredentialsNotFound)
}
