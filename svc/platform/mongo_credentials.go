package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/shopflow/pkg/secrets"
)

const credentialsCollection = "platform_credentials"

type credentialDocument struct {
	ID           string    `bson:"_id"`
	Platform     string    `bson:"platform"`
	Scope        string    `bson:"scope"`
	AccountID    string    `bson:"account_id,omitempty"`
	AccessToken  string    `bson:"access_token"`
	RefreshToken string    `bson:"refresh_token,omitempty"`
	TokenType    string    `bson:"token_type,omitempty"`
	Expiry       time.Time `bson:"expiry,omitempty"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// MongoCredentialStore keeps credentials in the "platform_credentials"
// collection. Tokens are encrypted with a key derived for each
// platform and scope pair.
type MongoCredentialStore struct {
	coll   *mongo.Collection
	cipher *secrets.Cipher
}

func NewMongoCredentialStore(db *mongo.Database, cipher *secrets.Cipher) *MongoCredentialStore {
	return &MongoCredentialStore{coll: db.Collection(credentialsCollection), cipher: cipher}
}

// EnsureIndexes creates the lookup index by scope.
func (s *MongoCredentialStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "scope", Value: 1}, {Key: "platform", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create credential indexes: %w", err)
	}
	return nil
}

func (s *MongoCredentialStore) Get(ctx context.Context, platform, scope string) (*Credential, error) {
	var doc credentialDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: credentialID(platform, scope)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s for %q", ErrCredentialsNotFound, platform, scope)
	}
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}

	access, err := s.cipher.DecryptString(doc.ID, doc.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	var refresh string
	if doc.RefreshToken != "" {
		if refresh, err = s.cipher.DecryptString(doc.ID, doc.RefreshToken); err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}

	return &Credential{
		Platform:     doc.Platform,
		Scope:        doc.Scope,
		AccountID:    doc.AccountID,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    doc.TokenType,
		Expiry:       doc.Expiry,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func (s *MongoCredentialStore) Save(ctx context.Context, cred *Credential) error {
	id := credentialID(cred.Platform, cred.Scope)

	access, err := s.cipher.EncryptString(id, cred.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	var refresh string
	if cred.RefreshToken != "" {
		if refresh, err = s.cipher.EncryptString(id, cred.RefreshToken); err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	doc := credentialDocument{
		ID:           id,
		Platform:     cred.Platform,
		Scope:        cred.Scope,
		AccountID:    cred.AccountID,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    cred.TokenType,
		Expiry:       cred.Expiry.UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	_, err = s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *MongoCredentialStore) Delete(ctx context.Context, platform, scope string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: credentialID(platform, scope)}}); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
