// Package platform publishes posts to social platforms through one uniform
// Adapter contract.
//
// Factory.Create resolves a platform name and a credential scope (the user
// owning the post) to an Adapter. OAuth tokens come from a CredentialStore;
// the Mongo store keeps them encrypted with pkg/secrets. Token sources are
// cached per (platform, scope) for the factory's lifetime and refreshed by
// golang.org/x/oauth2 when they expire, with the refreshed grant written
// back to the store.
//
//	f := platform.NewFactory(cfg, store)
//	a, err := f.Create(ctx, platform.Facebook, userID)
//	res, err := a.Publish(ctx, platform.PublishRequest{Title: "Hello"})
//
// Facebook, TikTok and X are supported; anything else fails with
// ErrUnsupportedPlatform. Adapter errors wrap one of ErrUnauthorized,
// ErrRejected, ErrPostNotFound, ErrNotSupported or ErrPlatformUnavailable.
package platform
