// Package secrets encrypts stored credentials such as platform OAuth tokens.
//
// One application key (32 bytes, base64 in CREDENTIALS_APP_KEY) is expanded
// with HKDF-SHA256 into a separate AES-256-GCM key per scope, so rotating or
// leaking one scope's data never exposes another's:
//
//	key, err := secrets.ParseKey(cfg.AppKey)
//	c, err := secrets.NewCipher(key)
//	sealed, err := c.EncryptString("account-42", token)
//	token, err = c.DecryptString("account-42", sealed)
package secrets
