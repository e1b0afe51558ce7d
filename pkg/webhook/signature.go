package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	HeaderSignature = "X-Shopflow-Signature"
	HeaderTimestamp = "X-Shopflow-Timestamp"
	HeaderEventID   = "X-Shopflow-Event-Id"
)

// Sign returns the hex HMAC-SHA256 of "<timestamp>.<body>".
func Sign(secret string, timestamp int64, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	h.Write([]byte{'.'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks the signature headers of a received delivery.
// maxAge of zero disables the replay window check.
func Verify(secret string, header http.Header, body []byte, maxAge time.Duration) error {
	sig := header.Get(HeaderSignature)
	if secret == "" || sig == "" {
		return fmt.Errorf("%w: missing secret or signature", ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}

	if maxAge > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > maxAge || age < -time.Minute {
			return fmt.Errorf("%w: timestamp outside of %v window", ErrInvalidSignature, maxAge)
		}
	}

	if !hmac.Equal([]byte(Sign(secret, ts, body)), []byte(sig)) {
		return fmt.Errorf("%w: mismatch", ErrInvalidSignature)
	}
	return nil
}
