package services

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// challengeMaxAge is how long an issued challenge token stays valid.
const challengeMaxAge = 600 * time.Second

// IsLikelyBot reports whether the request headers look automated.
// The checks are conservative: a false positive only costs one answer.
func IsLikelyBot(headers http.Header) bool {
	ua := strings.TrimSpace(headers.Get("User-Agent"))
	if len(ua) < minUserAgentLength {
		return true
	}

	lowerUA := strings.ToLower(ua)
	for _, sig := range botSignatures {
		if strings.Contains(lowerUA, sig) {
			return true
		}
	}

	if headers.Get("Accept-Language") == "" || headers.Get("Accept") == "" {
		return true
	}

	for _, engine := range browserEngines {
		if strings.Contains(lowerUA, engine) {
			return headers.Get("Accept-Encoding") == ""
		}
	}
	return false
}

// Challenger issues and verifies HMAC challenge tokens.
// A token is hex(HMAC-SHA256(secret, decimal timestamp)).
type Challenger struct {
	secret []byte
	now    func() time.Time
}

// NewChallenger creates a challenger signing with secret.
// An empty secret is replaced by a random per-process key, so tokens
// do not survive a restart.
func NewChallenger(secret string) *Challenger {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			logger.Warn("Failed to generate challenge secret: %v", err)
		}
		logger.Debug("Challenge secret not configured, using ephemeral key")
	}
	return &Challenger{secret: key, now: time.Now}
}

// WithClock replaces the time source.
func (c *Challenger) WithClock(now func() time.Time) *Challenger {
	c.now = now
	return c
}

// Issue returns a fresh token and the timestamp it signs.
func (c *Challenger) Issue() (string, int64) {
	ts := c.now().Unix()
	return c.sign(ts), ts
}

// Verify checks token against ts using a constant-time comparison.
// The timestamp must not be in the future or older than ten minutes.
func (c *Challenger) Verify(token string, ts int64) bool {
	age := c.now().Unix() - ts
	if age < 0 || age > int64(challengeMaxAge/time.Second) {
		return false
	}
	expected := c.sign(ts)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(token))))
}

func (c *Challenger) sign(ts int64) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
