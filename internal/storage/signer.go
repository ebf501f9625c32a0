package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrSignatureInvalid = errors.New("blob url signature invalid")
	ErrSignatureExpired = errors.New("blob url signature expired")
)

// URLSigner mints and verifies HMAC-signed download URLs served by the
// service's own blob endpoint.
type URLSigner struct {
	secret     []byte
	baseURL    string
	defaultTTL time.Duration
	now        func() time.Time
}

func NewURLSigner(secret, baseURL string, defaultTTL time.Duration) *URLSigner {
	return &URLSigner{
		secret:     []byte(secret),
		baseURL:    strings.TrimRight(baseURL, "/"),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Sign returns a time-limited download URL for key.
func (s *URLSigner) Sign(key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("blob key is empty")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	exp := s.now().Add(ttl).Unix()
	sig := s.signature(key, exp)
	return fmt.Sprintf("%s/api/v1/blobs/%s?exp=%d&sig=%s",
		s.baseURL, url.PathEscape(key), exp, sig), nil
}

// Verify checks the signature and expiry for a presented key.
func (s *URLSigner) Verify(key string, exp int64, sig string) error {
	expected := s.signature(key, exp)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrSignatureInvalid
	}
	if s.now().Unix() > exp {
		return ErrSignatureExpired
	}
	return nil
}

func (s *URLSigner) signature(key string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
