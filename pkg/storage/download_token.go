package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const downloadAudience = "classsync-download"

// ErrInvalidDownload covers malformed, forged and expired download tokens.
var ErrInvalidDownload = errors.New("invalid download token")

// DownloadClaims binds a token to one stored file.
type DownloadClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

// ResourceID is the subject of the token.
func (c DownloadClaims) ResourceID() string { return c.Subject }

// DownloadSigner issues HS256 tokens for self-authenticating download links.
// The audience keeps them from being accepted as access tokens and vice versa.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewDownloadSigner defaults ttl to a day and now to time.Now.
func NewDownloadSigner(secret string, ttl time.Duration, now func() time.Time) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl, now: now}
}

// Sign returns a token for resourceID at relPath together with its expiry.
func (s *DownloadSigner) Sign(resourceID, relPath string) (string, time.Time, error) {
	if resourceID == "" || relPath == "" {
		return "", time.Time{}, errors.New("resource id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("download signing secret missing")
	}
	issued := s.now()
	expires := issued.Add(s.ttl).Truncate(time.Second)
	claims := DownloadClaims{
		Path: relPath,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   resourceID,
			Audience:  jwt.ClaimStrings{downloadAudience},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return token, expires, nil
}

// Verify checks signature, audience and expiry.
func (s *DownloadSigner) Verify(token string) (*DownloadClaims, error) {
	claims := &DownloadClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(downloadAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDownload, err)
	}
	if claims.Subject == "" || claims.Path == "" {
		return nil, fmt.Errorf("%w: missing subject or path", ErrInvalidDownload)
	}
	return claims, nil
}
