package storage

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestDownloadSignerRoundTrip(t *testing.T) {
	at := time.Date(2025, 8, 4, 9, 0, 0, 0, time.UTC)
	signer := NewDownloadSigner("secret", time.Hour, fixedNow(at))

	token, expires, err := signer.Sign("res-1", "resources/res-1/syllabus.pdf")
	require.NoError(t, err)
	assert.Equal(t, at.Add(time.Hour), expires)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "res-1", claims.ResourceID())
	assert.Equal(t, "resources/res-1/syllabus.pdf", claims.Path)
}

func TestDownloadSignerRejects(t *testing.T) {
	at := time.Date(2025, 8, 4, 9, 0, 0, 0, time.UTC)
	signer := NewDownloadSigner("secret", time.Hour, fixedNow(at))
	token, _, err := signer.Sign("res-1", "resources/res-1/a.pdf")
	require.NoError(t, err)

	_, err = NewDownloadSigner("other", time.Hour, fixedNow(at)).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidDownload)

	_, err = NewDownloadSigner("secret", time.Hour, fixedNow(at.Add(2*time.Hour))).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidDownload)

	// An access-style token signed with the same secret lacks the download audience.
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, DownloadClaims{
		Path: "resources/res-1/a.pdf",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "res-1",
			ExpiresAt: jwt.NewNumericDate(at.Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = signer.Verify(access)
	assert.ErrorIs(t, err, ErrInvalidDownload)

	_, _, err = NewDownloadSigner("", time.Hour, nil).Sign("res-1", "a")
	assert.Error(t, err)
}
