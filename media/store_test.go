package media

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *R2Store {
	t.Helper()
	store, err := NewR2Store(R2Options{
		Endpoint:  "https://account.r2.cloudflarestorage.com",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		Bucket:    "checkins",
	})
	require.NoError(t, err)
	return store
}

func TestNewR2Store_RequiresSettings(t *testing.T) {
	_, err := NewR2Store(R2Options{AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err)

	_, err = NewR2Store(R2Options{Bucket: "b"})
	assert.Error(t, err)
}

func TestPresignGet(t *testing.T) {
	store := newTestStore(t)

	raw, err := store.PresignGet(context.Background(), "uploads/u1/abc.jpg", 300*time.Second)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "account.r2.cloudflarestorage.com", u.Host)
	assert.Equal(t, "/checkins/uploads/u1/abc.jpg", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	_, err = store.PresignGet(context.Background(), "", time.Minute)
	assert.Error(t, err)
}

func TestPresignPut(t *testing.T) {
	store := newTestStore(t)

	raw, err := store.PresignPut(context.Background(), "uploads/u1/abc.mp4", "video/mp4", time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/checkins/uploads/u1/abc.mp4", u.Path)
	assert.True(t, strings.Contains(u.Query().Get("X-Amz-SignedHeaders"), "content-type"))
}

func TestValidateUpload(t *testing.T) {
	assert.NoError(t, ValidateUpload("me.jpg", "image/jpeg", 1024))
	assert.ErrorIs(t, ValidateUpload("me.gif", "image/gif", 1024), ErrUnsupportedType)
	assert.ErrorIs(t, ValidateUpload("me.mp4", "video/mp4", MaxUploadBytes+1), ErrFileTooLarge)
	assert.ErrorIs(t, ValidateUpload("", "video/webm", 10), ErrMissingFileName)
}

func TestBuildUploadKey(t *testing.T) {
	key, err := BuildUploadKey("user-1", "video/quicktime")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "uploads/user-1/"))
	assert.True(t, strings.HasSuffix(key, ".mov"))

	other, err := BuildUploadKey("user-1", "video/quicktime")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = BuildUploadKey("user-1", "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestIsValidMediaType(t *testing.T) {
	assert.True(t, IsValidMediaType("image"))
	assert.True(t, IsValidMediaType("video"))
	assert.False(t, IsValidMediaType("audio"))
}
