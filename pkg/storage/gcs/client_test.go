package gcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soledrop/soledrop-backend/pkg/config"
)

func TestPublicURL(t *testing.T) {
	cases := []struct {
		name string
		base string
		key  string
		want string
	}{
		{"default base", "", "listings/abc/photo.jpg", "https://storage.googleapis.com/bucket/listings/abc/photo.jpg"},
		{"trailing slash", "https://cdn.example.com/", "listings/a/b.png", "https://cdn.example.com/bucket/listings/a/b.png"},
		{"escapes segments", "https://cdn.example.com", "listings/a/my photo#1.jpg", "https://cdn.example.com/bucket/listings/a/my%20photo%231.jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, PublicURL(tc.base, "bucket", tc.key))
		})
	}
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCSConfig{}, config.GCPConfig{}, nil)
	require.Error(t, err)
}

func TestNilClientOperations(t *testing.T) {
	var c *Client
	require.Error(t, c.Ping(context.Background()))
	require.Error(t, c.Delete(context.Background(), "k"))
	require.NoError(t, c.Close())
	require.Equal(t, "", c.Bucket())
}
