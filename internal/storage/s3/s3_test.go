package s3

import (
	"encoding/json"
	"testing"

	"gatherly/configs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  configs.S3Config
		want string
	}{
		{
			name: "endpoint",
			cfg:  configs.S3Config{Endpoint: "http://minio:9000", Bucket: "post-images"},
			want: "http://minio:9000/post-images/post-1.jpg",
		},
		{
			name: "ssl",
			cfg:  configs.S3Config{Endpoint: "s3.example.com", Bucket: "post-images", UseSSL: true},
			want: "https://s3.example.com/post-images/post-1.jpg",
		},
		{
			name: "public base",
			cfg:  configs.S3Config{Endpoint: "minio:9000", Bucket: "post-images", PublicURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com/post-images/post-1.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			require.NoError(t, err)
			u := s.PublicURL("post-1.jpg")
			assert.Equal(t, tt.want, u)

			key, ok := s.KeyFromURL(u)
			assert.True(t, ok)
			assert.Equal(t, "post-1.jpg", key)
		})
	}
}

func TestKeyFromURL_Foreign(t *testing.T) {
	s, err := New(configs.S3Config{Endpoint: "minio:9000", Bucket: "post-images"})
	require.NoError(t, err)

	_, ok := s.KeyFromURL("https://elsewhere.example.com/x.png")
	assert.False(t, ok)
	_, ok = s.KeyFromURL("http://minio:9000/post-images/")
	assert.False(t, ok)
	_, ok = s.KeyFromURL("")
	assert.False(t, ok)
}

func TestPublicReadPolicy(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(publicReadPolicy("post-images")), &doc))
	assert.Contains(t, publicReadPolicy("post-images"), "arn:aws:s3:::post-images/*")
}
