package s3

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UsePathStyle: true,
		PresignTTL:   15 * time.Minute,
	}
}

func TestPresigner_PresignPut(t *testing.T) {
	ctx := context.Background()
	p, err := NewPresigner(ctx, testConfig())
	require.NoError(t, err)

	key := "companies/t1/projects/p1/files/0f5c"
	raw, expires, err := p.PresignPut(ctx, "uploads", key, "image/jpeg")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/uploads/"+key), u.Path)

	q := u.Query()
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))
	assert.Equal(t, "900", q.Get("X-Amz-Expires"))
	assert.Contains(t, q.Get("X-Amz-SignedHeaders"), "content-type")

	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expires, 5*time.Second)
}

func TestNewPresigner_RequiresTTL(t *testing.T) {
	cfg := testConfig()
	cfg.PresignTTL = 0
	_, err := NewPresigner(context.Background(), cfg)
	assert.Error(t, err)
}
