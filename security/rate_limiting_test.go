package security

import (
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestNewRateLimiter_Defaults(t *testing.T) {
	db, _ := redismock.NewClientMock()

	r := NewRateLimiter(db, 0, 0)
	assert.Equal(t, 10, r.limit)
	assert.Equal(t, time.Minute, r.window)

	r = NewRateLimiter(db, 25, 30*time.Second)
	assert.Equal(t, 25, r.limit)
	assert.Equal(t, 30*time.Second, r.window)
}

func TestIsSuspiciousUserAgent(t *testing.T) {
	suspicious := []string{
		"Googlebot/2.1",
		"my-crawler 1.0",
		"SpiderMan agent",
		"price-scraper",
	}
	for _, ua := range suspicious {
		assert.True(t, isSuspiciousUserAgent(ua), "expected %q flagged", ua)
	}

	legitimate := []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"okhttp/4.9.2",
		"",
	}
	for _, ua := range legitimate {
		assert.False(t, isSuspiciousUserAgent(ua), "expected %q admitted", ua)
	}
}
