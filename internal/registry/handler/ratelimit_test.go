package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_blocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimiter(1, 2, time.Minute))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		router.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("burst requests = %v, want first two 200", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", statuses[2])
	}
}

func TestRateLimiter_separateBucketsPerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimiter(1, 1, time.Minute))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, addr := range []string{"203.0.113.7:1", "203.0.113.8:1"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("first request from %s = %d, want 200", addr, w.Code)
		}
	}
}

func TestLimiterPool_evictsIdleBuckets(t *testing.T) {
	pool := newLimiterPool(1, 1, 50*time.Millisecond)
	pool.get("203.0.113.7")
	pool.get("203.0.113.8")

	pool.mu.Lock()
	pool.buckets["203.0.113.7"].lastSeen = time.Now().Add(-time.Second)
	pool.mu.Unlock()

	pool.evictStale()

	pool.mu.Lock()
	defer pool.mu.Unlock()
	if _, ok := pool.buckets["203.0.113.7"]; ok {
		t.Error("idle bucket survived eviction")
	}
	if _, ok := pool.buckets["203.0.113.8"]; !ok {
		t.Error("fresh bucket was evicted")
	}
}
