package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"delivery/internal/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response when a mutating request
// repeats an Idempotency-Key. Keys are scoped to the caller, method and path.
// Only successes and deterministic rejections are stored, so a retry after
// NoDriversAvailable, a conflict or a server error runs again.
func IdempotencyMiddleware(store redis.ResponseCacheInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to mutating methods.
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyCacheKey(c, key)

		data, err := store.Get(ctx, cacheKey)
		if err != nil {
			// Redis error - proceed without idempotency.
			c.Next()
			return
		}

		if data != nil {
			var cached cachedResponse
			if err := json.Unmarshal(data, &cached); err == nil {
				for k, v := range cached.Headers {
					for _, val := range v {
						c.Header(k, val)
					}
				}
				c.Header("Idempotent-Replayed", "true")
				c.Data(cached.StatusCode, "application/json", cached.Body)
				c.Abort()
				return
			}
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		if !replayable(status) {
			return
		}

		body := w.body.Bytes()
		if len(body) == 0 {
			body = []byte("null")
		}
		response := cachedResponse{
			StatusCode: status,
			Body:       body,
			Headers:    extractResponseHeaders(c),
		}
		if encoded, err := json.Marshal(response); err == nil {
			_ = store.Set(ctx, cacheKey, encoded, idempotencyTTL)
		}
	}
}

// replayable reports whether a response with status would be the same on a
// retry of the same request.
func replayable(status int) bool {
	switch {
	case status >= 200 && status < 300:
		return true
	case status == http.StatusBadRequest,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden:
		return true
	default:
		return false
	}
}

func idempotencyCacheKey(c *gin.Context, key string) string {
	caller := "anonymous"
	if identity, ok := IdentityFrom(c); ok && identity.ID != "" {
		caller = identity.ID
	}
	return caller + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	// Only cache Content-Type header.
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
