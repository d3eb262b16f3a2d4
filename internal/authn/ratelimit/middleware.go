package ratelimit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SubjectExtractor resolves the authenticated subject for subject-scoped
// buckets. Returning "" skips the subject bucket for that request.
type SubjectExtractor func(c *gin.Context) string

// Middleware applies the limiter to a gin route. Which buckets are evaluated
// follows the limiter's scope; rejections respond 429 with a Retry-After
// header in seconds.
func (l *Limiter) Middleware(extract SubjectExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		scope := l.Scope()
		if scope == ScopeIP || scope == ScopeBoth {
			if err := l.Allow(c.Request.Context(), path, ScopeIP, ClientIP(c.Request)); err != nil {
				reject(c, err)
				return
			}
		}
		if (scope == ScopeSubject || scope == ScopeBoth) && extract != nil {
			if subject := extract(c); subject != "" {
				if err := l.Allow(c.Request.Context(), path, ScopeSubject, subject); err != nil {
					reject(c, err)
					return
				}
			}
		}

		c.Next()
	}
}

func reject(c *gin.Context, err error) {
	var retryErr *RetryError
	retryAfter := int64(0)
	if errors.As(err, &retryErr) {
		retryAfter = int64(retryErr.RetryAfter.Seconds())
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"detail":      "Too many requests",
		"retry_after": retryAfter,
	})
}
