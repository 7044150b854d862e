package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	authdomain "github.com/smallbiznis/billable/internal/auth/domain"
	"github.com/smallbiznis/billable/internal/auth/session"
	"github.com/smallbiznis/billable/internal/authorization"
	"github.com/smallbiznis/billable/internal/orgcontext"
	"github.com/smallbiznis/billable/internal/ratelimit"
)

const identityKey = "identity"

// RequestLogger tags every request with an id and logs the outcome.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-Id", requestID)
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if c.Writer.Status() >= 500 {
			log.Error("request", fields...)
		} else {
			log.Info("request", fields...)
		}
	}
}

// Tracing opens a server span per request.
func Tracing(service string) gin.HandlerFunc {
	tracer := otel.Tracer(service)
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracer.Start(c.Request.Context(),
			c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

// RateLimit applies the redis token bucket per session (or IP for
// anonymous callers). A nil bucket disables limiting.
func RateLimit(bucket *ratelimit.TokenBucket, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bucket == nil {
			c.Next()
			return
		}
		key, ok := sessions.Read(c)
		if !ok {
			key = "ip:" + c.ClientIP()
		}
		if !bucket.Allow(c.Request.Context(), key) {
			c.AbortWithStatusJSON(429, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}

// Authenticate resolves the session cookie into an identity and loads the
// org scope into the request context.
func Authenticate(auth authdomain.Service, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := sessions.Read(c)
		if !ok {
			AbortWithError(c, authdomain.ErrSessionNotFound)
			return
		}
		id, err := auth.Resolve(c.Request.Context(), sid)
		if err != nil {
			sessions.Clear(c)
			AbortWithError(c, err)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), id.OrgID)
		ctx = orgcontext.WithUserID(ctx, id.UserID)
		ctx = orgcontext.WithRole(ctx, id.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Set(identityKey, id)
		c.Next()
	}
}

// Authorize enforces role access on a resource; GET maps to read,
// everything else to write.
func Authorize(authz *authorization.Authorizer, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		action := authorization.ActionWrite
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" {
			action = authorization.ActionRead
		}
		role := orgcontext.Role(c.Request.Context())
		if !authz.Can(role, resource, action) {
			AbortWithError(c, errForbidden)
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) *authdomain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*authdomain.Identity)
	return id
}
