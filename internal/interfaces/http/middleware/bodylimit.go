package middleware

import (
	"net/http"

	"github.com/disi/commandes/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit returns a middleware that limits request body size. Multipart
// uploads are skipped; their routes carry their own UploadLimit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return limit(maxBytes, true)
}

// UploadLimit limits multipart bodies on a single route
func UploadLimit(maxBytes int64) gin.HandlerFunc {
	return limit(maxBytes, false)
}

func limit(maxBytes int64, skipMultipart bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipMultipart && c.ContentType() == "multipart/form-data" {
			c.Next()
			return
		}
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abort(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "Request body exceeds maximum allowed size")
			return
		}

		// Chunked bodies have no Content-Length
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// abort ends the chain with the standard error envelope
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, c.GetString(RequestIDKey)))
}
