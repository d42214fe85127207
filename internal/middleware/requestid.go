package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/elevate-portal/backend/pkg/response"
)

// HeaderRequestID is the request id header, settable by the caller.
const HeaderRequestID = "x-request-id"

// RequestID attaches a request id to the context and echoes it as a
// response header. A caller-supplied id is kept so clients can correlate.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Set(response.ContextRequestID, rid)
		c.Header(HeaderRequestID, rid)
		c.Next()
	}
}
