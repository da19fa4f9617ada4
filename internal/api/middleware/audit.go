package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextIPAddress = "ip_address"
	ContextUserAgent = "user_agent"
)

// AuditMiddleware records who changed what. Reads pass through silently.
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract IP address - check X-Forwarded-For first (for proxies)
		ipAddress := c.GetHeader("X-Forwarded-For")
		if ipAddress == "" {
			ipAddress = c.GetHeader("X-Real-IP")
		}
		if ipAddress == "" {
			ipAddress = c.ClientIP()
		}
		// Handle comma-separated IPs (take the first one)
		if idx := strings.Index(ipAddress, ","); idx != -1 {
			ipAddress = strings.TrimSpace(ipAddress[:idx])
		}

		c.Set(ContextIPAddress, ipAddress)
		c.Set(ContextUserAgent, c.GetHeader("User-Agent"))

		c.Next()

		if !isMutation(c.Request.Method) {
			return
		}
		actor := "anonymous"
		if id, ok := GetAdminID(c); ok {
			actor = id.String()
		}
		log.Printf("audit: %s %s status=%d actor=%s ip=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), actor, ipAddress)
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// GetIPAddress retrieves IP address from context
func GetIPAddress(c *gin.Context) string {
	return c.GetString(ContextIPAddress)
}

// GetUserAgent retrieves user agent from context
func GetUserAgent(c *gin.Context) string {
	return c.GetString(ContextUserAgent)
}
