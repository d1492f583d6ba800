package security

import (
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	applog "dailybudget/internal/log"
)

// DefaultTrustedProxies are the networks allowed to set forwarding headers.
// Pass them to gin's SetTrustedProxies so c.ClientIP() honours them.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",    // localhost
	"10.0.0.0/8",     // private networks
	"172.16.0.0/12",  // private networks
	"192.168.0.0/16", // private networks
}

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

var suspiciousAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan",
}

var blockedMethods = map[string]bool{
	"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true,
}

// Detector flags requests that look like probes
type Detector struct {
	suspicious int64
	blocked    int64
}

func NewDetector() *Detector {
	return &Detector{}
}

// DetectSuspiciousRequest reports whether r matches a known probe pattern
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	suspicious := false

	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	if unescaped, err := url.QueryUnescape(query); err == nil {
		query = unescaped
	}
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			suspicious = true
			break
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			suspicious = true
			break
		}
	}

	if blockedMethods[r.Method] {
		suspicious = true
	}

	// possible overflow attempt
	if len(r.URL.String()) > 2048 {
		suspicious = true
	}

	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		suspicious = true
	}

	if suspicious {
		atomic.AddInt64(&d.suspicious, 1)
	}
	return suspicious
}

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspicious),
		BlockedRequests:    atomic.LoadInt64(&d.blocked),
	}
}

// Middleware logs suspicious requests and rejects unusual methods with 405.
// Other suspicious requests continue to routing, which 404s unknown paths.
func (d *Detector) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !d.DetectSuspiciousRequest(c.Request) {
			c.Next()
			return
		}

		applog.FromContext(c.Request.Context()).WarnContext(c.Request.Context(), "Suspicious request detected",
			applog.FieldClientIP, c.ClientIP(),
			applog.FieldMethod, c.Request.Method,
			applog.FieldPath, c.Request.URL.Path,
			"user_agent", c.Request.UserAgent())

		if blockedMethods[c.Request.Method] {
			atomic.AddInt64(&d.blocked, 1)
			c.AbortWithStatus(http.StatusMethodNotAllowed)
			return
		}
		c.Next()
	}
}
