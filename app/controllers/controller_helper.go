package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP determines the caller's address behind Cloudflare or a reverse
// proxy. It is the rate limiter key for /use-access.
func ClientIP(c *fiber.Ctx) string {
	// 1. Cloudflare provides the original client IP
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}

	// 2. X-Forwarded-For can contain a list of IPs, the first one is the client
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	// 3. No proxy headers, use the connection address
	ipAddr := c.IP()
	if strings.HasPrefix(ipAddr, "::ffff:") && strings.Contains(ipAddr, ".") {
		// IPv4 in IPv6 mapping (::ffff:192.168.1.1)
		return strings.TrimPrefix(ipAddr, "::ffff:")
	}
	return ipAddr
}
