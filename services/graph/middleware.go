// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphsvc

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiterTTL is how long an idle client keeps its token bucket.
const clientLimiterTTL = 10 * time.Minute

// RequestIDMiddleware ensures every request carries an X-Request-ID,
// generating one when the client omits it. The ID is stored in the gin
// context under "request_id" and echoed on the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := getOrCreateRequestID(c)
		c.Set("request_id", requestID)
		c.Next()
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a per-client token bucket keyed by remote
// address. Requests over the budget receive 429 with the standard error
// envelope.
//
// Idle buckets are pruned opportunistically so the map stays bounded by
// the active client count.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		clients   = make(map[string]*clientLimiter)
		lastPrune = time.Now()
	)

	return func(c *gin.Context) {
		key := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastPrune) > clientLimiterTTL {
			for ip, cl := range clients {
				if now.Sub(cl.lastSeen) > clientLimiterTTL {
					delete(clients, ip)
				}
			}
			lastPrune = now
		}
		cl, ok := clients[key]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			clients[key] = cl
		}
		cl.lastSeen = now
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
