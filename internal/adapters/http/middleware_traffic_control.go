package httpadapter

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// TrafficConfig bounds what the API surface accepts. Verification requests
// hold a vision-model call open for tens of seconds, so saturation shows up
// as in-flight requests rather than raw request rate alone.
type TrafficConfig struct {
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	MaxInFlightWait time.Duration
}

func (c TrafficConfig) rateLimitBurst() int {
	if c.RateLimitBurst <= 0 {
		return 1
	}
	return c.RateLimitBurst
}

func (c TrafficConfig) maxInFlight() int {
	if c.MaxInFlight <= 0 {
		return 64
	}
	return c.MaxInFlight
}

func (c TrafficConfig) maxInFlightWait() time.Duration {
	if c.MaxInFlightWait <= 0 {
		return 500 * time.Millisecond
	}
	return c.MaxInFlightWait
}

func rateLimitMiddleware(next http.Handler, rps float64, burst int) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware caps concurrent requests. A request that cannot get
// a slot within the wait window is shed with 503 instead of queueing behind
// slow vision calls.
func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration) http.Handler {
	slots := make(chan struct{}, maxInFlight)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		case <-timer.C:
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "server is saturated"})
		case <-r.Context().Done():
		}
	})
}
