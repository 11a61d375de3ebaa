package middleware

import (
	"net"
	"net/http"

	cmap "github.com/orcaman/concurrent-map"
	"golang.org/x/time/rate"
)

// RateLimit allows each client address limit requests per second with the
// given burst. Excess requests are answered with 429.
func RateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiters := cmap.New()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			limiters.SetIfAbsent(host, rate.NewLimiter(limit, burst))
			v, _ := limiters.Get(host)
			if !v.(*rate.Limiter).Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
