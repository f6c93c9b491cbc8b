package middleware

import (
	"net/http"
	"strconv"
)

// CacheControl marks responses private. A zero maxAge forces revalidation on every use.
func CacheControl(maxAge uint) func(http.Handler) http.Handler {
	value := "private, no-cache"
	if maxAge > 0 {
		value = "private, max-age=" + strconv.FormatUint(uint64(maxAge), 10)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}
