package middleware

import (
	"bytes"
	"net/http"
	"strings"
)

const (
	headerETag        = "ETag"
	headerIfNoneMatch = "If-None-Match"
)

// BufferedResponseWriter holds the whole response back so it can be tagged before sending.
type BufferedResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	body        *bytes.Buffer
	wroteHeader bool
}

func NewBufferedResponseWriter(w http.ResponseWriter) *BufferedResponseWriter {
	return &BufferedResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
	}
}

func (w *BufferedResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}

	w.statusCode = code
	w.wroteHeader = true
}

func (w *BufferedResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	return w.body.Write(b)
}

func (w *BufferedResponseWriter) StatusCode() int {
	return w.statusCode
}

func (w *BufferedResponseWriter) Body() []byte {
	return w.body.Bytes()
}

func (w *BufferedResponseWriter) FlushToClient() error {
	w.ResponseWriter.WriteHeader(w.statusCode)
	_, err := w.ResponseWriter.Write(w.body.Bytes())

	return err
}

// ConditionalGET tags successful GET responses and answers 304 when If-None-Match matches.
// A tag already set by the handler wins over the digest of the body.
func ConditionalGET(generator *ETagGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)

				return
			}

			brw := NewBufferedResponseWriter(w)

			next.ServeHTTP(brw, r)

			if brw.StatusCode() >= http.StatusMultipleChoices {
				_ = brw.FlushToClient()

				return
			}

			body := brw.Body()

			etag := w.Header().Get(headerETag)
			if etag == "" {
				etag = formatETag(generator.Generate(body))
				w.Header().Set(headerETag, etag)
			}

			if etagMatches(r.Header.Get(headerIfNoneMatch), etag) {
				w.WriteHeader(http.StatusNotModified)

				return
			}

			w.WriteHeader(brw.StatusCode())
			_, _ = w.Write(body)
		})
	}
}

// etagMatches uses weak comparison, as If-None-Match requires.
func etagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}

	if ifNoneMatch == "*" {
		return true
	}

	etag = strings.TrimPrefix(etag, "W/")

	for value := range strings.SplitSeq(ifNoneMatch, ",") {
		value = strings.TrimPrefix(strings.TrimSpace(value), "W/")
		if value == etag {
			return true
		}
	}

	return false
}

func formatETag(etag string) string {
	if strings.HasPrefix(etag, "\"") && strings.HasSuffix(etag, "\"") {
		return etag
	}

	return "\"" + etag + "\""
}
