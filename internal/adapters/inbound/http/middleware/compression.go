package middleware

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
)

const (
	encodingBrotli   = "br"
	encodingGzip     = "gzip"
	encodingDeflate  = "deflate"
	encodingIdentity = "identity"
	encodingAny      = "*"

	headerAcceptEncoding  = "Accept-Encoding"
	headerContentEncoding = "Content-Encoding"
	headerContentLength   = "Content-Length"
	headerVary            = "Vary"

	compressionAlgorithmKey  = "compression.algorithm"
	compressionSkipReasonKey = "compression.skip_reason"

	httpCompressionTotal           = "http_compression_total"
	httpCompressionOriginalBytes   = "http_compression_original_bytes"
	httpCompressionCompressedBytes = "http_compression_compressed_bytes"
	httpCompressionSkippedTotal    = "http_compression_skipped_total"

	skipReasonNoEncoding      = "no_accept_encoding"
	skipReasonBelowMinSize    = "below_min_size"
	skipReasonNonCompressible = "non_compressible_type"
	skipReasonNoBody          = "no_body"
)

// serverPreference breaks ties between encodings the client weighs equally.
var serverPreference = []string{encodingBrotli, encodingGzip, encodingDeflate}

type (
	encoders struct {
		gzip    sync.Pool
		deflate sync.Pool
		brotli  sync.Pool
	}

	weightedEncoding struct {
		name    string
		quality float64
	}

	compressor struct {
		cfg           config.Compression
		contentTypes  []string
		encoders      *encoders
		logger        logger.Logger
		metricsClient metrics.Client
	}
)

func newEncoders(level int) *encoders {
	gzipLevel := level
	if _, err := gzip.NewWriterLevel(io.Discard, gzipLevel); err != nil {
		gzipLevel = gzip.DefaultCompression
	}

	brotliLevel := min(max(level, brotli.BestSpeed), brotli.BestCompression)

	return &encoders{
		gzip: sync.Pool{New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, gzipLevel)

			return w
		}},
		deflate: sync.Pool{New: func() any {
			w, _ := flate.NewWriter(io.Discard, gzipLevel)

			return w
		}},
		brotli: sync.Pool{New: func() any {
			return brotli.NewWriterLevel(io.Discard, brotliLevel)
		}},
	}
}

// get returns a pooled encoder writing to dst. Closing it hands it back to the pool.
func (e *encoders) get(encoding string, dst io.Writer) io.WriteCloser {
	switch encoding {
	case encodingBrotli:
		w := e.brotli.Get().(*brotli.Writer)
		w.Reset(dst)

		return &pooledEncoder{WriteCloser: w, release: func() { e.brotli.Put(w) }}
	case encodingGzip:
		w := e.gzip.Get().(*gzip.Writer)
		w.Reset(dst)

		return &pooledEncoder{WriteCloser: w, release: func() { e.gzip.Put(w) }}
	default:
		w := e.deflate.Get().(*flate.Writer)
		w.Reset(dst)

		return &pooledEncoder{WriteCloser: w, release: func() { e.deflate.Put(w) }}
	}
}

type pooledEncoder struct {
	io.WriteCloser
	release func()
}

func (p *pooledEncoder) Close() error {
	err := p.WriteCloser.Close()
	p.release()

	return err
}

// Compression negotiates a content encoding from Accept-Encoding and compresses
// responses whose type is listed in cfg. Clients that refuse every encoding we
// offer, identity included, get 406.
func Compression(cfg config.Compression, log logger.Logger, metricsClient metrics.Client) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	c := &compressor{
		cfg:           cfg,
		contentTypes:  cfg.ContentTypes,
		encoders:      newEncoders(cfg.Level),
		logger:        log.Component("compression"),
		metricsClient: metricsClient,
	}

	if len(c.contentTypes) == 0 {
		c.contentTypes = []string{applicationJSON}
	}

	return c.middleware
}

func (c *compressor) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add(headerVary, headerAcceptEncoding)

		accepted := parseAcceptEncoding(r.Header.Get(headerAcceptEncoding))

		encoding, acceptable := negotiateEncoding(accepted)
		if !acceptable {
			reqLogger := c.logger.WithContext(r.Context())
			reqLogger.Warn().
				Str("accept_encoding", r.Header.Get(headerAcceptEncoding)).
				Msg("client refused every encoding")

			writeError(w, http.StatusNotAcceptable, "NOT_ACCEPTABLE", "no acceptable content encoding available")

			return
		}

		if encoding == encodingIdentity {
			c.skipped(r.Context(), skipReasonNoEncoding)
			next.ServeHTTP(w, r)

			return
		}

		cw := &compressResponseWriter{
			ResponseWriter: w,
			compressor:     c,
			encoding:       encoding,
			status:         http.StatusOK,
		}

		defer func() {
			if err := cw.Close(); err != nil {
				reqLogger := c.logger.WithContext(r.Context())
				reqLogger.Error().Err(err).Str("compression_algorithm", encoding).Msg("failed to finish compressed response")
			}

			c.record(r.Context(), cw)
		}()

		next.ServeHTTP(cw, r)
	})
}

func (c *compressor) compressible(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return slices.ContainsFunc(c.contentTypes, func(allowed string) bool {
		return strings.EqualFold(allowed, mediaType)
	})
}

func (c *compressor) record(ctx context.Context, cw *compressResponseWriter) {
	if cw.encoder == nil {
		c.skipped(ctx, cw.skipReason)

		return
	}

	algorithm := attribute.String(compressionAlgorithmKey, cw.encoding)

	c.metricsClient.Inc(ctx, httpCompressionTotal, 1, algorithm)
	c.metricsClient.Inc(ctx, httpCompressionOriginalBytes, cw.originalBytes, algorithm)
	c.metricsClient.Inc(ctx, httpCompressionCompressedBytes, cw.counter.n, algorithm)

	reqLogger := c.logger.WithContext(ctx)
	reqLogger.Debug().
		Str("compression_algorithm", cw.encoding).
		Int("original_size", cw.originalBytes).
		Int("compressed_size", cw.counter.n).
		Msg("response compressed")
}

func (c *compressor) skipped(ctx context.Context, reason string) {
	if reason == "" {
		return
	}

	c.metricsClient.Inc(ctx, httpCompressionSkippedTotal, 1, attribute.String(compressionSkipReasonKey, reason))
}

// compressResponseWriter holds the body back until MinSize bytes are known,
// so small responses keep their Content-Length and skip the encoder.
type compressResponseWriter struct {
	http.ResponseWriter
	compressor *compressor
	encoding   string

	status      int
	statusSet   bool
	wroteHeader bool
	passthrough bool
	buf         []byte
	encoder     io.WriteCloser
	counter     *countingWriter

	originalBytes int
	skipReason    string
}

func (w *compressResponseWriter) WriteHeader(status int) {
	if status < http.StatusOK {
		w.ResponseWriter.WriteHeader(status)

		return
	}

	if w.statusSet || w.wroteHeader {
		return
	}

	w.status, w.statusSet = status, true

	if !bodyAllowed(status) {
		w.pass(skipReasonNoBody)
	}
}

func (w *compressResponseWriter) Write(b []byte) (int, error) {
	w.originalBytes += len(b)

	switch {
	case w.passthrough:
		return w.ResponseWriter.Write(b)
	case w.encoder != nil:
		return w.encoder.Write(b)
	}

	if contentType := w.Header().Get(contentTypeHeader); contentType != "" && !w.compressor.compressible(contentType) {
		w.pass(skipReasonNonCompressible)

		return w.ResponseWriter.Write(b)
	}

	w.buf = append(w.buf, b...)

	if len(w.buf) >= w.compressor.cfg.MinSize {
		if err := w.startEncoding(); err != nil {
			return 0, err
		}
	}

	return len(b), nil
}

// pass commits the header and writes everything uncompressed from here on.
func (w *compressResponseWriter) pass(reason string) {
	w.passthrough = true
	w.skipReason = reason
	w.commit()
}

func (w *compressResponseWriter) commit() {
	if w.wroteHeader {
		return
	}

	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *compressResponseWriter) startEncoding() error {
	w.Header().Set(headerContentEncoding, w.encoding)
	w.Header().Del(headerContentLength)
	w.commit()

	w.counter = &countingWriter{w: w.ResponseWriter}
	w.encoder = w.compressor.encoders.get(w.encoding, w.counter)

	buffered := w.buf
	w.buf = nil

	_, err := w.encoder.Write(buffered)

	return err
}

// Close finishes the encoded stream, or sends a body that stayed below MinSize as is.
func (w *compressResponseWriter) Close() error {
	if w.encoder != nil {
		return w.encoder.Close()
	}

	if w.passthrough {
		return nil
	}

	w.skipReason = skipReasonBelowMinSize
	if len(w.buf) == 0 {
		w.skipReason = skipReasonNoBody
	}

	w.Header().Set(headerContentLength, strconv.Itoa(len(w.buf)))
	w.commit()

	if len(w.buf) == 0 {
		return nil
	}

	_, err := w.ResponseWriter.Write(w.buf)
	w.buf = nil

	return err
}

func (w *compressResponseWriter) Flush() {
	if w.encoder == nil && !w.passthrough {
		if len(w.buf) == 0 {
			return
		}

		if err := w.startEncoding(); err != nil {
			return
		}
	}

	if flusher, ok := w.encoder.(interface{ Flush() error }); ok {
		_ = flusher.Flush()
	}

	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *compressResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += n

	return n, err
}

func bodyAllowed(status int) bool {
	return status >= http.StatusOK && status != http.StatusNoContent && status != http.StatusNotModified
}

func parseAcceptEncoding(header string) []weightedEncoding {
	var accepted []weightedEncoding

	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")

		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		quality := 1.0

		for param := range strings.SplitSeq(params, ";") {
			key, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found || strings.TrimSpace(key) != "q" {
				continue
			}

			if q, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				quality = q
			}
		}

		accepted = append(accepted, weightedEncoding{name: name, quality: quality})
	}

	return accepted
}

// negotiateEncoding picks the best encoding we offer. It reports false when the
// client has excluded identity and accepts none of ours.
func negotiateEncoding(accepted []weightedEncoding) (string, bool) {
	best, bestQuality := "", 0.0

	qualityOf := func(name string) (float64, bool) {
		wildcard, hasWildcard := 0.0, false

		for _, enc := range accepted {
			switch enc.name {
			case name:
				return enc.quality, true
			case encodingAny:
				wildcard, hasWildcard = enc.quality, true
			}
		}

		return wildcard, hasWildcard
	}

	for _, name := range serverPreference {
		if quality, ok := qualityOf(name); ok && quality > bestQuality {
			best, bestQuality = name, quality
		}
	}

	if best != "" {
		return best, true
	}

	if quality, listed := qualityOf(encodingIdentity); listed && quality == 0 {
		return "", false
	}

	return encodingIdentity, true
}
