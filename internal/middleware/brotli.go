package middleware

import (
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// brotliResponseWriter compresses the response body once the payload
// clears the minimum size. Small bodies go out untouched.
type brotliResponseWriter struct {
	gin.ResponseWriter
	bw        *brotli.Writer
	buf       []byte
	minLength int
	started   bool
}

func (w *brotliResponseWriter) Write(data []byte) (int, error) {
	if w.started {
		return w.bw.Write(data)
	}
	w.buf = append(w.buf, data...)
	if len(w.buf) < w.minLength {
		return len(data), nil
	}
	w.Header().Set("Content-Encoding", "br")
	w.Header().Del("Content-Length")
	w.started = true
	if _, err := w.bw.Write(w.buf); err != nil {
		return 0, err
	}
	w.buf = nil
	return len(data), nil
}

func (w *brotliResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *brotliResponseWriter) close() error {
	if w.started {
		return w.bw.Close()
	}
	if len(w.buf) > 0 {
		_, err := w.ResponseWriter.Write(w.buf)
		return err
	}
	return nil
}

// Brotli compresses responses for clients that accept it. Exam payloads
// carry full passages and option sets, which compress well.
func Brotli(minLength int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "br") {
			c.Next()
			return
		}
		// Upgrades manage their own connection.
		if c.GetHeader("Upgrade") != "" {
			c.Next()
			return
		}

		w := &brotliResponseWriter{
			ResponseWriter: c.Writer,
			bw:             brotli.NewWriterLevel(c.Writer, brotli.DefaultCompression),
			minLength:      minLength,
		}
		c.Writer = w
		c.Next()
		w.close()
	}
}
