// Package netx contains HTTP transfer helpers shared by the client transport:
// a progress-reporting body reader and status checking for raw responses.
package netx

import (
	"fmt"
	"io"
	"net/http"
	"sync"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 << 10

// ProgressFunc receives an integer completion percentage in 0..100.
type ProgressFunc func(percent int)

// Monotonic wraps fn so that it only observes strictly increasing values.
// Values above 100 are clamped. A nil fn yields a no-op.
func Monotonic(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(int) {}
	}
	var mu sync.Mutex
	last := -1
	return func(p int) {
		if p > 100 {
			p = 100
		}
		mu.Lock()
		if p <= last {
			mu.Unlock()
			return
		}
		last = p
		mu.Unlock()
		fn(p)
	}
}

// ProgressReader reports how much of a body of known size has been consumed.
// It never reports 100: completion is only known once the server answered,
// so in-flight progress is capped at 99.
type ProgressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress ProgressFunc
}

func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, onProgress: fn}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 && p.onProgress != nil {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 99 {
			pct = 99
		}
		p.onProgress(pct)
	}
	return n, err
}

// StatusError is returned for non-2xx responses. Body holds (a bounded prefix
// of) the response payload so callers can extract structured messages.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("request failed: %s", e.Status)
	}
	return fmt.Sprintf("request failed: %s; body: %s", e.Status, string(e.Body))
}

// CheckResponse returns nil for 2xx responses and a *StatusError otherwise.
// On error the body is drained (up to a limit) but not closed.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: b}
}
