package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// maxDrainBytes bounds how much of a response body is read so the connection
// can be reused.
const maxDrainBytes = 64 << 10

type Prober struct {
	httpClient     *http.Client
	defaultTimeout time.Duration
	now            func() time.Time
}

func NewProber(httpClient *http.Client, defaultTimeout time.Duration) *Prober {
	return &Prober{
		httpClient:     httpClient,
		defaultTimeout: defaultTimeout,
		now:            time.Now,
	}
}

// Probe performs a single request against t. It never returns an error:
// transport failures and status mismatches are reported in the Result.
func (p *Prober) Probe(ctx context.Context, t Target) Result {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}
	method := t.Method
	if method == "" {
		method = http.MethodGet
	}
	expected := t.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := p.now()

	req, err := http.NewRequestWithContext(reqCtx, method, t.URL, nil)
	if err != nil {
		return Result{
			Success:   false,
			Reason:    ReasonInvalidRequest,
			Error:     err.Error(),
			CheckedAt: start,
		}
	}

	resp, err := p.httpClient.Do(req)
	elapsed := p.now().Sub(start)
	if err != nil {
		// DNS, refused connection, TLS and deadline failures all land here
		reason := classifyError(err)
		msg := err.Error()
		if reason == ReasonTimeout {
			msg = fmt.Sprintf("timed out after %s", timeout)
		}
		return Result{
			Success:      false,
			Reason:       reason,
			Error:        msg,
			ResponseTime: elapsed,
			CheckedAt:    start,
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode != expected {
		return Result{
			Success:      false,
			StatusCode:   resp.StatusCode,
			Reason:       ReasonUnexpectedStatus,
			Error:        fmt.Sprintf("HTTP %d (expected %d)", resp.StatusCode, expected),
			ResponseTime: elapsed,
			CheckedAt:    start,
		}
	}

	return Result{
		Success:      true,
		StatusCode:   resp.StatusCode,
		ResponseTime: elapsed,
		CheckedAt:    start,
	}
}

func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNSFailure
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonConnRefused
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ReasonTimeout
		}
		return ReasonNetworkError
	}

	return ReasonUnknown
}
