package resilience

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("rate limited"), 429)
	wrapped := fmt.Errorf("fetch failed: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	if !IsTransient(err) {
		t.Error("ECONNRESET should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	base := errors.New("HTTP 404")
	err := fmt.Errorf("fetch: %w", Permanent(base))
	if !IsPermanent(err) {
		t.Error("expected wrapped PermanentError to be permanent")
	}
	if !errors.Is(err, base) {
		t.Error("PermanentError should unwrap to its cause")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("disk hiccup"), true},
		{"transient", NewTransientError(errors.New("503"), 503), true},
		{"permanent", Permanent(errors.New("bad request")), false},
		{"missing file", fmt.Errorf("open x: %w", fs.ErrNotExist), false},
		{"cancelled", context.Canceled, false},
		{"deadline", eris.Wrap(context.DeadlineExceeded, "read"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExhaustedError_Is(t *testing.T) {
	last := errors.New("write failed")
	err := fmt.Errorf("load: %w", &ExhaustedError{Attempts: 3, Err: last})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Error("expected errors.Is(err, ErrRetryExhausted)")
	}
	if !errors.Is(err, last) {
		t.Error("expected exhausted error to unwrap to the last error")
	}
	var ee *ExhaustedError
	if !errors.As(err, &ee) || ee.Attempts != 3 {
		t.Errorf("expected ExhaustedError with 3 attempts, got %+v", ee)
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			if got := IsTransientHTTPStatus(tt.code); got != tt.want {
				t.Errorf("IsTransientHTTPStatus(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
