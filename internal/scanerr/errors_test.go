package scanerr

import (
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(KindInput, "repository root does not exist")

	if err.Kind != KindInput {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInput)
	}
	if err.Message != "repository root does not exist" {
		t.Errorf("Message = %q, want %q", err.Message, "repository root does not exist")
	}
	if err.Recoverable {
		t.Error("KindInput should default to non-recoverable")
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		message   string
		cause     error
		path      string
		wantParts []string
	}{
		{
			name:      "with cause",
			kind:      KindParse,
			message:   "failed to parse",
			cause:     errors.New("unexpected token"),
			wantParts: []string{"parse", "failed to parse", "unexpected token"},
		},
		{
			name:      "without cause",
			kind:      KindDeadline,
			message:   "scan exceeded 20m budget",
			wantParts: []string{"deadline", "scan exceeded 20m budget"},
		},
		{
			name:      "with path",
			kind:      KindParse,
			message:   "failed to parse",
			path:      "src/App.tsx",
			wantParts: []string{"parse", "src/App.tsx", "failed to parse"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *Error
			if tt.cause != nil {
				err = Wrap(tt.kind, tt.message, tt.cause)
			} else {
				err = New(tt.kind, tt.message)
			}
			if tt.path != "" {
				err = err.WithPath(tt.path)
			}

			got := err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(KindInternal, "something went wrong", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}

	errNoCause := New(KindCache, "cache write failed")
	if errNoCause.Unwrap() != nil {
		t.Error("Unwrap() on error without cause should return nil")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"parse error recoverable", New(KindParse, "bad syntax"), false},
		{"cache error recoverable", New(KindCache, "write failed"), false},
		{"history error recoverable", New(KindHistory, "blame failed"), false},
		{"input error fatal", New(KindInput, "bad root"), true},
		{"internal error fatal", New(KindInternal, "invariant violated"), true},
		{"deadline error fatal", New(KindDeadline, "timed out"), true},
		{"unclassified error fatal", errors.New("plain error"), true},
		{"nil error not fatal", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(New(KindParse, "x")); got != KindParse {
		t.Errorf("KindOf = %v, want %v", got, KindParse)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain error) = %v, want %v", got, KindInternal)
	}
}

func TestWithPathChaining(t *testing.T) {
	err := New(KindParse, "bad syntax").WithPath("src/App.tsx")
	if err.Path != "src/App.tsx" {
		t.Errorf("Path = %q, want %q", err.Path, "src/App.tsx")
	}
}
