package fault

import (
	"errors"
	"fmt"
	"testing"
)

// TestClassSurvivesWrapping checks marks are visible through fmt.Errorf chains.
func TestClassSurvivesWrapping(t *testing.T) {
	base := Invariantf("missing note %x", []byte{0xab})
	wrapped := fmt.Errorf("update notes:\n%w", fmt.Errorf("destroy input:\n%w", base))

	if !Is(wrapped, ErrInvariant) {
		t.Error("wrapped error lost invariant mark")
	}

	if Is(wrapped, ErrAuthorization) {
		t.Error("wrapped error gained authorization mark")
	}

	if got := ClassOf(wrapped); got != ClassInvariant {
		t.Errorf("ClassOf = %v, want invariant", got)
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		err  error
		want Class
	}{
		{nil, ClassNone},
		{errors.New("plain"), ClassNone},
		{Authorizationf("no permission"), ClassAuthorization},
		{Invariantf("duplicate note"), ClassInvariant},
		{Overflowf("supply overflow"), ClassOverflow},
		{Externalf("withdraw refused"), ClassExternal},
	}

	for _, tt := range tests {
		if got := ClassOf(tt.err); got != tt.want {
			t.Errorf("ClassOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

// TestExternalWinsOverCause checks a collaborator failure is reported as external.
func TestExternalWinsOverCause(t *testing.T) {
	cause := Invariantf("insufficient balance")
	err := External(cause, "deposit")

	if got := ClassOf(err); got != ClassExternal {
		t.Errorf("ClassOf = %v, want external", got)
	}

	if !Is(err, ErrInvariant) {
		t.Error("cause mark not preserved")
	}
}

// TestNewRoundTrip checks a class rebuilt from its wire form keeps the mark.
func TestNewRoundTrip(t *testing.T) {
	for _, c := range []Class{ClassAuthorization, ClassInvariant, ClassOverflow, ClassExternal} {
		err := New(c, "remote failure")

		if got := ClassOf(err); got != c {
			t.Errorf("New(%v) classified as %v", c, got)
		}

		if err.Error() != "remote failure" {
			t.Errorf("New(%v) message = %q", c, err.Error())
		}
	}

	if got := ClassOf(New(ClassNone, "x")); got != ClassNone {
		t.Errorf("New(none) classified as %v", got)
	}
}
