package exr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	err := newError(KindGeometry, "write pixels", nil, "framebuffer size %dx%d does not match", 2, 3)
	wrapped := fmt.Errorf("outer: %w", err)

	if !errors.Is(wrapped, KindGeometry) {
		t.Error("errors.Is should match the error kind through wrapping")
	}
	if errors.Is(wrapped, KindSize) {
		t.Error("errors.Is matched the wrong kind")
	}
	if got := KindOf(wrapped); got != KindGeometry {
		t.Errorf("KindOf = %v, want %v", got, KindGeometry)
	}
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Errorf("KindOf(plain) = %v, want 0", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := newError(KindChannelMismatch, "insert channel", ErrDuplicateChannel, "'%s'", "R")
	if !errors.Is(err, ErrDuplicateChannel) {
		t.Error("errors.Is should find the wrapped sentinel")
	}
	want := "exr: insert channel: 'R': exr: duplicate channel name"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorMessageWithoutMsg(t *testing.T) {
	err := ioError("read offsets", errors.New("disk on fire"))
	if got, want := err.Error(), "exr: read offsets: disk on fire"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if KindOf(err) != KindIO {
		t.Errorf("KindOf = %v, want KindIO", KindOf(err))
	}
}
