package pkgerrors

import (
	"errors"
	"testing"
)

func TestWrapPreservesKindForErrorsIs(t *testing.T) {
	cause := errors.New("socket reset")
	err := Wrap(TransientExternal, cause)

	if !errors.Is(err, TransientExternal) {
		t.Fatal("expected errors.Is to match TransientExternal")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to match the original cause")
	}
	if errors.Is(err, PermanentExternal) {
		t.Fatal("did not expect errors.Is to match a different kind")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(TransientExternal, nil) != nil {
		t.Fatal("expected Wrap(kind, nil) to return nil")
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(DataMissing, "media %d missing host names", 42)
	if !errors.Is(err, DataMissing) {
		t.Fatal("expected errors.Is to match DataMissing")
	}
	if got, want := err.Error(), "required data missing: media 42 missing host names"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
