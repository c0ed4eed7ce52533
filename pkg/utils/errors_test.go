package utils

import (
	"errors"
	"testing"
)

func TestWrapNilStaysNil(t *testing.T) {
	if Wrap(nil, "load config") != nil {
		t.Fatal("wrapping nil must stay nil")
	}
	if Wrapf(nil, "merge %s config", "dev") != nil {
		t.Fatal("wrapping nil must stay nil")
	}
}

func TestWrapKeepsCauseUnwrappable(t *testing.T) {
	cause := errors.New("file missing")

	err := Wrap(cause, "load config")
	if err.Error() != "load config: file missing" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("Wrap must keep the cause reachable via errors.Is")
	}

	err = Wrapf(cause, "merge %s config", "dev")
	if err.Error() != "merge dev config: file missing" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("Wrapf must keep the cause reachable via errors.Is")
	}
}
