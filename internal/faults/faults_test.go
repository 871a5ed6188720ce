package faults

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrap(ErrConnectivity, "device", "fetch listing", "", base)
	if !IsConnectivity(err) {
		t.Fatalf("expected connectivity classification, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to remain observable")
	}
	if !strings.Contains(err.Error(), "device: fetch listing") {
		t.Fatalf("expected context in message, got %q", err.Error())
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "device", "upload", "bad response", nil)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("nil marker should default to protocol, got %v", err)
	}
}

func TestWrapWithoutContext(t *testing.T) {
	err := Wrap(ErrTimeout, "", "", "", nil)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout classification")
	}
	if !strings.Contains(err.Error(), "sync failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}
