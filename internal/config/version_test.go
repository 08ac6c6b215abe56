package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateVersion_Current(t *testing.T) {
	if err := ValidateVersion(CurrentVersion); err != nil {
		t.Fatalf("expected nil error for CurrentVersion, got %v", err)
	}
}

func TestValidateVersion_Invalid(t *testing.T) {
	for _, version := range []int{0, -1} {
		err := ValidateVersion(version)
		var ve *VersionError
		if !errors.As(err, &ve) {
			t.Fatalf("ValidateVersion(%d): expected *VersionError, got %T", version, err)
		}
		if ve.Reason != "invalid" {
			t.Fatalf("expected reason 'invalid', got %q", ve.Reason)
		}
	}
}

func TestValidateVersion_NewerThanBuild(t *testing.T) {
	err := ValidateVersion(CurrentVersion + 1)
	if err == nil {
		t.Fatal("expected error for version newer than build")
	}
	if !strings.Contains(err.Error(), "upgrade wa-relay") {
		t.Fatalf("expected upgrade hint, got %q", err.Error())
	}
}

func TestVersionError_NilReceiver(t *testing.T) {
	var ve *VersionError
	if got := ve.Error(); got != "" {
		t.Fatalf("expected empty string from nil VersionError, got %q", got)
	}
}

func TestVersionError_EmptyReason(t *testing.T) {
	ve := &VersionError{Version: 0, Current: 1}
	if ve.Error() == "" {
		t.Fatal("expected non-empty error message for empty reason")
	}
}
