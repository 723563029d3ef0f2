package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Is(t *testing.T) {
	wrapped := WrapError(ErrProviderFailed, fmt.Errorf("connection refused"))

	if !errors.Is(wrapped, ErrProviderFailed) {
		t.Error("wrapped error should match its base by code")
	}
	if errors.Is(wrapped, ErrInvalidTrade) {
		t.Error("wrapped error should not match a different code")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	wrapped := WrapError(ErrStorageFailed, cause)

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestError_Message(t *testing.T) {
	err := WrapError(ErrAdvisoryMisconfigured, fmt.Errorf("api key empty"))
	want := "[ADVISORY_MISCONFIGURED] advisory model not configured: api key empty"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestFactorTable_Default(t *testing.T) {
	table := FactorTable{"000001": 1.02}

	if got := table.Factor("000001"); got != 1.02 {
		t.Errorf("known code: got %v, want 1.02", got)
	}
	if got := table.Factor("999999"); got != 1.0 {
		t.Errorf("absent code should default to 1.0, got %v", got)
	}
}

func TestQuote_IsValid(t *testing.T) {
	valid := Quote{Code: "000001", EstNav: 1.23, ChangePct: -0.5}
	if !valid.IsValid() {
		t.Error("quote with code and non-negative nav should be valid")
	}

	negative := Quote{Code: "000001", EstNav: -0.1}
	if negative.IsValid() {
		t.Error("negative estNav should be invalid")
	}

	noCode := Quote{EstNav: 1.0}
	if noCode.IsValid() {
		t.Error("quote without code should be invalid")
	}
}
