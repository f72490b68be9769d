package testutil

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func NewIs(t testing.TB) *Is {
	return &Is{t}
}

// Is wraps a test with go-cmp based assertions. Nil and empty slices or maps
// compare equal.
type Is struct {
	t testing.TB
}

func (is *Is) Equal(a, b any) {
	is.t.Helper()
	if d := cmp.Diff(a, b, cmpopts.EquateEmpty()); d != "" {
		is.t.Error(d)
	}
}

func (is *Is) Err(err error, baseErr error) {
	is.t.Helper()
	if err == nil {
		is.t.Error("expected error, got none")
	} else if baseErr != nil {
		if !errors.Is(err, baseErr) {
			is.t.Errorf("expected error %q, got %q", baseErr, err)
		}
	}
}

func (is *Is) NoErr(err error) {
	is.t.Helper()
	if err != nil {
		is.t.Error(err)
	}
}

func (is *Is) True(t bool) {
	is.t.Helper()
	if !t {
		is.t.Error("expected true")
	}
}
