// Package test holds assertion helpers shared by the package tests.
package test

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// MustBe uses reflect.DeepEqual to assert that thing1 and thing2 are equal, and
// fails otherwise.
func MustBe(t testing.TB, thing1, thing2 interface{}, context ...string) {
	t.Helper()
	if !reflect.DeepEqual(thing1, thing2) {
		t.Fatalf("%v'%#v' != '%#v'", prefix(context), thing1, thing2)
	}
}

// MustEqual asserts that want and got are equal according to cmp.Equal, which
// compares decimals by value rather than by representation, and fails with a
// diff otherwise.
func MustEqual(t testing.TB, want, got interface{}, context ...string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("%vmismatch (-want +got):\n%s", prefix(context), diff)
	}
}

// ErrNil asserts that the err is nil and fails otherwise.
func ErrNil(t testing.TB, err error, ctx string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%v: %v", ctx, err)
	}
}

// Dec parses s as a decimal and panics if it can't.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func prefix(context []string) string {
	if len(context) == 0 {
		return ""
	}
	return context[0] + ": "
}

// Uint64Slice implements the sorting interface on []uint64.
type Uint64Slice []uint64

func (p Uint64Slice) Len() int           { return len(p) }
func (p Uint64Slice) Less(i, j int) bool { return p[i] < p[j] }
func (p Uint64Slice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
