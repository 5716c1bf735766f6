package searchrev

import (
	"fmt"
)

// SchemaViolation is returned by the Reader when the header or a row does not
// fit the feed schema, or when a required field is empty. It is fatal to the
// run.
type SchemaViolation struct {
	Line   int    // 1 based line number in the feed, the header is line 1
	Field  string // column name, empty for whole-row problems
	Reason string
}

func (e *SchemaViolation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema violation at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("schema violation at line %d, field %s: %s", e.Line, e.Field, e.Reason)
}

// RevenueParseError is returned when the product list of a purchase hit is
// malformed. Entry is the index of the offending product entry.
type RevenueParseError struct {
	VisitorKey  string
	ProductList string
	Entry       int
	Err         error
}

func (e *RevenueParseError) Error() string {
	return fmt.Sprintf("parsing revenue for visitor %s, product entry %d of '%s': %v", e.VisitorKey, e.Entry, e.ProductList, e.Err)
}

// Cause supports errors.Cause from github.com/pkg/errors.
func (e *RevenueParseError) Cause() error { return e.Err }

// Unwrap supports errors.As and errors.Is.
func (e *RevenueParseError) Unwrap() error { return e.Err }

// AmbiguousKeywordError is returned by a strict KeywordExtractor when both
// query conventions match the same referrer.
type AmbiguousKeywordError struct {
	VisitorKey string
	Referrer   string
	Q          string
	P          string
}

func (e *AmbiguousKeywordError) Error() string {
	return fmt.Sprintf("ambiguous keyword for visitor %s: referrer '%s' matches both q=%q and p=%q", e.VisitorKey, e.Referrer, e.Q, e.P)
}
