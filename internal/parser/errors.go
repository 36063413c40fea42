package parser

import (
	"fmt"
	"strings"
)

// NotFoundError means a required field or selector yielded nothing.
type NotFoundError struct {
	Field string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no value found for %s", e.Field)
}

// DetailParseError means a field was present but failed its typed conversion.
type DetailParseError struct {
	Field string
	Value string
	Err   error
}

func (e *DetailParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from %q: %v", e.Field, e.Value, e.Err)
}

func (e *DetailParseError) Unwrap() error { return e.Err }

// TrailingTokensError means tokens were left after every declared field was
// read, which indicates the page template has changed.
type TrailingTokensError struct {
	Tokens []string
}

func (e *TrailingTokensError) Error() string {
	return fmt.Sprintf("unexpected trailing tokens: %s", strings.Join(e.Tokens, " | "))
}
