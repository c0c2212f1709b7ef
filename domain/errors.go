package domain

import (
	"errors"
	"fmt"
)

// Reason says why a hostname could not be parsed.
type Reason string

const (
	ReasonInvalidPart   Reason = "invalid domain part detected"
	ReasonPublicSuffix  Reason = "domain is a public suffix"
	ReasonUnknownDomain Reason = "unknown domain"
)

var (
	errEmptyHost = errors.New("host is empty")
	errIPAddress = errors.New("host is an IP address")
)

// ParseError is returned by Parser.Parse.
type ParseError struct {
	Host   string
	Reason Reason
	// Rule is the winning rule, nil when parsing failed before matching.
	Rule *Rule
	Err  error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("domain: %s: %q", e.Reason, e.Host)
	if e.Rule != nil {
		msg += fmt.Sprintf(" (rule %q)", e.Rule.String())
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
