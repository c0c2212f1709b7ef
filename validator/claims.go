package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// Claims are the registered claims of a token together with the complete
// decoded payload. Absent times are zero.
type Claims struct {
	Issuer    string
	Subject   string
	Audience  []string
	ID        string
	Expiry    time.Time
	NotBefore time.Time
	IssuedAt  time.Time

	// All holds every claim as decoded from the JSON payload.
	All map[string]any
}

// ParseClaims decodes a JSON token payload.
func ParseClaims(payload []byte) (Claims, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var all map[string]any
	if err := dec.Decode(&all); err != nil {
		return Claims{}, &MalformedTokenError{Err: err}
	}
	return ClaimsFromMap(all)
}

// ClaimsFromMap reads the registered claims out of an already decoded
// payload. Numbers may be float64 or json.Number.
func ClaimsFromMap(all map[string]any) (Claims, error) {
	c := Claims{All: all}
	var err error

	if c.Issuer, err = stringClaim(all, "iss"); err != nil {
		return Claims{}, err
	}
	if c.Subject, err = stringClaim(all, "sub"); err != nil {
		return Claims{}, err
	}
	if c.ID, err = stringClaim(all, "jti"); err != nil {
		return Claims{}, err
	}
	if c.Audience, err = audienceClaim(all); err != nil {
		return Claims{}, err
	}
	if c.Expiry, err = timeClaim(all, "exp"); err != nil {
		return Claims{}, err
	}
	if c.NotBefore, err = timeClaim(all, "nbf"); err != nil {
		return Claims{}, err
	}
	if c.IssuedAt, err = timeClaim(all, "iat"); err != nil {
		return Claims{}, err
	}
	return c, nil
}

func stringClaim(all map[string]any, name string) (string, error) {
	v, ok := all[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &MalformedTokenError{Err: fmt.Errorf("claim %q is not a string", name)}
	}
	return s, nil
}

func audienceClaim(all map[string]any) ([]string, error) {
	switch v := all["aud"].(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, a := range v {
			s, ok := a.(string)
			if !ok {
				return nil, &MalformedTokenError{Err: errors.New(`claim "aud" holds a non-string value`)}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &MalformedTokenError{Err: errors.New(`claim "aud" is neither a string nor an array`)}
	}
}

// maxUnixSeconds keeps time.Unix clear of int64 overflow. A zero claim
// means the claim is absent.
const maxUnixSeconds = 1 << 62

func timeClaim(all map[string]any, name string) (time.Time, error) {
	var seconds float64
	switch v := all[name].(type) {
	case nil:
		return time.Time{}, nil
	case float64:
		seconds = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, &MalformedTokenError{Err: fmt.Errorf("claim %q: %w", name, err)}
		}
		seconds = f
	case int64:
		seconds = float64(v)
	case time.Time:
		if v.IsZero() || v.Unix() == 0 {
			return time.Time{}, nil
		}
		return v, nil
	default:
		return time.Time{}, &MalformedTokenError{Err: fmt.Errorf("claim %q is not a number", name)}
	}

	switch {
	case seconds == 0:
		return time.Time{}, nil
	case math.IsNaN(seconds) || math.Abs(seconds) >= maxUnixSeconds:
		return time.Time{}, &MalformedTokenError{Err: fmt.Errorf("claim %q is out of range", name)}
	}

	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

// Validate checks lifetime, audience and issuer in that order and returns
// the first failure.
func (c Claims) Validate(p Parameters, now time.Time) error {
	if p.ValidateLifetime {
		if err := c.validateLifetime(p, now); err != nil {
			return err
		}
	}

	if p.ValidateAudience && !slices.ContainsFunc(c.Audience, func(aud string) bool {
		return slices.Contains(p.ValidAudiences, aud)
	}) {
		return &InvalidAudienceError{Audiences: c.Audience}
	}

	if p.ValidateIssuer && !slices.Contains(p.ValidIssuers, c.Issuer) {
		return &InvalidIssuerError{Issuer: c.Issuer}
	}

	return nil
}

func (c Claims) validateLifetime(p Parameters, now time.Time) error {
	if c.Expiry.IsZero() {
		if p.RequireExpirationTime {
			return &NoExpirationError{}
		}
	}
	if !c.NotBefore.IsZero() && !c.Expiry.IsZero() && c.NotBefore.After(c.Expiry) {
		return &InvalidLifetimeError{NotBefore: c.NotBefore, Expires: c.Expiry}
	}
	if !c.NotBefore.IsZero() && c.NotBefore.After(now.Add(p.ClockSkew)) {
		return &NotYetValidError{NotBefore: c.NotBefore}
	}
	if !c.Expiry.IsZero() && c.Expiry.Before(now.Add(-p.ClockSkew)) {
		return &ExpiredError{Expires: c.Expiry}
	}
	return nil
}
