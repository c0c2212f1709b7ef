package tenantjwt

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/auth0/go-tenant-jwt-middleware/validator"
)

// ErrorInvalidToken is the RFC 6750 error code of every challenge that
// carries details.
const ErrorInvalidToken = "invalid_token"

// Challenge answers 401 with a WWW-Authenticate header. When error details
// are enabled and result carries a failure, the header explains it.
func (h *Handler) Challenge(w http.ResponseWriter, r *http.Request, result Result) error {
	cc := &ChallengeContext{
		Request:  r,
		Response: w,
		Failure:  result.Failure,
		Realm:    h.realm,
	}
	if h.includeErrorDetails && result.Failure != nil {
		cc.Error = ErrorInvalidToken
		cc.ErrorDescription = ErrorDescription(result.Failure)
	}

	if h.events.Challenge != nil {
		if err := h.events.Challenge(cc); err != nil {
			return &EventError{Event: "Challenge", Err: err}
		}
		if cc.Handled {
			return nil
		}
	}

	w.Header().Set("WWW-Authenticate", cc.header())
	w.WriteHeader(http.StatusUnauthorized)
	return nil
}

// Forbid answers 403.
func (h *Handler) Forbid(w http.ResponseWriter, r *http.Request) error {
	principal, _ := PrincipalFromContext(r.Context())
	fc := &ForbiddenContext{Request: r, Response: w, Principal: principal}

	if h.events.Forbidden != nil {
		if err := h.events.Forbidden(fc); err != nil {
			return &EventError{Event: "Forbidden", Err: err}
		}
		if fc.Handled {
			return nil
		}
	}

	w.WriteHeader(http.StatusForbidden)
	return nil
}

// quotedPairs escapes a quoted-string value (RFC 9110 section 5.6.4).
var quotedPairs = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (c *ChallengeContext) header() string {
	var params []string
	add := func(name, value string) {
		if value != "" {
			params = append(params, fmt.Sprintf(`%s="%s"`, name, quotedPairs.Replace(value)))
		}
	}
	add("realm", c.Realm)
	add("error", c.Error)
	add("error_description", c.ErrorDescription)
	add("error_uri", c.ErrorURI)

	if len(params) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(params, ", ")
}

// ErrorDescription describes every validation failure in err, joined with
// "; ". Failures of unknown kinds are left out.
func ErrorDescription(err error) string {
	var messages []string
	for _, failure := range flatten(err) {
		if msg := describe(failure); msg != "" {
			messages = append(messages, msg)
		}
	}
	return strings.Join(messages, "; ")
}

func describe(err error) string {
	var (
		audience  *validator.InvalidAudienceError
		issuer    *validator.InvalidIssuerError
		noExp     *validator.NoExpirationError
		lifetime  *validator.InvalidLifetimeError
		notYet    *validator.NotYetValidError
		expired   *validator.ExpiredError
		keyMissed *validator.SignatureKeyNotFoundError
		signature *validator.InvalidSignatureError
	)

	switch {
	case errors.As(err, &audience):
		return fmt.Sprintf("The audience '%s' is invalid", strings.Join(audience.Audiences, ", "))
	case errors.As(err, &issuer):
		return fmt.Sprintf("The issuer '%s' is invalid", issuer.Issuer)
	case errors.As(err, &noExp):
		return "The token has no expiration"
	case errors.As(err, &lifetime):
		return fmt.Sprintf("The token lifetime is invalid; NotBefore: '%s', Expires: '%s'",
			formatTime(lifetime.NotBefore), formatTime(lifetime.Expires))
	case errors.As(err, &notYet):
		return fmt.Sprintf("The token is not valid before '%s'", formatTime(notYet.NotBefore))
	case errors.As(err, &expired):
		return fmt.Sprintf("The token expired at '%s'", formatTime(expired.Expires))
	case errors.As(err, &keyMissed):
		return "The signature key was not found"
	case errors.As(err, &signature):
		return "The signature is invalid"
	}
	return ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "(null)"
	}
	return t.UTC().Format(time.RFC3339)
}

// flatten expands errors.Join trees.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
