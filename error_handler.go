package tenantjwt

import (
	"errors"
	"net/http"

	"github.com/auth0/go-tenant-jwt-middleware/tenantconfig"
)

// ErrorHandler is called when authentication faults, for instance on an
// incomplete tenant configuration. Token failures never reach it: they are
// answered with a challenge.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler answers 500 without leaking the fault to the client.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	if errors.Is(err, tenantconfig.ErrConfig) {
		_, _ = w.Write([]byte(`{"message":"Authentication is not configured for this tenant."}`))
		return
	}
	_, _ = w.Write([]byte(`{"message":"Something went wrong while checking the JWT."}`))
}
