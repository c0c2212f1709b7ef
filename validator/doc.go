/*
Package validator holds everything a token handler needs: the validation
Parameters assembled per request, the typed validation errors, claim
decoding and checking, the authenticated Principal and the TokenHandler
capability itself.

Validator is the default TokenHandler and verifies compact JWS tokens with
lestrrat-go/jwx. Other handlers live under validate/.

# Errors

Every validation failure matches ErrInvalidToken with errors.Is and can be
inspected with errors.As:

	var expired *validator.ExpiredError
	if errors.As(err, &expired) {
	    log.Printf("token expired at %s", expired.Expires)
	}

SignatureKeyNotFoundError is special: it tells the caller that the signing
keys it passed in may be stale.
*/
package validator
