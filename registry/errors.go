package registry

import "errors"

// Errors returned (wrapped) by registry operations. Compare with errors.Is.
//
// - ErrUnauthorized: the caller did not authenticate as the claimed issuer
// - ErrNotFound: no certificate is stored under the requested ID
// - ErrNotIssuer: the caller is not the identity that issued the certificate
// - ErrInvalidRetention: the retention policy cannot be applied
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("certificate not found")
	ErrNotIssuer        = errors.New("only the original issuer can revoke this certificate")
	ErrInvalidRetention = errors.New("invalid retention policy")
)
