package contract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"certregistry/registry"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var idLogger = flogging.MustGetLogger("certregistry.identity")

// cid encodes "x509::<subject>::<issuer>" as base64; "eDUwOTo6" is the encoded prefix.
const (
	x509Prefix        = "x509::"
	encodedX509Prefix = "eDUwOTo6"
)

func isValidX509ID(id string) bool {
	return strings.HasPrefix(id, x509Prefix) || strings.HasPrefix(id, encodedX509Prefix)
}

// canonicalIdentity decodes a base64 client ID into its readable
// "x509::..." form. Any other value is returned unchanged.
func canonicalIdentity(id string) string {
	if !strings.HasPrefix(id, encodedX509Prefix) {
		return id
	}
	decoded, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		idLogger.Warningf("Client ID '%s' looks base64 encoded but failed to decode: %v", id, err)
		return id
	}
	return string(decoded)
}

// GetCurrentIdentityFullID returns the canonical X.509 ID of the transactor.
func GetCurrentIdentityFullID(ctx contractapi.TransactionContextInterface) (string, error) {
	clientIdentity := ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	if !isValidX509ID(id) {
		idLogger.Warningf("Current client ID '%s' does not appear to be a standard X.509 format.", id)
	}
	return canonicalIdentity(id), nil
}

// MustGetCallerFullID is GetCurrentIdentityFullID for log lines: it returns a
// placeholder instead of an error.
func MustGetCallerFullID(ctx contractapi.TransactionContextInterface) string {
	id, err := GetCurrentIdentityFullID(ctx)
	if err != nil {
		idLogger.Errorf("MustGetCallerFullID: %v. Returning placeholder.", err)
		return "UNKNOWN_CALLER"
	}
	return id
}

// ClientIdentityAuthenticator authenticates the claimed issuer against the
// transaction's client identity. The claim must equal the canonical
// "x509::<subject>::<issuer>" ID exactly.
type ClientIdentityAuthenticator struct {
	ctx contractapi.TransactionContextInterface
}

// NewClientIdentityAuthenticator binds an authenticator to one transaction.
func NewClientIdentityAuthenticator(ctx contractapi.TransactionContextInterface) *ClientIdentityAuthenticator {
	return &ClientIdentityAuthenticator{ctx: ctx}
}

func (a *ClientIdentityAuthenticator) RequireAuth(_ context.Context, identity string) error {
	callerID, err := GetCurrentIdentityFullID(a.ctx)
	if err != nil {
		return fmt.Errorf("cannot authenticate '%s': %v: %w", identity, err, registry.ErrUnauthorized)
	}
	if callerID != identity {
		return fmt.Errorf("caller '%s' is not authenticated as '%s': %w", callerID, identity, registry.ErrUnauthorized)
	}
	return nil
}
