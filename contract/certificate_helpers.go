package contract

import (
	"context"
	"encoding/json"
	"time"

	"certregistry/registry"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// newRegistry binds a registry to the ledger, identity and clock of one transaction.
func (s *CertificateRegistryContract) newRegistry(ctx contractapi.TransactionContextInterface) *registry.Registry {
	retention := s.retention
	if retention == (registry.RetentionPolicy{}) {
		retention = registry.DefaultRetentionPolicy()
	}
	stub := ctx.GetStub()
	return registry.New(
		NewLedgerStore(stub),
		NewClientIdentityAuthenticator(ctx),
		NewTxClock(stub),
		registry.WithRetention(retention),
	)
}

// emitCertificateEvent sends a chaincode event. Failures are logged, not returned:
// the state change has already been accepted.
func (s *CertificateRegistryContract) emitCertificateEvent(ctx contractapi.TransactionContextInterface, eventName string, certID uint64, issuer string, isValid bool) {
	payload := map[string]interface{}{
		"certId":  certID,
		"issuer":  issuer,
		"isValid": isValid,
	}
	if ts, err := NewTxClock(ctx.GetStub()).Now(context.Background()); err == nil {
		payload["txTimestamp"] = time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
	}

	eventBytes, err := json.Marshal(payload)
	if err != nil {
		logger.Warningf("emitCertificateEvent: Failed to marshal event payload for event '%s' on certificate %d: %v", eventName, certID, err)
		return
	}
	if errSet := ctx.GetStub().SetEvent(eventName, eventBytes); errSet != nil {
		logger.Warningf("emitCertificateEvent: Failed to set event '%s' for certificate %d: %v", eventName, certID, errSet)
	}
}
