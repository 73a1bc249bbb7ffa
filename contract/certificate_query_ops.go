package contract

import (
	"context"
	"encoding/json"
	"fmt"

	"certregistry/model"
	"certregistry/registry"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// History actions.
const (
	actionIssued  = "ISSUED"
	actionRevoked = "REVOKED"
	actionDeleted = "DELETED"
)

// FindCertificate returns the certificate with the given ID, or an error when
// none exists. Use it instead of VerifyCertificate to treat absence as failure.
func (s *CertificateRegistryContract) FindCertificate(ctx contractapi.TransactionContextInterface, certID uint64) (*model.Certificate, error) {
	logger.Debugf("Chaincode Call: FindCertificate for %d", certID)

	cert, err := s.newRegistry(ctx).Lookup(context.Background(), certID)
	if err != nil {
		return nil, fmt.Errorf("FindCertificate: %w", err)
	}
	return &cert, nil
}

// GetCertificateHistory returns every committed version of a certificate,
// newest first as delivered by the peer's history database.
func (s *CertificateRegistryContract) GetCertificateHistory(ctx contractapi.TransactionContextInterface, certID uint64) ([]model.CertificateHistoryEntry, error) {
	logger.Debugf("Chaincode Call: GetCertificateHistory for %d", certID)

	historyIter, err := ctx.GetStub().GetHistoryForKey(registry.CertificateKey(certID))
	if err != nil {
		return nil, fmt.Errorf("GetCertificateHistory: failed to get history for certificate %d: %w", certID, err)
	}
	defer historyIter.Close()

	entries := []model.CertificateHistoryEntry{}
	for historyIter.HasNext() {
		item, iterErr := historyIter.Next()
		if iterErr != nil {
			logger.Warningf("GetCertificateHistory: Error iterating history for certificate %d: %v. Skipping entry.", certID, iterErr)
			continue
		}

		entry := model.CertificateHistoryEntry{
			TxID:     item.TxId,
			IsDelete: item.IsDelete,
			Action:   actionDeleted,
		}
		if item.Timestamp != nil {
			entry.Timestamp = item.Timestamp.AsTime()
		}
		if !item.IsDelete {
			var past model.Certificate
			if err := json.Unmarshal(item.Value, &past); err != nil {
				logger.Warningf("GetCertificateHistory: Failed to unmarshal version %s of certificate %d: %v", item.TxId, certID, err)
				entry.Action = ""
			} else {
				entry.Value = &past
				entry.Action = actionIssued
				if !past.IsValid {
					entry.Action = actionRevoked
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetRetention returns the retention horizon recorded by the last write.
// Both fields are zero before any certificate was issued.
func (s *CertificateRegistryContract) GetRetention(ctx contractapi.TransactionContextInterface) (*model.RetentionState, error) {
	state, err := NewLedgerStore(ctx.GetStub()).Retention()
	if err != nil {
		return nil, fmt.Errorf("GetRetention: %w", err)
	}
	if state == nil {
		state = &model.RetentionState{}
	}
	return state, nil
}

// GetCallerIdentity reports the identity an issuer must claim in
// IssueCertificate and RevokeCertificate.
func (s *CertificateRegistryContract) GetCallerIdentity(ctx contractapi.TransactionContextInterface) (map[string]string, error) {
	fullID, err := GetCurrentIdentityFullID(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetCallerIdentity: %w", err)
	}
	mspID, err := ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return nil, fmt.Errorf("GetCallerIdentity: failed to get MSPID: %w", err)
	}
	return map[string]string{
		"fullId": fullID,
		"mspId":  mspID,
	}, nil
}
