package contract

import (
	"context"
	"fmt"

	"certregistry/model"
	"certregistry/registry"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("certregistry.contract")

// Chaincode event names.
const (
	eventCertificateIssued  = "CertificateIssued"
	eventCertificateRevoked = "CertificateRevoked"
)

// CertificateRegistryContract issues, verifies and revokes certificates.
// @contract:CertificateRegistryContract
type CertificateRegistryContract struct {
	contractapi.Contract
	retention registry.RetentionPolicy
}

// NewCertificateRegistryContract creates the contract with the given
// retention policy. The policy must be valid.
func NewCertificateRegistryContract(retention registry.RetentionPolicy) *CertificateRegistryContract {
	c := &CertificateRegistryContract{retention: retention}
	c.Name = "CertificateRegistryContract"
	return c
}

// Instantiate is called during chaincode instantiation.
func (s *CertificateRegistryContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("CertificateRegistryContract Instantiated/Upgraded")
}

// IssueCertificate records a certificate issued by the caller and returns its ID.
// issuer must be the caller's canonical "x509::..." identity.
func (s *CertificateRegistryContract) IssueCertificate(ctx contractapi.TransactionContextInterface, issuer, studentName, courseName, institution string) (uint64, error) {
	logger.Infof("Chaincode Call: IssueCertificate claimed issuer '%s', caller '%s'", issuer, MustGetCallerFullID(ctx))

	certID, err := s.newRegistry(ctx).Issue(context.Background(), issuer, studentName, courseName, institution)
	if err != nil {
		return 0, fmt.Errorf("IssueCertificate: %w", err)
	}

	s.emitCertificateEvent(ctx, eventCertificateIssued, certID, issuer, true)
	return certID, nil
}

// VerifyCertificate returns the certificate with the given ID. An unknown ID
// yields the not-found record (certId 0, isValid false) rather than an error.
func (s *CertificateRegistryContract) VerifyCertificate(ctx contractapi.TransactionContextInterface, certID uint64) (*model.Certificate, error) {
	logger.Debugf("Chaincode Call: VerifyCertificate for %d", certID)

	cert, err := s.newRegistry(ctx).Verify(context.Background(), certID)
	if err != nil {
		return nil, fmt.Errorf("VerifyCertificate: %w", err)
	}
	return &cert, nil
}

// RevokeCertificate marks a certificate invalid. Only its issuer may revoke it.
func (s *CertificateRegistryContract) RevokeCertificate(ctx contractapi.TransactionContextInterface, issuer string, certID uint64) error {
	logger.Infof("Chaincode Call: RevokeCertificate %d claimed issuer '%s', caller '%s'", certID, issuer, MustGetCallerFullID(ctx))

	if err := s.newRegistry(ctx).Revoke(context.Background(), issuer, certID); err != nil {
		return fmt.Errorf("RevokeCertificate: %w", err)
	}

	s.emitCertificateEvent(ctx, eventCertificateRevoked, certID, issuer, false)
	return nil
}

// GetTotalCertificates returns the number of certificates ever issued.
func (s *CertificateRegistryContract) GetTotalCertificates(ctx contractapi.TransactionContextInterface) (uint64, error) {
	logger.Debug("Chaincode Call: GetTotalCertificates")

	total, err := s.newRegistry(ctx).TotalCertificates(context.Background())
	if err != nil {
		return 0, fmt.Errorf("GetTotalCertificates: %w", err)
	}
	return total, nil
}
