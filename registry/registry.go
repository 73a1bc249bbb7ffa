package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"certregistry/model"

	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("certregistry.registry")

// Storage layout. Both keys live in the same retention region.
const (
	CounterKey           = "CERT_CNT"
	certificateKeyPrefix = "Cert:"
)

// CertificateKey returns the storage key of the record with the given ID.
func CertificateKey(certID uint64) string {
	return certificateKeyPrefix + strconv.FormatUint(certID, 10)
}

// Registry issues, verifies and revokes certificates.
// It checks every precondition first and then writes through a single
// Store.Commit, so a failed operation leaves the store untouched.
type Registry struct {
	store     Store
	auth      Authenticator
	clock     Clock
	retention RetentionPolicy
}

// Option customizes a Registry.
type Option func(*Registry)

// WithRetention overrides the default retention policy.
func WithRetention(p RetentionPolicy) Option {
	return func(r *Registry) { r.retention = p }
}

// New creates a Registry over the given collaborators.
func New(store Store, auth Authenticator, clock Clock, opts ...Option) *Registry {
	r := &Registry{
		store:     store,
		auth:      auth,
		clock:     clock,
		retention: DefaultRetentionPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Issue records a new certificate issued by issuer and returns its ID.
// IDs start at 1 and are never reused.
func (r *Registry) Issue(ctx context.Context, issuer, studentName, courseName, institution string) (uint64, error) {
	if err := r.auth.RequireAuth(ctx, issuer); err != nil {
		return 0, err
	}

	count, err := r.TotalCertificates(ctx)
	if err != nil {
		return 0, err
	}
	count++

	issueDate, err := r.clock.Now(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read clock: %w", err)
	}

	cert := model.Certificate{
		CertID:      count,
		StudentName: studentName,
		CourseName:  courseName,
		Institution: institution,
		IssueDate:   issueDate,
		Issuer:      issuer,
		IsValid:     true,
	}
	raw, err := marshalCertificate(cert)
	if err != nil {
		return 0, err
	}
	err = r.commit(ctx, map[string][]byte{
		CertificateKey(count): raw,
		CounterKey:            []byte(strconv.FormatUint(count, 10)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save certificate %d: %w", count, err)
	}

	logger.Infof("Certificate issued with ID: %d", count)
	return count, nil
}

// Verify returns the stored certificate, or the not-found sentinel when no
// record exists. Absence is data, not an error; the error only reports
// storage failures.
func (r *Registry) Verify(ctx context.Context, certID uint64) (model.Certificate, error) {
	cert, found, err := r.getCertificate(ctx, certID)
	if err != nil {
		return model.Certificate{}, err
	}
	if !found {
		return model.NotFoundCertificate(), nil
	}
	return cert, nil
}

// Lookup is Verify for callers that want absence as ErrNotFound.
func (r *Registry) Lookup(ctx context.Context, certID uint64) (model.Certificate, error) {
	cert, found, err := r.getCertificate(ctx, certID)
	if err != nil {
		return model.Certificate{}, err
	}
	if !found {
		return model.Certificate{}, fmt.Errorf("certificate %d: %w", certID, ErrNotFound)
	}
	return cert, nil
}

// Revoke marks a certificate invalid. Only its issuer may do so.
// Revoking an already revoked certificate succeeds.
func (r *Registry) Revoke(ctx context.Context, issuer string, certID uint64) error {
	if err := r.auth.RequireAuth(ctx, issuer); err != nil {
		return err
	}

	cert, err := r.Lookup(ctx, certID)
	if err != nil {
		return err
	}
	if cert.Issuer != issuer {
		return fmt.Errorf("certificate %d: %w", certID, ErrNotIssuer)
	}

	cert.IsValid = false
	raw, err := marshalCertificate(cert)
	if err != nil {
		return err
	}
	if err := r.commit(ctx, map[string][]byte{CertificateKey(certID): raw}); err != nil {
		return fmt.Errorf("failed to save certificate %d: %w", certID, err)
	}

	logger.Infof("Certificate %d has been revoked", certID)
	return nil
}

// TotalCertificates returns how many certificates were ever issued, which is
// also the highest assigned ID. Revocation does not decrement it.
func (r *Registry) TotalCertificates(ctx context.Context) (uint64, error) {
	raw, err := r.store.Get(ctx, CounterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read certificate counter: %w", err)
	}
	if raw == nil {
		return 0, nil
	}
	count, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse certificate counter %q: %w", raw, err)
	}
	return count, nil
}

func (r *Registry) getCertificate(ctx context.Context, certID uint64) (model.Certificate, bool, error) {
	raw, err := r.store.Get(ctx, CertificateKey(certID))
	if err != nil {
		return model.Certificate{}, false, fmt.Errorf("failed to read certificate %d: %w", certID, err)
	}
	if raw == nil {
		return model.Certificate{}, false, nil
	}
	var cert model.Certificate
	if err := json.Unmarshal(raw, &cert); err != nil {
		return model.Certificate{}, false, fmt.Errorf("failed to unmarshal certificate %d: %w", certID, err)
	}
	return cert, true, nil
}

func marshalCertificate(cert model.Certificate) ([]byte, error) {
	raw, err := json.Marshal(cert)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal certificate %d: %w", cert.CertID, err)
	}
	return raw, nil
}

// commit writes entries and extends retention in one store call.
func (r *Registry) commit(ctx context.Context, entries map[string][]byte) error {
	return r.store.Commit(ctx, entries, r.retention.Threshold, r.retention.ExtendTo)
}
