package model

import "time"

// Values carried by the record Verify returns for an ID that was never issued.
const (
	NotFoundText      = "Not_Found"
	PlaceholderIssuer = "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF"
)

// Certificate is the record stored for every issued credential.
// Only IsValid changes after creation, and only from true to false.
type Certificate struct {
	CertID      uint64 `json:"certId"`      // Assigned by the registry, never client-supplied
	StudentName string `json:"studentName"` // Opaque to the registry
	CourseName  string `json:"courseName"`  // Opaque to the registry
	Institution string `json:"institution"` // Opaque to the registry
	IssueDate   uint64 `json:"issueDate"`   // Clock value at issuance
	Issuer      string `json:"issuer"`      // Authenticated identity that issued the record
	IsValid     bool   `json:"isValid"`     // False once revoked
}

// NotFoundCertificate returns the sentinel record for an absent ID.
// Callers detect it through CertID == 0 or IsValid == false.
func NotFoundCertificate() Certificate {
	return Certificate{
		CertID:      0,
		StudentName: NotFoundText,
		CourseName:  NotFoundText,
		Institution: NotFoundText,
		IssueDate:   0,
		Issuer:      PlaceholderIssuer,
		IsValid:     false,
	}
}

// IsSentinel reports whether c is the not-found record.
func (c Certificate) IsSentinel() bool {
	return c == NotFoundCertificate()
}

// CertificateHistoryEntry is one committed version of a certificate on the ledger.
type CertificateHistoryEntry struct {
	TxID      string       `json:"txId"`
	Timestamp time.Time    `json:"timestamp"`
	IsDelete  bool         `json:"isDelete"`
	Value     *Certificate `json:"value,omitempty" metadata:",optional"` // Nil for delete markers or undecodable values
	Action    string       `json:"action"`                              // ISSUED, REVOKED or DELETED
}

// RetentionState is the horizon the ledger adapter records on every write.
// World state never expires, so archival jobs read this to decide what is live.
type RetentionState struct {
	LiveUntil  uint64 `json:"liveUntil"`  // Unix seconds
	ExtendedAt uint64 `json:"extendedAt"` // Unix seconds of the tx that last extended it
}
