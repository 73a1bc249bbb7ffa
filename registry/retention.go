package registry

import "fmt"

// Default retention horizon, in the store's time units.
const (
	DefaultRetentionThreshold uint64 = 5000
	DefaultRetentionExtendTo  uint64 = 5000
)

// RetentionPolicy is passed to Store.Commit with every write.
type RetentionPolicy struct {
	Threshold uint64
	ExtendTo  uint64
}

// DefaultRetentionPolicy returns the 5000/5000 horizon.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{Threshold: DefaultRetentionThreshold, ExtendTo: DefaultRetentionExtendTo}
}

// Validate rejects policies that could never satisfy their own threshold.
func (p RetentionPolicy) Validate() error {
	if p.ExtendTo == 0 {
		return fmt.Errorf("%w: extendTo must be positive", ErrInvalidRetention)
	}
	if p.ExtendTo < p.Threshold {
		return fmt.Errorf("%w: extendTo (%d) is below threshold (%d)", ErrInvalidRetention, p.ExtendTo, p.Threshold)
	}
	return nil
}
