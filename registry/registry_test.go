package registry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"certregistry/model"
	"certregistry/registry"
	"certregistry/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	issuerA = "x509::CN=issuer-a::CN=ca"
	issuerB = "x509::CN=issuer-b::CN=ca"
)

// callerAuth authenticates whichever identity is set as the current caller.
type callerAuth struct{ caller string }

func (a *callerAuth) RequireAuth(_ context.Context, identity string) error {
	if identity != a.caller {
		return fmt.Errorf("caller '%s' cannot act as '%s': %w", a.caller, identity, registry.ErrUnauthorized)
	}
	return nil
}

type fixture struct {
	reg   *registry.Registry
	store *memory.Store
	auth  *callerAuth
	now   uint64
}

func newFixture(t *testing.T, opts ...registry.Option) *fixture {
	t.Helper()
	f := &fixture{auth: &callerAuth{caller: issuerA}, now: 1_700_000_000}
	f.store = memory.NewStore(memory.WithClock(func() uint64 { return f.now }))
	clock := registry.ClockFunc(func(context.Context) (uint64, error) { return f.now, nil })
	f.reg = registry.New(f.store, f.auth, clock, opts...)
	return f
}

func (f *fixture) as(identity string) *fixture {
	f.auth.caller = identity
	return f
}

func TestIssue_AssignsSequentialIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for want := uint64(1); want <= 5; want++ {
		id, err := f.reg.Issue(ctx, issuerA, fmt.Sprintf("student-%d", want), "Course", "Univ")
		require.NoError(t, err)
		assert.Equal(t, want, id)

		total, err := f.reg.TotalCertificates(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, total)
	}
}

func TestIssue_StoresRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
	require.NoError(t, err)

	cert, err := f.reg.Verify(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.Certificate{
		CertID:      1,
		StudentName: "Alice",
		CourseName:  "Math101",
		Institution: "Univ",
		IssueDate:   f.now,
		Issuer:      issuerA,
		IsValid:     true,
	}, cert)
}

func TestIssue_AcceptsEmptyFields(t *testing.T) {
	f := newFixture(t)

	id, err := f.reg.Issue(context.Background(), issuerA, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestIssue_Unauthorized(t *testing.T) {
	f := newFixture(t).as(issuerB)
	ctx := context.Background()

	_, err := f.reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrUnauthorized)

	total, err := f.reg.TotalCertificates(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, f.store.Len())
	assert.Zero(t, f.store.LiveUntil())
}

func TestIssue_ExtendsRetention(t *testing.T) {
	f := newFixture(t)

	_, err := f.reg.Issue(context.Background(), issuerA, "Alice", "Math101", "Univ")
	require.NoError(t, err)
	assert.Equal(t, f.now+registry.DefaultRetentionExtendTo, f.store.LiveUntil())
}

func TestIssue_CustomRetention(t *testing.T) {
	f := newFixture(t, registry.WithRetention(registry.RetentionPolicy{Threshold: 10, ExtendTo: 20}))

	_, err := f.reg.Issue(context.Background(), issuerA, "Alice", "Math101", "Univ")
	require.NoError(t, err)
	assert.Equal(t, f.now+20, f.store.LiveUntil())
}

func TestVerify_NotFoundReturnsSentinel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []uint64{0, 1, 42} {
		cert, err := f.reg.Verify(ctx, id)
		require.NoError(t, err)
		assert.True(t, cert.IsSentinel())
		assert.Zero(t, cert.CertID)
		assert.False(t, cert.IsValid)
		assert.Equal(t, model.NotFoundText, cert.StudentName)
		assert.Equal(t, model.NotFoundText, cert.CourseName)
		assert.Equal(t, model.NotFoundText, cert.Institution)
		assert.Zero(t, cert.IssueDate)
		assert.Equal(t, model.PlaceholderIssuer, cert.Issuer)
	}
}

func TestLookup_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.reg.Lookup(context.Background(), 7)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestRevoke(t *testing.T) {
	t.Run("issuer revokes", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id, err := f.reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
		require.NoError(t, err)
		before, err := f.reg.Verify(ctx, id)
		require.NoError(t, err)

		f.now += 100
		require.NoError(t, f.reg.Revoke(ctx, issuerA, id))

		after, err := f.reg.Verify(ctx, id)
		require.NoError(t, err)
		assert.False(t, after.IsValid)
		before.IsValid = false
		assert.Equal(t, before, after)
	})

	t.Run("revoking twice succeeds", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id, err := f.reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
		require.NoError(t, err)

		require.NoError(t, f.reg.Revoke(ctx, issuerA, id))
		require.NoError(t, f.reg.Revoke(ctx, issuerA, id))

		cert, err := f.reg.Verify(ctx, id)
		require.NoError(t, err)
		assert.False(t, cert.IsValid)
	})

	t.Run("other issuer is rejected", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id, err := f.reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
		require.NoError(t, err)
		before, err := f.reg.Verify(ctx, id)
		require.NoError(t, err)

		err = f.as(issuerB).reg.Revoke(ctx, issuerB, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, registry.ErrNotIssuer)

		after, err := f.reg.Verify(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("caller not authenticated as claimed issuer", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id, err := f.reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
		require.NoError(t, err)

		err = f.as(issuerB).reg.Revoke(ctx, issuerA, id)
		assert.ErrorIs(t, err, registry.ErrUnauthorized)

		cert, err := f.reg.Verify(ctx, id)
		require.NoError(t, err)
		assert.True(t, cert.IsValid)
	})

	t.Run("missing certificate", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
		require.NoError(t, err)
		horizon := f.store.LiveUntil()
		f.now += registry.DefaultRetentionExtendTo - 1

		err = f.reg.Revoke(ctx, issuerA, 99)
		require.Error(t, err)
		assert.ErrorIs(t, err, registry.ErrNotFound)
		assert.False(t, errors.Is(err, registry.ErrNotIssuer))

		total, err := f.reg.TotalCertificates(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		assert.Equal(t, 2, f.store.Len())
		assert.Equal(t, horizon, f.store.LiveUntil())
	})
}

func TestRevoke_DoesNotAffectOtherCertificates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
	require.NoError(t, err)
	second, err := f.reg.Issue(ctx, issuerA, "Bob", "Physics", "Univ")
	require.NoError(t, err)
	before, err := f.reg.Verify(ctx, second)
	require.NoError(t, err)

	require.NoError(t, f.reg.Revoke(ctx, issuerA, first))

	after, err := f.reg.Verify(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	total, err := f.reg.TotalCertificates(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
}

func TestScenario_IssueRevokeVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	id, err = f.reg.Issue(ctx, issuerA, "Bob", "Physics", "Univ")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)

	total, err := f.reg.TotalCertificates(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)

	require.NoError(t, f.reg.Revoke(ctx, issuerA, 1))

	cert, err := f.reg.Verify(ctx, 1)
	require.NoError(t, err)
	assert.False(t, cert.IsValid)

	cert, err = f.reg.Verify(ctx, 2)
	require.NoError(t, err)
	assert.True(t, cert.IsValid)

	err = f.as(issuerB).reg.Revoke(ctx, issuerB, 2)
	assert.ErrorIs(t, err, registry.ErrNotIssuer)

	cert, err = f.reg.Verify(ctx, 2)
	require.NoError(t, err)
	assert.True(t, cert.IsValid)
}

// failingStore rejects any commit that touches failKey.
type failingStore struct {
	*memory.Store
	failKey string
}

func (s *failingStore) Commit(ctx context.Context, entries map[string][]byte, threshold, extendTo uint64) error {
	if _, ok := entries[s.failKey]; ok {
		return errors.New("disk full")
	}
	return s.Store.Commit(ctx, entries, threshold, extendTo)
}

func TestIssue_StorageFailure(t *testing.T) {
	for _, failKey := range []string{registry.CertificateKey(1), registry.CounterKey} {
		t.Run(failKey, func(t *testing.T) {
			st := &failingStore{Store: memory.NewStore(), failKey: failKey}
			clock := registry.ClockFunc(func(context.Context) (uint64, error) { return 1, nil })
			reg := registry.New(st, &callerAuth{caller: issuerA}, clock)
			ctx := context.Background()

			_, err := reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "disk full")

			total, err := reg.TotalCertificates(ctx)
			require.NoError(t, err)
			assert.Zero(t, total)

			cert, err := reg.Verify(ctx, 1)
			require.NoError(t, err)
			assert.True(t, cert.IsSentinel())
			assert.Zero(t, st.Len())
			assert.Zero(t, st.LiveUntil())
		})
	}
}

func TestRevoke_StorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.reg.Issue(ctx, issuerA, "Alice", "Math101", "Univ")
	require.NoError(t, err)

	st := &failingStore{Store: f.store, failKey: registry.CertificateKey(id)}
	clock := registry.ClockFunc(func(context.Context) (uint64, error) { return f.now, nil })
	reg := registry.New(st, f.auth, clock)

	err = reg.Revoke(ctx, issuerA, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	cert, err := f.reg.Verify(ctx, id)
	require.NoError(t, err)
	assert.True(t, cert.IsValid)
}

func TestIssue_ClockFailure(t *testing.T) {
	st := memory.NewStore()
	clock := registry.ClockFunc(func(context.Context) (uint64, error) { return 0, errors.New("no timestamp") })
	reg := registry.New(st, &callerAuth{caller: issuerA}, clock)

	_, err := reg.Issue(context.Background(), issuerA, "Alice", "Math101", "Univ")
	require.Error(t, err)
	assert.Zero(t, st.Len())
}

func TestTotalCertificates_CorruptCounter(t *testing.T) {
	st := memory.NewStore()
	require.NoError(t, st.Set(context.Background(), registry.CounterKey, []byte("not-a-number")))
	reg := registry.New(st, &callerAuth{}, registry.ClockFunc(func(context.Context) (uint64, error) { return 0, nil }))

	_, err := reg.TotalCertificates(context.Background())
	assert.Error(t, err)
}

func TestRetentionPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  registry.RetentionPolicy
		wantErr bool
	}{
		{name: "default", policy: registry.DefaultRetentionPolicy()},
		{name: "extend beyond threshold", policy: registry.RetentionPolicy{Threshold: 10, ExtendTo: 100}},
		{name: "zero extendTo", policy: registry.RetentionPolicy{Threshold: 0, ExtendTo: 0}, wantErr: true},
		{name: "extendTo below threshold", policy: registry.RetentionPolicy{Threshold: 100, ExtendTo: 10}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, registry.ErrInvalidRetention)
				return
			}
			assert.NoError(t, err)
		})
	}
}
