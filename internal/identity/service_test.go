package identity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/store"
	"github.com/fieldbook/fieldbook/internal/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUserRepository is an in-memory UserRepository enforcing unique emails.
type memUserRepository struct {
	mu          sync.Mutex
	companies   map[string]*tenant.Company
	users       map[string]*User
	credentials map[string]*Credentials
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{
		companies:   make(map[string]*tenant.Company),
		users:       make(map[string]*User),
		credentials: make(map[string]*Credentials),
	}
}

func (m *memUserRepository) emailTaken(email string) bool {
	for _, u := range m.users {
		if u.Email == email {
			return true
		}
	}
	return false
}

func (m *memUserRepository) CreateCompanyWithOwner(_ context.Context, c *tenant.Company, u *User, cred *Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(u.Email) {
		return store.ErrUniqueViolation
	}
	m.companies[c.ID] = c
	m.users[u.ID] = u
	m.credentials[u.ID] = cred
	return nil
}

func (m *memUserRepository) CreateUser(_ context.Context, u *User, cred *Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(u.Email) {
		return store.ErrUniqueViolation
	}
	m.users[u.ID] = u
	m.credentials[u.ID] = cred
	return nil
}

func (m *memUserRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUserRepository) GetByID(_ context.Context, tenantID, userID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepository) ListByTenant(_ context.Context, tenantID string) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*User
	for _, u := range m.users {
		if u.TenantID == tenantID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memUserRepository) GetCredentials(_ context.Context, userID string) (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credentials[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (m *memUserRepository) UpdateLockout(_ context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.FailedLoginAttempts = failedAttempts
	u.LockedUntil = lockedUntil
	return nil
}

func newTestService(repo UserRepository) *Service {
	// Cheap parameters keep the tests fast.
	hasher := NewPasswordHasher(1024, 1, 1, 16, 32)
	return NewService(repo, hasher, audit.NopLogger{}, 3, 15*time.Minute)
}

// countingHasher counts verifications performed by the wrapped hasher.
type countingHasher struct {
	*PasswordHasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(password, encoded string) (bool, error) {
	h.verifies.Add(1)
	return h.PasswordHasher.Verify(password, encoded)
}

// TestPurpose: Validates that registration creates a company whose first user is an OWNER with UUIDv7 ids.
// Scope: Unit Test
// Security: Tenant bootstrap
// Expected: Company and user share the tenant id; the user is OWNER; password is stored hashed.
// Test Case ID: IDN-01
func TestIdentity_Register(t *testing.T) {
	repo := newMemUserRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	company, user, err := svc.Register(ctx, RegisterInput{
		CompanyName: "Acme Builders",
		Email:       "  Owner@Acme.test ",
		Name:        "Olga",
		Password:    "correct-horse",
	})
	require.NoError(t, err)

	uid, err := uuid.Parse(company.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), uid.Version())

	assert.Equal(t, company.ID, user.TenantID)
	assert.Equal(t, authz.RoleOwner, user.Role)
	assert.Equal(t, "owner@acme.test", user.Email)
	assert.NotContains(t, repo.credentials[user.ID].PasswordHash, "correct-horse")

	actor := user.Actor()
	assert.Equal(t, authz.Actor{UserID: user.ID, TenantID: company.ID, Role: authz.RoleOwner}, actor)
}

// TestPurpose: Validates that duplicate account registration is a Conflict.
// Scope: Unit Test
// Security: Account takeover prevention
// Expected: Second registration with the same email returns Conflict.
// Test Case ID: IDN-02
func TestIdentity_Register_DuplicateEmailConflict(t *testing.T) {
	svc := newTestService(newMemUserRepository())
	ctx := context.Background()

	in := RegisterInput{CompanyName: "A", Email: "a@a.test", Password: "password1"}
	_, _, err := svc.Register(ctx, in)
	require.NoError(t, err)

	in.CompanyName = "B"
	in.Email = "A@a.test"
	_, _, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, authz.ErrConflict)
}

func TestIdentity_Register_Validation(t *testing.T) {
	svc := newTestService(newMemUserRepository())
	ctx := context.Background()

	cases := []RegisterInput{
		{CompanyName: "", Email: "a@a.test", Password: "password1"},
		{CompanyName: "A", Email: "not-an-email", Password: "password1"},
		{CompanyName: "A", Email: "Name <a@a.test>", Password: "password1"},
		{CompanyName: "A", Email: "a@a.test", Password: "short"},
	}
	for _, in := range cases {
		_, _, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, authz.ErrBadRequest, "%+v", in)
	}
}

func TestIdentity_ProvisionUser(t *testing.T) {
	svc := newTestService(newMemUserRepository())
	ctx := context.Background()

	_, owner, err := svc.Register(ctx, RegisterInput{CompanyName: "A", Email: "o@a.test", Password: "password1"})
	require.NoError(t, err)

	member, err := svc.ProvisionUser(ctx, owner.Actor(), ProvisionInput{Email: "m@a.test", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, authz.RoleMember, member.Role)
	assert.Equal(t, owner.TenantID, member.TenantID)

	_, err = svc.ProvisionUser(ctx, member.Actor(), ProvisionInput{Email: "x@a.test", Password: "password1"})
	assert.ErrorIs(t, err, authz.ErrForbidden)

	_, err = svc.ProvisionUser(ctx, owner.Actor(), ProvisionInput{Email: "m@a.test", Password: "password1"})
	assert.ErrorIs(t, err, authz.ErrConflict)

	_, err = svc.ProvisionUser(ctx, owner.Actor(), ProvisionInput{Email: "y@a.test", Password: "password1", Role: "ADMIN"})
	assert.ErrorIs(t, err, authz.ErrBadRequest)

	users, err := svc.ListUsers(ctx, owner.Actor())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestIdentity_GetUser_OtherTenantIsNotFound(t *testing.T) {
	svc := newTestService(newMemUserRepository())
	ctx := context.Background()

	_, a, err := svc.Register(ctx, RegisterInput{CompanyName: "A", Email: "a@a.test", Password: "password1"})
	require.NoError(t, err)
	_, b, err := svc.Register(ctx, RegisterInput{CompanyName: "B", Email: "b@b.test", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.GetUser(ctx, a.Actor(), b.ID)
	assert.ErrorIs(t, err, authz.ErrNotFound)

	got, err := svc.GetUser(ctx, a.Actor(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

// TestPurpose: Validates that login failures are indistinguishable and lock the account after repeated attempts.
// Scope: Unit Test
// Security: Credential stuffing and user enumeration
// Expected: Unknown email, wrong password and locked account all return Unauthorized.
// Test Case ID: IDN-03
func TestIdentity_Authenticate(t *testing.T) {
	repo := newMemUserRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	_, user, err := svc.Register(ctx, RegisterInput{CompanyName: "A", Email: "a@a.test", Password: "password1"})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "A@a.test", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "nobody@a.test", "password1")
	assert.ErrorIs(t, err, authz.ErrUnauthorized)

	for i := 0; i < 3; i++ {
		_, err = svc.Authenticate(ctx, "a@a.test", "wrong-password")
		assert.ErrorIs(t, err, authz.ErrUnauthorized)
	}
	assert.NotNil(t, repo.users[user.ID].LockedUntil)

	_, err = svc.Authenticate(ctx, "a@a.test", "password1")
	assert.ErrorIs(t, err, authz.ErrUnauthorized, "locked account rejects the right password")
}

// TestPurpose: Validates that an unknown email costs a hash verification like a known one.
// Scope: Unit Test
// Security: Account enumeration through response timing
// Expected: Unauthorized, with exactly one Verify call in both cases.
// Test Case ID: IDN-04
func TestIdentity_Authenticate_UnknownEmailVerifiesDummyHash(t *testing.T) {
	repo := newMemUserRepository()
	hasher := &countingHasher{PasswordHasher: NewPasswordHasher(1024, 1, 1, 16, 32)}
	svc := NewService(repo, hasher, audit.NopLogger{}, 3, 15*time.Minute)
	ctx := context.Background()
	require.NotEmpty(t, svc.dummyHash)

	_, _, err := svc.Register(ctx, RegisterInput{CompanyName: "A", Email: "a@a.test", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "nobody@a.test", "password1")
	assert.ErrorIs(t, err, authz.ErrUnauthorized)
	assert.Equal(t, int32(1), hasher.verifies.Load())

	_, err = svc.Authenticate(ctx, "a@a.test", "wrong-password")
	assert.ErrorIs(t, err, authz.ErrUnauthorized)
	assert.Equal(t, int32(2), hasher.verifies.Load())
}

// TestPurpose: Validates that an expired lockout grants a full new series of attempts.
// Scope: Unit Test
// Security: Brute-force lockout
// Expected: After expiry one wrong password does not re-lock and the right one succeeds.
// Test Case ID: IDN-05
func TestIdentity_Authenticate_ExpiredLockoutResetsAttempts(t *testing.T) {
	repo := newMemUserRepository()
	svc := newTestService(repo)
	clock := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	ctx := context.Background()

	_, user, err := svc.Register(ctx, RegisterInput{CompanyName: "A", Email: "a@a.test", Password: "password1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Authenticate(ctx, "a@a.test", "wrong-password")
		assert.ErrorIs(t, err, authz.ErrUnauthorized)
	}
	require.NotNil(t, repo.users[user.ID].LockedUntil)

	clock = clock.Add(16 * time.Minute)

	_, err = svc.Authenticate(ctx, "a@a.test", "wrong-password")
	assert.ErrorIs(t, err, authz.ErrUnauthorized)
	assert.Nil(t, repo.users[user.ID].LockedUntil, "one miss after expiry must not re-lock")
	assert.Equal(t, 1, repo.users[user.ID].FailedLoginAttempts)

	got, err := svc.Authenticate(ctx, "a@a.test", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Zero(t, repo.users[user.ID].FailedLoginAttempts)
}

func TestPasswordHasher_Verify(t *testing.T) {
	hasher := NewPasswordHasher(1024, 1, 1, 16, 32)

	hash, err := hasher.Hash("s3cret-pass")
	require.NoError(t, err)

	ok, err := hasher.Verify("s3cret-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("other", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	// Hashes made with other parameters still verify.
	stronger := NewPasswordHasher(2048, 2, 2, 16, 32)
	old, err := stronger.Hash("s3cret-pass")
	require.NoError(t, err)
	ok, err = hasher.Verify("s3cret-pass", old)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, bad := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$AA$AA", "$argon2id$v=19$m=x$AA$AA"} {
		_, err = hasher.Verify("x", bad)
		assert.ErrorIs(t, err, ErrMalformedHash, bad)
	}
}
