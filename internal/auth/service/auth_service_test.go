package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	accountdomain "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/domain"
	accountrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/repository"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/audit"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/auth/lockout"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/security"
	sessiondomain "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/session/domain"
	sessionrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/session/repository"
)

// memAccounts mimics the postgres account repository, including the
// conditional lockout update semantics, against an injected clock.
type memAccounts struct {
	mu   sync.Mutex
	byID map[string]*accountdomain.Account
	now  func() time.Time
}

func newMemAccounts(now func() time.Time) *memAccounts {
	return &memAccounts{byID: map[string]*accountdomain.Account{}, now: now}
}

func (m *memAccounts) FindByID(_ context.Context, id string) (*accountdomain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*accountdomain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) Create(_ context.Context, a *accountdomain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == a.Email {
			return accountrepo.ErrDuplicateEmail
		}
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAccounts) RecordFailedAttempt(_ context.Context, id string, threshold int, lockDuration time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return 0, nil
	}
	now := m.now()
	a.LoginAttempts++
	if a.LoginAttempts >= threshold && (a.LockedUntil == nil || !a.LockedUntil.After(now)) {
		until := now.Add(lockDuration)
		a.LockedUntil = &until
	}
	return a.LoginAttempts, nil
}

func (m *memAccounts) RecordSuccess(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		now := m.now()
		a.LoginAttempts = 0
		a.LockedUntil = nil
		a.LastLoginAt = &now
	}
	return nil
}

func (m *memAccounts) UnlockExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.byID {
		if a.LockedUntil != nil && a.LockedUntil.Before(now) {
			a.LockedUntil = nil
			a.LoginAttempts = 0
			n++
		}
	}
	return n, nil
}

// memLedger mimics the postgres session ledger, including transactional
// rotation semantics.
type memLedger struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session
	tokens   []*sessiondomain.RefreshToken
	now      func() time.Time
}

func newMemLedger(now func() time.Time) *memLedger {
	return &memLedger{sessions: map[string]*sessiondomain.Session{}, now: now}
}

func (m *memLedger) CreateSession(_ context.Context, s *sessiondomain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memLedger) IsSessionValid(_ context.Context, accessTokenHash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.AccessTokenHash == accessTokenHash && !s.Revoked && s.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) CreateRefreshToken(_ context.Context, t *sessiondomain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tokens = append(m.tokens, &cp)
	return nil
}

func (m *memLedger) Rotate(_ context.Context, oldTokenHash string, next *sessiondomain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.FamilyID == next.FamilyID && t.TokenHash == oldTokenHash && !t.Revoked {
			now := m.now()
			t.Revoked = true
			t.RevokedAt = &now
			cp := *next
			m.tokens = append(m.tokens, &cp)
			return nil
		}
	}
	return sessionrepo.ErrRotationRejected
}

func (m *memLedger) RevokeFamily(_ context.Context, familyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, t := range m.tokens {
		if t.FamilyID == familyID && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *memLedger) RevokeAllForAccount(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, s := range m.sessions {
		if s.AccountID == accountID && !s.Revoked {
			s.Revoked = true
			s.RevokedAt = &now
		}
	}
	for _, t := range m.tokens {
		if t.AccountID == accountID && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = &now
		}
	}
	return nil
}

// memRecorder captures audit event types in order.
type memRecorder struct {
	mu     sync.Mutex
	events []string
}

func (m *memRecorder) Record(_ context.Context, _, eventType, _ string, _ audit.ClientMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
}

func (m *memRecorder) has(eventType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e == eventType {
			return true
		}
	}
	return false
}

type fixture struct {
	svc      *AuthService
	accounts *memAccounts
	ledger   *memLedger
	auditor  *memRecorder
	clock    *time.Time
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := &start
	now := func() time.Time { return *clock }

	codec, err := security.NewTestTokenCodec()
	if err != nil {
		t.Fatalf("test codec: %v", err)
	}
	accounts := newMemAccounts(now)
	ledger := newMemLedger(now)
	auditor := &memRecorder{}
	svc := NewAuthService(
		accounts, ledger,
		security.NewHasher(4), codec,
		lockout.NewPolicy(5, 30*time.Minute),
		auditor,
		15*time.Minute, 168*time.Hour, 8,
	).WithClock(now)
	return &fixture{svc: svc, accounts: accounts, ledger: ledger, auditor: auditor, clock: clock}
}

const (
	testEmail    = "user@example.com"
	testPassword = "Secret123!"
)

func (f *fixture) register(t *testing.T) *accountdomain.Account {
	t.Helper()
	acct, err := f.svc.Register(context.Background(), testEmail, testPassword, ClientMeta{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return acct
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	acct := f.register(t)

	if acct.ID == "" {
		t.Error("account ID should be set")
	}
	if acct.Status != accountdomain.AccountStatusActive {
		t.Errorf("Status = %q, want active", acct.Status)
	}
	if acct.EmailVerified {
		t.Error("EmailVerified should start false")
	}
	if acct.PasswordHash == testPassword {
		t.Error("password must not be stored in plaintext")
	}
	if !f.auditor.has(audit.EventRegister) {
		t.Error("register should be audited")
	}
}

func TestRegister_NormalizesEmail(t *testing.T) {
	f := newFixture(t)
	acct, err := f.svc.Register(context.Background(), "  User@Example.COM ", testPassword, ClientMeta{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if acct.Email != "user@example.com" {
		t.Errorf("Email = %q, want lowercased trimmed", acct.Email)
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"missing email", "", testPassword},
		{"malformed email", "not-an-email", testPassword},
		{"short password", testEmail, "Ab1"},
		{"no digit", testEmail, "Abcdefgh"},
		{"no letter", testEmail, "12345678"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.email, tc.password, ClientMeta{})
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, err := f.svc.Register(context.Background(), "USER@example.com", testPassword, ClientMeta{})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	acct := f.register(t)

	res, err := f.svc.Login(context.Background(), testEmail, testPassword, ClientMeta{IP: "10.0.0.1", UserAgent: "ua"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("login should return a token pair")
	}
	if res.Account.ID != acct.ID {
		t.Errorf("Account.ID = %q, want %q", res.Account.ID, acct.ID)
	}
	if !res.ExpiresAt.After(time.Now()) {
		t.Error("access expiry should be in the future")
	}

	got, err := f.svc.Validate(context.Background(), res.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.ID != acct.ID {
		t.Errorf("validated account = %q, want %q", got.ID, acct.ID)
	}
	if !f.auditor.has(audit.EventLoginSuccess) {
		t.Error("successful login should be audited")
	}
}

func TestLogin_UnknownEmailAndWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, errUnknown := f.svc.Login(context.Background(), "nobody@example.com", testPassword, ClientMeta{})
	_, errWrong := f.svc.Login(context.Background(), testEmail, "Wrong123!", ClientMeta{})

	// The two failures must be indistinguishable to the caller.
	if !errors.Is(errUnknown, ErrAuthenticationFailed) {
		t.Errorf("unknown email err = %v, want ErrAuthenticationFailed", errUnknown)
	}
	if !errors.Is(errWrong, ErrAuthenticationFailed) {
		t.Errorf("wrong password err = %v, want ErrAuthenticationFailed", errWrong)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := newFixture(t)
	acct := f.register(t)
	f.accounts.byID[acct.ID].Status = accountdomain.AccountStatusSuspended

	_, err := f.svc.Login(context.Background(), testEmail, testPassword, ClientMeta{})
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("err = %v, want ErrAuthenticationFailed", err)
	}
	if f.accounts.byID[acct.ID].LoginAttempts != 1 {
		t.Errorf("attempts = %d, want 1", f.accounts.byID[acct.ID].LoginAttempts)
	}
}

func TestLockout(t *testing.T) {
	f := newFixture(t)
	acct := f.register(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Login(ctx, testEmail, "Wrong123!", ClientMeta{}); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("attempt %d: err = %v, want ErrAuthenticationFailed", i+1, err)
		}
	}
	stored := f.accounts.byID[acct.ID]
	if stored.LockedUntil == nil {
		t.Fatal("account should be locked after 5 failures")
	}
	lockedUntil := *stored.LockedUntil
	if !f.auditor.has(audit.EventAccountLocked) {
		t.Error("lock should be audited")
	}

	// Correct password while locked is still rejected and does not extend the window.
	if _, err := f.svc.Login(ctx, testEmail, testPassword, ClientMeta{}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("err = %v, want ErrAccountLocked", err)
	}
	if !stored.LockedUntil.Equal(lockedUntil) {
		t.Errorf("LockedUntil moved from %v to %v during lock", lockedUntil, *stored.LockedUntil)
	}

	// After the window passes, the correct password succeeds and counters reset.
	f.advance(31 * time.Minute)
	res, err := f.svc.Login(ctx, testEmail, testPassword, ClientMeta{})
	if err != nil {
		t.Fatalf("login after window: %v", err)
	}
	if res.AccessToken == "" {
		t.Fatal("expected a token pair after unlock")
	}
	if stored.LoginAttempts != 0 || stored.LockedUntil != nil {
		t.Errorf("counters not reset: attempts=%d lockedUntil=%v", stored.LoginAttempts, stored.LockedUntil)
	}
}

func TestLockout_ExpiredWindowAllowsFreshAttempts(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.svc.Login(ctx, testEmail, "Wrong123!", ClientMeta{})
	}
	f.advance(31 * time.Minute)

	// A wrong password after expiry is a plain failure, not a lockout response.
	_, err := f.svc.Login(ctx, testEmail, "Wrong123!", ClientMeta{})
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("err = %v, want ErrAuthenticationFailed", err)
	}
}

func TestRefresh_Rotation(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, testEmail, testPassword, ClientMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	r2, err := f.svc.Refresh(ctx, res.RefreshToken, ClientMeta{})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if r2.RefreshToken == res.RefreshToken {
		t.Error("rotation must issue a new refresh token")
	}
	if _, err := f.svc.Validate(ctx, r2.AccessToken); err != nil {
		t.Errorf("new access token should validate: %v", err)
	}

	// Chained rotation keeps working.
	r3, err := f.svc.Refresh(ctx, r2.RefreshToken, ClientMeta{})
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if r3.RefreshToken == r2.RefreshToken {
		t.Error("each rotation must issue a new refresh token")
	}
}

func TestRefresh_ReuseRevokesFamily(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, testEmail, testPassword, ClientMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	r2, err := f.svc.Refresh(ctx, res.RefreshToken, ClientMeta{})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Replay of the already-rotated token is reuse.
	if _, err := f.svc.Refresh(ctx, res.RefreshToken, ClientMeta{}); !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("replay err = %v, want ErrRefreshFailed", err)
	}
	if !f.auditor.has(audit.EventRefreshReuse) {
		t.Error("reuse should produce a security audit event")
	}

	// The whole family is dead, including the latest descendant.
	if _, err := f.svc.Refresh(ctx, r2.RefreshToken, ClientMeta{}); !errors.Is(err, ErrRefreshFailed) {
		t.Errorf("descendant err = %v, want ErrRefreshFailed", err)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	f := newFixture(t)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := f.svc.Refresh(context.Background(), tok, ClientMeta{}); !errors.Is(err, ErrRefreshFailed) {
			t.Errorf("token %q: err = %v, want ErrRefreshFailed", tok, err)
		}
	}
}

func TestValidate_Rejections(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	if _, err := f.svc.Validate(ctx, "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("garbage token err = %v, want ErrTokenInvalid", err)
	}

	// A well-formed token with no backing session is rejected too.
	res, err := f.svc.Login(ctx, testEmail, testPassword, ClientMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	for _, s := range f.ledger.sessions {
		s.Revoked = true
	}
	if _, err := f.svc.Validate(ctx, res.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("revoked session err = %v, want ErrTokenInvalid", err)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	acct := f.register(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, testEmail, testPassword, ClientMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.svc.Validate(ctx, res.AccessToken); err != nil {
		t.Fatalf("validate before logout: %v", err)
	}

	if err := f.svc.Logout(ctx, acct.ID, ClientMeta{}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.Validate(ctx, res.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("validate after logout err = %v, want ErrTokenInvalid", err)
	}
	if _, err := f.svc.Refresh(ctx, res.RefreshToken, ClientMeta{}); !errors.Is(err, ErrRefreshFailed) {
		t.Errorf("refresh after logout err = %v, want ErrRefreshFailed", err)
	}

	// Idempotent.
	if err := f.svc.Logout(ctx, acct.ID, ClientMeta{}); err != nil {
		t.Errorf("second logout: %v", err)
	}
	if !f.auditor.has(audit.EventLogout) {
		t.Error("logout should be audited")
	}
}
