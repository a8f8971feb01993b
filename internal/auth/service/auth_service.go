// Package service implements the authentication orchestrator: credential
// verification, token issuance, refresh rotation, lockout, and revocation.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	accountdomain "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/domain"
	accountrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/repository"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/audit"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/auth/lockout"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/security"
	sessiondomain "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/session/domain"
	sessionrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/session/repository"
)

// Sentinel errors for the auth service; the HTTP handler maps them to status codes.
var (
	// ErrValidation marks user-correctable bad input; details are wrapped.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEmail is returned when registration hits an existing email.
	ErrDuplicateEmail = accountrepo.ErrDuplicateEmail
	// ErrAuthenticationFailed covers wrong credentials and unknown email,
	// indistinguishably.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrAccountLocked is returned while a lockout window is active.
	ErrAccountLocked = errors.New("account locked")
	// ErrTokenInvalid covers malformed, expired, forged, and revoked access tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrRefreshFailed covers expired, unknown, and reused refresh tokens.
	ErrRefreshFailed = errors.New("refresh failed")
	// ErrUnavailable marks transient storage or timeout failures, safe to retry.
	ErrUnavailable = errors.New("service unavailable")
)

var (
	hasLetter = regexp.MustCompile(`[A-Za-z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

// ClientMeta carries per-request client attributes into sessions and audit entries.
type ClientMeta struct {
	IP          string
	UserAgent   string
	Fingerprint string
}

func (m ClientMeta) audit() audit.ClientMeta {
	return audit.ClientMeta{IP: m.IP, UserAgent: m.UserAgent}
}

// AuthResult holds the outcome of Login or Refresh: a token pair and the account.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Account      *accountdomain.Account
}

// AccountStore is the minimal credential record store needed by the auth service.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*accountdomain.Account, error)
	FindByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	Create(ctx context.Context, a *accountdomain.Account) error
	RecordFailedAttempt(ctx context.Context, id string, threshold int, lockDuration time.Duration) (int, error)
	RecordSuccess(ctx context.Context, id string) error
	UnlockExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionLedger is the minimal session/refresh ledger needed by the auth service.
type SessionLedger interface {
	CreateSession(ctx context.Context, s *sessiondomain.Session) error
	IsSessionValid(ctx context.Context, accessTokenHash string, now time.Time) (bool, error)
	CreateRefreshToken(ctx context.Context, t *sessiondomain.RefreshToken) error
	Rotate(ctx context.Context, oldTokenHash string, next *sessiondomain.RefreshToken) error
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeAllForAccount(ctx context.Context, accountID string) error
}

// AuthService coordinates the credential store, lockout policy, session
// ledger, and token codec. Construction is strictly acyclic: build the codec
// and stores first, then the service, then any middleware holding it.
type AuthService struct {
	accounts    AccountStore
	ledger      SessionLedger
	hasher      *security.Hasher
	codec       *security.TokenCodec
	lock        lockout.Policy
	auditor     audit.Recorder
	accessTTL   time.Duration
	refreshTTL  time.Duration
	passwordMin int
	now         func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// passwordMin is the minimum accepted password length on registration.
func NewAuthService(
	accounts AccountStore,
	ledger SessionLedger,
	hasher *security.Hasher,
	codec *security.TokenCodec,
	lock lockout.Policy,
	auditor audit.Recorder,
	accessTTL, refreshTTL time.Duration,
	passwordMin int,
) *AuthService {
	if passwordMin <= 0 {
		passwordMin = 8
	}
	return &AuthService{
		accounts:    accounts,
		ledger:      ledger,
		hasher:      hasher,
		codec:       codec,
		lock:        lock,
		auditor:     auditor,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		passwordMin: passwordMin,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. For tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Register creates an account with the given email and password in Active
// status with email unverified. Returns ErrValidation for malformed input and
// ErrDuplicateEmail when the email is taken.
func (s *AuthService) Register(ctx context.Context, email, password string, client ClientMeta) (*accountdomain.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return nil, fmt.Errorf("%w: email: %v", ErrValidation, err)
	}
	if err := validation.Validate(password,
		validation.Required,
		validation.Length(s.passwordMin, 0),
		validation.Match(hasLetter).Error("must contain a letter"),
		validation.Match(hasDigit).Error("must contain a digit"),
	); err != nil {
		return nil, fmt.Errorf("%w: password: %v", ErrValidation, err)
	}

	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, storeErr(err)
	}
	now := s.now()
	acct := &accountdomain.Account{
		ID:            uuid.New().String(),
		Email:         email,
		PasswordHash:  hashed,
		Status:        accountdomain.AccountStatusActive,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := acct.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, accountrepo.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, storeErr(err)
	}
	s.auditor.Record(ctx, acct.ID, audit.EventRegister, "account registered", client.audit())
	return acct, nil
}

// Login authenticates with email/password, opens a session and a refresh
// chain, and returns a token pair. Unknown email and wrong password are
// indistinguishable to the caller; both cost one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientMeta) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrAuthenticationFailed
	}

	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err)
	}
	if acct == nil {
		s.hasher.CompareDummy([]byte(password))
		return nil, ErrAuthenticationFailed
	}

	now := s.now()
	if s.lock.IsLocked(acct, now) {
		// No password comparison while locked; the lock window is not extended.
		s.auditor.Record(ctx, acct.ID, audit.EventAccountLocked, "login attempt while locked", client.audit())
		return nil, ErrAccountLocked
	}
	if acct.LockedUntil != nil {
		// Stale lock from a window that already passed; clear it in batch.
		if _, err := s.accounts.UnlockExpired(ctx, now); err != nil {
			return nil, storeErr(err)
		}
	}

	if acct.Status != accountdomain.AccountStatusActive {
		s.hasher.CompareDummy([]byte(password))
		return nil, s.failAttempt(ctx, acct, "account not active", client)
	}
	if err := s.hasher.Compare(acct.PasswordHash, []byte(password)); err != nil {
		return nil, s.failAttempt(ctx, acct, "wrong password", client)
	}

	if err := s.accounts.RecordSuccess(ctx, acct.ID); err != nil {
		return nil, storeErr(err)
	}
	acct.LoginAttempts = 0
	acct.LockedUntil = nil
	lastLogin := now
	acct.LastLoginAt = &lastLogin

	result, err := s.openGrants(ctx, acct, uuid.New().String(), client)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, acct.ID, audit.EventLoginSuccess, "login succeeded", client.audit())
	return result, nil
}

// Refresh verifies and rotates the refresh token, opening a new session for
// the new access token. A rejected rotation is refresh-token reuse: the whole
// family is revoked and a security audit event written.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientMeta) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrRefreshFailed
	}
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrRefreshFailed
	}
	acct, err := s.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, storeErr(err)
	}
	if acct == nil || acct.Status != accountdomain.AccountStatusActive {
		return nil, ErrRefreshFailed
	}

	now := s.now()
	newRefresh, refreshExp, err := s.codec.IssueRefresh(acct.ID, claims.FamilyID, s.refreshTTL)
	if err != nil {
		return nil, storeErr(err)
	}
	next := &sessiondomain.RefreshToken{
		ID:        uuid.New().String(),
		AccountID: acct.ID,
		FamilyID:  claims.FamilyID,
		TokenHash: security.HashToken(newRefresh),
		ExpiresAt: refreshExp,
		CreatedAt: now,
	}
	if err := s.ledger.Rotate(ctx, security.HashToken(refreshToken), next); err != nil {
		if errors.Is(err, sessionrepo.ErrRotationRejected) {
			// Reuse containment: invalidate every descendant of this issuance.
			if revokeErr := s.ledger.RevokeFamily(ctx, claims.FamilyID); revokeErr != nil {
				return nil, storeErr(revokeErr)
			}
			s.auditor.Record(ctx, acct.ID, audit.EventRefreshReuse, "refresh token reuse detected; family revoked", client.audit())
			return nil, ErrRefreshFailed
		}
		return nil, storeErr(err)
	}

	sessionID := uuid.New().String()
	access, accessExp, err := s.codec.IssueAccess(acct.ID, sessionID, s.accessTTL)
	if err != nil {
		return nil, storeErr(err)
	}
	sess := &sessiondomain.Session{
		ID:                sessionID,
		AccountID:         acct.ID,
		AccessTokenHash:   security.HashToken(access),
		ExpiresAt:         accessExp,
		IPAddress:         client.IP,
		UserAgent:         client.UserAgent,
		DeviceFingerprint: client.Fingerprint,
		CreatedAt:         now,
	}
	if err := s.ledger.CreateSession(ctx, sess); err != nil {
		return nil, storeErr(err)
	}
	s.auditor.Record(ctx, acct.ID, audit.EventRefresh, "refresh token rotated", client.audit())
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: newRefresh,
		ExpiresAt:    accessExp,
		Account:      acct,
	}, nil
}

// Validate verifies an access token and confirms its backing session is still
// live, covering server-side revocation the stateless token cannot express.
func (s *AuthService) Validate(ctx context.Context, accessToken string) (*accountdomain.Account, error) {
	claims, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	valid, err := s.ledger.IsSessionValid(ctx, security.HashToken(accessToken), s.now())
	if err != nil {
		return nil, storeErr(err)
	}
	if !valid {
		return nil, ErrTokenInvalid
	}
	acct, err := s.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, storeErr(err)
	}
	if acct == nil || acct.Status != accountdomain.AccountStatusActive {
		return nil, ErrTokenInvalid
	}
	return acct, nil
}

// Logout revokes every session and refresh token for the account. Idempotent;
// a second logout revokes nothing new and still succeeds.
func (s *AuthService) Logout(ctx context.Context, accountID string, client ClientMeta) error {
	if accountID == "" {
		return nil
	}
	if err := s.ledger.RevokeAllForAccount(ctx, accountID); err != nil {
		return storeErr(err)
	}
	s.auditor.Record(ctx, accountID, audit.EventLogout, "all sessions revoked", client.audit())
	return nil
}

// failAttempt runs the atomic increment, audits the failure (and the lock,
// when this attempt begins one), and returns ErrAuthenticationFailed.
func (s *AuthService) failAttempt(ctx context.Context, acct *accountdomain.Account, reason string, client ClientMeta) error {
	attempts, err := s.accounts.RecordFailedAttempt(ctx, acct.ID, s.lock.Threshold, s.lock.LockDuration)
	if err != nil {
		return storeErr(err)
	}
	s.auditor.Record(ctx, acct.ID, audit.EventLoginFailure, reason, client.audit())
	if s.lock.Locks(attempts) {
		s.auditor.Record(ctx, acct.ID, audit.EventAccountLocked,
			fmt.Sprintf("account locked after %d failed attempts", attempts), client.audit())
	}
	return ErrAuthenticationFailed
}

// openGrants opens a session and a fresh rotation family for the account and
// issues the token pair.
func (s *AuthService) openGrants(ctx context.Context, acct *accountdomain.Account, familyID string, client ClientMeta) (*AuthResult, error) {
	now := s.now()
	sessionID := uuid.New().String()

	access, accessExp, err := s.codec.IssueAccess(acct.ID, sessionID, s.accessTTL)
	if err != nil {
		return nil, storeErr(err)
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(acct.ID, familyID, s.refreshTTL)
	if err != nil {
		return nil, storeErr(err)
	}

	sess := &sessiondomain.Session{
		ID:                sessionID,
		AccountID:         acct.ID,
		AccessTokenHash:   security.HashToken(access),
		ExpiresAt:         accessExp,
		IPAddress:         client.IP,
		UserAgent:         client.UserAgent,
		DeviceFingerprint: client.Fingerprint,
		CreatedAt:         now,
	}
	if err := s.ledger.CreateSession(ctx, sess); err != nil {
		return nil, storeErr(err)
	}
	token := &sessiondomain.RefreshToken{
		ID:        uuid.New().String(),
		AccountID: acct.ID,
		FamilyID:  familyID,
		TokenHash: security.HashToken(refresh),
		ExpiresAt: refreshExp,
		CreatedAt: now,
	}
	if err := s.ledger.CreateRefreshToken(ctx, token); err != nil {
		return nil, storeErr(err)
	}
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
		Account:      acct,
	}, nil
}

// storeErr maps timeouts and cancellation to ErrUnavailable so callers can
// retry; other errors pass through for opaque handling at the boundary.
func storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrUnavailable
	}
	return err
}
