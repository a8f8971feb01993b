package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures, from structural to semantic. Callers branch with errors.Is.
var (
	// ErrTokenMalformed is returned when a token is structurally unparsable.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrSignatureMismatch is returned when the signature does not verify.
	ErrSignatureMismatch = errors.New("token signature mismatch")
	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidToken covers any other verification failure (wrong issuer, audience, claims type).
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
}

// RefreshClaims holds JWT claims for the refresh token. FamilyID names the
// rotation chain so reuse of a stale token can still be traced to its family.
type RefreshClaims struct {
	jwt.RegisteredClaims
	FamilyID string `json:"family_id"`
}

// TokenCodec issues and verifies JWT access and refresh tokens using RS256 or
// ES256. It is stateless: issuance is a pure function of inputs and key.
type TokenCodec struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
}

// NewTokenCodec returns a TokenCodec that signs with the given private key
// (RSA or ECDSA). issuer and audience are stamped on claims and enforced on verify.
func NewTokenCodec(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string) *TokenCodec {
	return &TokenCodec{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
	}
}

// IssueAccess issues an access JWT for the given account bound to sessionID.
// Returns the token string and its expiration time.
func (c *TokenCodec) IssueAccess(accountID, sessionID string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}
	token, err = c.sign(claims)
	return token, expiresAt, err
}

// IssueRefresh issues a refresh JWT for the given account bound to familyID.
// Returns the token string and its expiration time. The ledger stores only
// the hash of the returned token.
func (c *TokenCodec) IssueRefresh(accountID, familyID string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(ttl)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		FamilyID: familyID,
	}
	token, err = c.sign(claims)
	return token, expiresAt, err
}

// VerifyAccess parses and verifies an access token (signature, exp, iss, aud).
// Failures are one of ErrTokenMalformed, ErrSignatureMismatch, ErrTokenExpired,
// or ErrInvalidToken.
func (c *TokenCodec) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.verify(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh parses and verifies a refresh token. Same failure taxonomy as
// VerifyAccess.
func (c *TokenCodec) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExtractSubject returns the sub claim without verifying the signature.
// Best-effort only; use after verify has succeeded in the same call chain,
// or for logging.
func (c *TokenCodec) ExtractSubject(tokenString string) string {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return ""
	}
	return claims.Subject
}

// ExtractExpiry returns the exp claim without verifying the signature.
// Zero time when absent or unparsable.
func (c *TokenCodec) ExtractExpiry(tokenString string) time.Time {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func (c *TokenCodec) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch c.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(c.privateKey)
}

func (c *TokenCodec) verify(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return c.publicKey, nil
		default:
			return nil, ErrInvalidToken
		}
	},
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return ErrSignatureMismatch
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrTokenExpired
		default:
			return ErrInvalidToken
		}
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
