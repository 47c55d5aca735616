package utils // package utils provides helpers for token signing and hashing

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind selects the signing secret and lifetime the codec applies. The
// kind is never embedded in the payload; it is enforced purely by which
// secret the verification path uses. Because confirmToken and forgotToken
// currently share the access secret, those two kinds verify interchangeably.
type TokenKind string

const (
	AccessToken  TokenKind = "accessToken"
	RefreshToken TokenKind = "refreshToken"
	ConfirmToken TokenKind = "confirmToken"
	ForgotToken  TokenKind = "forgotToken"
)

var (
	// ErrTokenExpired reports a validly signed token past its exp claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid reports a malformed, mis-signed or wrong-kind token.
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenClaims is the decoded payload of a verified token.
type TokenClaims struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec signs and verifies the four bearer token kinds. Tokens travel
// in the wire form "Bearer <jwt>", the same for issuance and for the
// Authorization header on inbound requests.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	linkTTL       time.Duration // confirm and forgot email links
}

// NewTokenCodec builds a codec from the two signing secrets and the per-kind
// lifetimes. accessSecret also covers confirm and forgot tokens.
func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL, linkTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		linkTTL:       linkTTL,
	}
}

// secret returns the signing key for a kind. An unknown kind is a programmer
// error and panics.
func (c *TokenCodec) secret(kind TokenKind) []byte {
	switch kind {
	case AccessToken, ConfirmToken, ForgotToken:
		return c.accessSecret
	case RefreshToken:
		return c.refreshSecret
	}
	panic("unknown token kind: " + string(kind))
}

func (c *TokenCodec) ttl(kind TokenKind) time.Duration {
	switch kind {
	case AccessToken:
		return c.accessTTL
	case RefreshToken:
		return c.refreshTTL
	case ConfirmToken, ForgotToken:
		return c.linkTTL
	}
	panic("unknown token kind: " + string(kind))
}

// Issue signs a token of the given kind asserting an email address and
// returns it as "Bearer <jwt>". The payload carries email, iat and exp.
func (c *TokenCodec) Issue(kind TokenKind, email string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(c.ttl(kind)).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret(kind))
	if err != nil {
		return "", err
	}
	return "Bearer " + signed, nil
}

// Verify strips the "Bearer " prefix and checks signature and expiry against
// the given kind's secret. A validly signed but expired token fails with
// ErrTokenExpired; everything else that does not verify fails with
// ErrTokenInvalid.
func (c *TokenCodec) Verify(kind TokenKind, token string) (TokenClaims, error) {
	parts := strings.SplitN(token, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		return TokenClaims{}, ErrTokenInvalid
	}

	parsed, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.secret(kind), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrTokenExpired
		}
		return TokenClaims{}, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return TokenClaims{}, ErrTokenInvalid
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return TokenClaims{}, ErrTokenInvalid
	}

	out := TokenClaims{Email: email}
	if iat, ok := claims["iat"].(float64); ok {
		out.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return out, nil
}
