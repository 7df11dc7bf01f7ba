// Package token issues the identity token handed out when a BankID order completes.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
	"github.com/jrsteele09/go-bankid-auth/orders"
)

const (
	DefaultIssuer = "go-bankid-auth"
	DefaultExpiry = 30 * time.Minute
)

// Claims carry the verified identity. Subject is the normalised personal number.
type Claims struct {
	jwt.RegisteredClaims
	OrderRef  string `json:"order_ref"`
	Name      string `json:"name,omitempty"`
	GivenName string `json:"given_name,omitempty"`
	Surname   string `json:"family_name,omitempty"`
}

// Identity returns the identity the token was issued for
func (c *Claims) Identity() orders.Identity {
	return orders.Identity{
		PersonalNumber: c.Subject,
		Name:           c.Name,
		GivenName:      c.GivenName,
		Surname:        c.Surname,
	}
}

type Issuer struct {
	signer  Signer
	issuer  string
	expiry  time.Duration
	nowFunc func() time.Time
}

type IssuerOption func(*Issuer)

func WithIssuer(issuer string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = issuer
	}
}

func WithExpiry(expiry time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.expiry = expiry
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(signer Signer, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer:  signer,
		issuer:  DefaultIssuer,
		expiry:  DefaultExpiry,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Issue signs a token for a completed order.
func (i *Issuer) Issue(orderRef string, identity orders.Identity) (string, time.Time, error) {
	if identity.PersonalNumber == "" {
		return "", time.Time{}, apperrors.Wrapf(apperrors.ErrInvalidPersonalNumber, "[Issuer Issue] empty personal number")
	}

	now := i.nowFunc()
	expiresAt := now.Add(i.expiry)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   identity.PersonalNumber,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		OrderRef:  orderRef,
		Name:      identity.Name,
		GivenName: identity.GivenName,
		Surname:   identity.Surname,
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, apperrors.Wrapf(err, "[Issuer Issue] order %s", orderRef)
	}
	return signed, expiresAt, nil
}

// Parse verifies raw and returns its claims. Any failure wraps ErrInvalidToken.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, i.signer.GetVerificationKey,
		jwt.WithIssuer(i.issuer),
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[Issuer Parse] %v", err)
	}
	return claims, nil
}
