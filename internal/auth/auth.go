// Package auth verifies bearer tokens and resolves them to a user identity.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"dmchat/backend/internal/apperr"
	"dmchat/backend/internal/models"
	"dmchat/backend/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is a verified user as seen by the rest of the service.
type Identity struct {
	UserID    string
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// Claims are the JWT claims issued by this service.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserStore is the subset of storage the verifier needs.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	IsUserBanned(ctx context.Context, userID string) (bool, error)
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Verifier validates tokens (HS256) and checks the account behind them.
type Verifier struct {
	secret []byte
	issuer string
	users  UserStore
}

func NewVerifier(secret, issuer string, users UserStore) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, users: users}
}

// Verify returns Unauthorized for missing, malformed, expired or revoked tokens
// and for unknown users, and Forbidden for accounts that may not connect.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, apperr.New(apperr.Unauthorized, "missing access token")
	}

	claims, err := v.ParseClaims(token)
	if err != nil {
		return nil, err
	}

	if claims.ID != "" {
		revoked, err := v.users.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "token check failed", err)
		}
		if revoked {
			return nil, apperr.New(apperr.Unauthorized, "access token has been revoked")
		}
	}

	user, err := v.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.Unauthorized, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "user lookup failed", err)
	}
	if !user.CanConnect() {
		return nil, apperr.New(apperr.Forbidden, "account is "+string(user.Status))
	}

	banned, err := v.users.IsUserBanned(ctx, user.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "ban check failed", err)
	}
	if banned {
		return nil, apperr.New(apperr.Forbidden, "account is temporarily banned")
	}

	id := &Identity{
		UserID:   user.ID,
		Username: user.Username,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// ParseClaims checks signature, issuer and expiry without looking at the account.
func (v *Verifier) ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Wrap(apperr.Unauthorized, "access token has expired", err)
		}
		return nil, apperr.Wrap(apperr.Unauthorized, "invalid access token", err)
	}
	if claims.Subject == "" {
		return nil, apperr.New(apperr.Unauthorized, "invalid access token")
	}
	return claims, nil
}

// Issuer signs tokens. It is used by the admin CLI and tests; credential
// checks happen outside this service.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue генерує JWT для користувача.
func (i *Issuer) Issue(user *models.User) (string, error) {
	now := i.now()
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
