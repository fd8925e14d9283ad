package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/hr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
)

type accessTokenStore interface {
	Create(ctx context.Context, token *models.AccessToken) error
	FindByID(ctx context.Context, id string) (*models.AccessToken, error)
}

// TokenIssuerConfig configures bearer token signing.
type TokenIssuerConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// IssuedAccessToken pairs the plaintext handed to the client with its stored record.
type IssuedAccessToken struct {
	Plaintext string
	Record    *models.AccessToken
}

type accessClaims struct {
	DeviceID string `json:"did"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and resolves bearer tokens. Only a SHA-256 of each token is persisted.
type TokenIssuer struct {
	store  accessTokenStore
	config TokenIssuerConfig
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(store accessTokenStore, config TokenIssuerConfig) *TokenIssuer {
	if config.TTL <= 0 {
		config.TTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{store: store, config: config, now: time.Now}
}

// TTL returns the configured access token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.config.TTL
}

// Issue creates and stores a new access token for user on deviceID.
func (i *TokenIssuer) Issue(ctx context.Context, user *models.User, deviceID string) (*IssuedAccessToken, error) {
	now := i.now().UTC()
	nonce, err := randomBytes(32)
	if err != nil {
		return nil, fmt.Errorf("generate token nonce: %w", err)
	}

	record := &models.AccessToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		DeviceID:  deviceID,
		Name:      deviceID,
		Abilities: []string{models.AbilityAll},
		ExpiresAt: now.Add(i.config.TTL),
		CreatedAt: now,
	}

	claims := accessClaims{
		DeviceID: deviceID,
		Nonce:    base64.RawURLEncoding.EncodeToString(nonce),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        record.ID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
	}
	plaintext, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.config.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	record.TokenHash = HashToken(plaintext)

	if err := i.store.Create(ctx, record); err != nil {
		return nil, err
	}
	return &IssuedAccessToken{Plaintext: plaintext, Record: record}, nil
}

// Resolve maps a presented bearer token to its stored record.
// Expiry is judged from the stored record rather than the token claims.
func (i *TokenIssuer) Resolve(ctx context.Context, plaintext string) (*models.AccessToken, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var claims accessClaims
	if _, err := parser.ParseWithClaims(plaintext, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(i.config.Secret), nil
	}); err != nil {
		return nil, appErrors.ErrInvalidToken
	}
	if claims.ID == "" {
		return nil, appErrors.ErrInvalidToken
	}

	record, err := i.store.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidToken
		}
		return nil, appErrors.Internal(err, "failed to load access token")
	}
	if subtle.ConstantTimeCompare([]byte(HashToken(plaintext)), []byte(record.TokenHash)) != 1 || record.UserID != claims.Subject {
		return nil, appErrors.ErrInvalidToken
	}
	if record.Expired(i.now()) {
		return nil, appErrors.ErrTokenExpired
	}
	return record, nil
}

// GenerateRefreshSecret returns 64 hex characters drawn from crypto/rand.
func GenerateRefreshSecret() (string, error) {
	b, err := randomBytes(32)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 digest stored in place of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
