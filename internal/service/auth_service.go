package service

import (
	"errors"
	"time"

	"earnflow/internal/config"
	"earnflow/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService validates user tokens issued by the identity provider.
// Tokens are HS256 with a shared secret.
type AuthService struct {
	jwtSecret []byte
	issuer    string
	tokenTTL  time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(cfg config.AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		jwtSecret: []byte(cfg.JWTSecret),
		issuer:    cfg.Issuer,
		tokenTTL:  ttl,
	}
}

// ValidateUserToken validates a user JWT and returns the caller's session
func (s *AuthService) ValidateUserToken(tokenString string) (*model.Session, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	session := model.SessionFromClaims(claims)
	if session.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &session, nil
}

// IssueUserToken signs a token the way the identity provider does.
// Used by the seed command to hand out local development tokens.
func (s *AuthService) IssueUserToken(userID, email, name string) (*model.DevTokenResponse, error) {
	if userID == "" {
		userID = "user_" + uuid.New().String()[:8]
	}

	now := time.Now()
	claims := &model.UserClaims{
		UserID:      userID,
		Email:       email,
		DisplayName: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.DevTokenResponse{
		Token:  tokenString,
		UserID: userID,
	}, nil
}
