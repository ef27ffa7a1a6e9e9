package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/FileGate/FileGate/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService verifies the single admin credential and issues session
// tokens. The admin password gate runs server-side; the client never sees
// the credential material.
type AuthService struct {
	config       *config.Config
	passwordHash []byte
}

func NewAuthService(cfg *config.Config) (*AuthService, error) {
	hash := []byte(cfg.Auth.AdminPasswordHash)
	if len(hash) == 0 {
		if cfg.Auth.AdminPassword == "" {
			return nil, errors.New("no admin credential configured")
		}
		// Development convenience: hash the plaintext env password once at
		// startup so the comparison path is identical in both modes.
		generated, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		hash = generated
	}

	return &AuthService{
		config:       cfg,
		passwordHash: hash,
	}, nil
}

// Login verifies the admin password and returns a signed session token with
// its expiry.
func (s *AuthService) Login(password string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.config.Auth.SessionDuration)
	claims := &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Auth.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %v, expected HS256", token.Method.Alg())
		}
		return []byte(s.config.Auth.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
