package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry  = 24 * time.Hour
	bcryptCost = 10

	settingJWTSecret = "jwt_secret"
	settingRconHash  = "rcon_hash"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrBadRconPassword = errors.New("bad rcon password")
	ErrRconDisabled    = errors.New("rcon disabled")
)

// Auth issues player tokens and guards the remote console
type Auth struct {
	db        *DB
	jwtSecret []byte
	rconHash  []byte
}

// NewAuth creates a new Auth handler
func NewAuth(db *DB) *Auth {
	a := &Auth{
		db:        db,
		jwtSecret: loadOrCreateSecret(db),
	}
	if db != nil {
		if h := db.GetSetting(settingRconHash); h != "" {
			a.rconHash = []byte(h)
		}
	}
	return a
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting(settingJWTSecret); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting(settingJWTSecret, hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// SetRconPassword hashes and stores the console password. An empty
// password disables rcon.
func (a *Auth) SetRconPassword(password string) error {
	if password == "" {
		a.rconHash = nil
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash rcon password: %w", err)
	}
	a.rconHash = hash
	if a.db != nil {
		if err := a.db.SetSetting(settingRconHash, string(hash)); err != nil {
			return fmt.Errorf("store rcon hash: %w", err)
		}
	}
	return nil
}

// CheckRcon verifies a console password
func (a *Auth) CheckRcon(password string) error {
	if len(a.rconHash) == 0 {
		return ErrRconDisabled
	}
	if err := bcrypt.CompareHashAndPassword(a.rconHash, []byte(password)); err != nil {
		return ErrBadRconPassword
	}
	return nil
}

// IssueToken creates a token binding a player id and name
func (a *Auth) IssueToken(playerID, name string) (string, error) {
	claims := jwt.MapClaims{
		"pid": playerID,
		"usr": name,
		"exp": time.Now().Add(jwtExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateToken validates a JWT and returns (playerID, name, error)
func (a *Auth) ValidateToken(tokenStr string) (string, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidToken
	}
	pid, ok := claims["pid"].(string)
	if !ok {
		return "", "", ErrInvalidToken
	}
	if _, err := uuid.Parse(pid); err != nil {
		return "", "", ErrInvalidToken
	}
	name, _ := claims["usr"].(string)
	return pid, name, nil
}
