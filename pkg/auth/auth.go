package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/database"
)

var jwtAlgorithm = jwt.SigningMethodHS256

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidKey   = errors.New("invalid api key")
	ErrKeyRevoked   = errors.New("api key revoked")
)

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator signs admin tokens and business API keys
type Authenticator struct {
	jwtSecret    []byte
	masterSecret []byte
	TokenTTL     time.Duration
}

// New creates an Authenticator. An empty secret is replaced with a random
// one, so tokens and keys then only survive until the process exits.
func New(jwtSecret, masterSecret string) *Authenticator {
	return &Authenticator{
		jwtSecret:    secretOrRandom(jwtSecret),
		masterSecret: secretOrRandom(masterSecret),
		TokenTTL:     24 * time.Hour,
	}
}

func secretOrRandom(s string) []byte {
	if s != "" {
		return []byte(s)
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("auth: cannot read random secret: %v", err))
	}
	return b
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for a user
func (a *Authenticator) CreateToken(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(a.jwtSecret)
}

// VerifyToken verifies a JWT token
func (a *Authenticator) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateKey creates the first API key of a business, signed with HMAC-SHA256
func (a *Authenticator) GenerateKey(businessID string) string {
	return a.GenerateKeyVersion(businessID, 0)
}

// GenerateKeyVersion creates the API key of a business for one key version.
// Version 0 is "<business>.<sig>"; later versions are "<business>.v<n>.<sig>".
func (a *Authenticator) GenerateKeyVersion(businessID string, version int) string {
	if version <= 0 {
		return businessID + "." + a.sign(businessID)
	}
	v := "v" + strconv.Itoa(version)
	return businessID + "." + v + "." + a.sign(businessID+"\x00"+v)
}

// ParseKey validates an API key and returns its business and key version
func (a *Authenticator) ParseKey(key string) (string, int, error) {
	i := strings.LastIndex(key, ".")
	if i <= 0 || i == len(key)-1 {
		return "", 0, fmt.Errorf("%w: bad format", ErrInvalidKey)
	}
	rest, provided := key[:i], key[i+1:]

	// Use constant-time comparison to prevent timing attacks
	if j := strings.LastIndex(rest, "."); j > 0 {
		businessID, v := rest[:j], rest[j+1:]
		if n, ok := keyVersion(v); ok && hmac.Equal([]byte(provided), []byte(a.sign(businessID+"\x00"+v))) {
			return businessID, n, nil
		}
	}
	if !hmac.Equal([]byte(provided), []byte(a.sign(rest))) {
		return "", 0, fmt.Errorf("%w: bad signature", ErrInvalidKey)
	}
	return rest, 0, nil
}

// VerifyKey validates an API key and returns the business it is scoped to
func (a *Authenticator) VerifyKey(key string) (string, error) {
	businessID, _, err := a.ParseKey(key)
	return businessID, err
}

func keyVersion(s string) (int, bool) {
	if !strings.HasPrefix(s, "v") {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	return n, err == nil && n > 0
}

func (a *Authenticator) sign(businessID string) string {
	h := hmac.New(sha256.New, a.masterSecret)
	h.Write([]byte(businessID))
	return hex.EncodeToString(h.Sum(nil))
}

// KeyPreview shortens a key for display
func KeyPreview(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}

// TrackKey fetches or creates the usage record of a verified key and stamps
// its last use. Revoked keys are refused, and so is an untracked key once a
// newer version was issued for its business.
func TrackKey(db *gorm.DB, key, businessID string, version int) (*database.APIKey, error) {
	var apiKey database.APIKey
	if err := db.Where(database.APIKey{Key: key}).Limit(1).Find(&apiKey).Error; err != nil {
		return nil, err
	}
	if apiKey.ID == 0 {
		var newer int64
		if err := db.Model(&database.APIKey{}).
			Where("business_id = ? AND version > ?", businessID, version).Count(&newer).Error; err != nil {
			return nil, err
		}
		if newer > 0 {
			return nil, ErrKeyRevoked
		}
		apiKey = database.APIKey{
			Key:        key,
			KeyPreview: KeyPreview(key),
			Name:       businessID,
			BusinessID: businessID,
			Version:    version,
			RateLimit:  10000,
		}
		if err := db.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey).Error; err != nil {
			return nil, err
		}
	}
	if apiKey.RevokedAt != nil {
		return nil, ErrKeyRevoked
	}

	now := time.Now()
	apiKey.LastUsed = &now
	if err := db.Model(&apiKey).Update("last_used", now).Error; err != nil {
		return nil, err
	}
	return &apiKey, nil
}

// EnsureAdminExists creates the admin user when no admin exists yet
func EnsureAdminExists(db *gorm.DB, username, password string) (bool, error) {
	var count int64
	if err := db.Model(&database.MasterUser{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}

	user := database.MasterUser{
		Username:     username,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}
