package partner

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"visascope/internal/database"
)

var (
	// ErrInvalidKey covers unknown, revoked and malformed keys.
	ErrInvalidKey = errors.New("invalid api key")
	// ErrRateLimited is returned once a key exhausts its daily quota.
	ErrRateLimited = errors.New("api key rate limit exceeded")
)

// rateCounter is the subset of the redis client the service needs; tests
// substitute a fake.
type rateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Service manages partner credentials: vak_-prefixed API keys (stored as
// SHA-256 digests), per-key daily rate limits counted in Redis, and HS256
// session tokens for the dashboard.
type Service struct {
	db               *gorm.DB
	counter          rateCounter
	tokenSecret      []byte
	tokenTTL         time.Duration
	defaultRateLimit int
}

// KeyInfo is what Verify reports about an accepted key.
type KeyInfo struct {
	PartnerID   string
	PartnerName string
	RateLimit   int
	UsedToday   int64
}

// TokenClaims are the session-token claims issued to authenticated partners.
type TokenClaims struct {
	PartnerID string `json:"partner_id"`
	jwt.RegisteredClaims
}

// NewService wires the credential store and rate counter.
func NewService(db *gorm.DB, counter rateCounter, tokenSecret string, tokenTTL time.Duration, defaultRateLimit int) *Service {
	return &Service{
		db:               db,
		counter:          counter,
		tokenSecret:      []byte(tokenSecret),
		tokenTTL:         tokenTTL,
		defaultRateLimit: defaultRateLimit,
	}
}

// GenerateKey mints a fresh raw key. The caller must persist its digest; the
// raw value is never stored.
func GenerateKey() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return "vak_" + hex.EncodeToString(b[:]), nil
}

// Digest returns the stored form of a raw key.
func Digest(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// CreateKey provisions a partner credential and returns the raw key exactly
// once.
func (s *Service) CreateKey(ctx context.Context, partnerID, partnerName string, rateLimit int) (string, error) {
	if rateLimit <= 0 {
		rateLimit = s.defaultRateLimit
	}

	rawKey, err := GenerateKey()
	if err != nil {
		return "", err
	}

	rec := database.PartnerKey{
		KeyDigest:   Digest(rawKey),
		PartnerID:   partnerID,
		PartnerName: partnerName,
		RateLimit:   rateLimit,
		Active:      true,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", fmt.Errorf("create partner key: %w", err)
	}
	return rawKey, nil
}

// Verify authenticates a raw key and charges one request against its daily
// quota.
func (s *Service) Verify(ctx context.Context, rawKey string) (*KeyInfo, error) {
	if rawKey == "" {
		return nil, ErrInvalidKey
	}

	var rec database.PartnerKey
	err := s.db.WithContext(ctx).Where("key_digest = ? AND active = ?", Digest(rawKey), true).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("query partner key: %w", err)
	}

	used, err := s.chargeRequest(ctx, rec.KeyDigest)
	if err != nil {
		return nil, err
	}
	if used > int64(rec.RateLimit) {
		return nil, ErrRateLimited
	}

	return &KeyInfo{
		PartnerID:   rec.PartnerID,
		PartnerName: rec.PartnerName,
		RateLimit:   rec.RateLimit,
		UsedToday:   used,
	}, nil
}

// chargeRequest bumps the key's counter for the current UTC day; the first
// increment arms the expiry.
func (s *Service) chargeRequest(ctx context.Context, keyDigest string) (int64, error) {
	day := time.Now().UTC().Format("20060102")
	counterKey := fmt.Sprintf("partner_rl:%s:%s", keyDigest, day)

	count, err := s.counter.Incr(ctx, counterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incr rate counter: %w", err)
	}
	if count == 1 {
		_ = s.counter.Expire(ctx, counterKey, 24*time.Hour).Err()
	}
	return count, nil
}

// IssueToken creates an HS256 session token for a verified partner.
func (s *Service) IssueToken(partnerID string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		PartnerID: partnerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   partnerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.tokenSecret)
	if err != nil {
		return "", fmt.Errorf("sign partner token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token.
func (s *Service) ValidateToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.tokenSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
