package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	userPrefix    = "user:"
	sessionPrefix = "session:"

	minPasswordLength = 8
)

// sessionData is the JSON stored under each session key.
type sessionData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisProvider implements Provider on top of Redis. Accounts are hashes
// keyed by email; sessions are keyed by the SHA-256 of their token so a leaked
// keyspace dump does not leak usable tokens.
type RedisProvider struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisProvider connects to redisURL and verifies the connection.
func NewRedisProvider(ctx context.Context, redisURL string, ttl time.Duration) (*RedisProvider, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisProviderWithClient(client, ttl), nil
}

// NewRedisProviderWithClient creates a provider from an existing Redis client.
func NewRedisProviderWithClient(client *redis.Client, ttl time.Duration) *RedisProvider {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisProvider{client: client, ttl: ttl, now: time.Now}
}

func (p *RedisProvider) SignUp(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSignUp, err)
	}
	if len(password) < minPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignUp, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{ID: uuid.NewString(), Email: email}
	key := userPrefix + email

	created, err := p.client.HSetNX(ctx, key, "id", user.ID).Result()
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	if !created {
		return Session{}, ErrEmailTaken
	}
	if err := p.client.HSet(ctx, key, "password_hash", string(hash)).Err(); err != nil {
		p.client.Del(ctx, key)
		return Session{}, fmt.Errorf("store password hash: %w", err)
	}

	return p.issue(ctx, user)
}

func (p *RedisProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}

	fields, err := p.client.HGetAll(ctx, userPrefix+email).Result()
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if fields["id"] == "" || fields["password_hash"] == "" {
		return Session{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(fields["password_hash"]), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return p.issue(ctx, User{ID: fields["id"], Email: email})
}

func (p *RedisProvider) SignOut(ctx context.Context, token string) error {
	if err := p.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (p *RedisProvider) CurrentUser(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrNoSession
	}

	raw, err := p.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return User{}, ErrNoSession
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup session: %w", err)
	}

	var data sessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return User{}, fmt.Errorf("unmarshal session: %w", err)
	}

	return User{ID: data.UserID, Email: data.Email}, nil
}

// Close closes the Redis connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

func (p *RedisProvider) issue(ctx context.Context, user User) (Session, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}

	now := p.now()
	payload, err := json.Marshal(sessionData{UserID: user.ID, Email: user.Email, CreatedAt: now})
	if err != nil {
		return Session{}, fmt.Errorf("marshal session: %w", err)
	}

	if err := p.client.Set(ctx, sessionKey(token), payload, p.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}

	return Session{Token: token, User: user, ExpiresAt: now.Add(p.ttl)}, nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return sessionPrefix + hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email address %q", email)
	}
	return email, nil
}
