package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenExpiryBuffer refreshes tokens this long before the provider expires them.
const tokenExpiryBuffer = 5 * time.Minute

// TokenCache shares an access token between service instances.
type TokenCache interface {
	Get(ctx context.Context) (*oauth2.Token, error)
	Set(ctx context.Context, token *oauth2.Token) error
}

// RedisTokenCache stores the token as JSON under one key.
type RedisTokenCache struct {
	client *redis.Client
	key    string
}

// NewRedisTokenCache returns a cache backed by client.
func NewRedisTokenCache(client *redis.Client, key string) *RedisTokenCache {
	if key == "" {
		key = "provider:access_token"
	}
	return &RedisTokenCache{client: client, key: key}
}

func (c *RedisTokenCache) Get(ctx context.Context) (*oauth2.Token, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, token *oauth2.Token) error {
	ttl := time.Until(token.Expiry) - tokenExpiryBuffer
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, raw, ttl).Err()
}

// MemoryTokenCache keeps the token in process.
type MemoryTokenCache struct {
	mu    sync.Mutex
	token *oauth2.Token
}

func (c *MemoryTokenCache) Get(context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func (c *MemoryTokenCache) Set(_ context.Context, token *oauth2.Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	return nil
}

// cachedSource consults the shared cache before asking the token endpoint.
type cachedSource struct {
	base   oauth2.TokenSource
	cache  TokenCache
	logger *zap.Logger
}

func (s *cachedSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if cached, err := s.cache.Get(ctx); err != nil {
		s.logger.Warn("provider token cache read failed", zap.Error(err))
	} else if cached != nil && time.Until(cached.Expiry) > tokenExpiryBuffer {
		return cached, nil
	}

	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, token); err != nil {
		s.logger.Warn("provider token cache write failed", zap.Error(err))
	}
	return token, nil
}

// accountCredentials builds the provider's server-to-server grant: client
// credentials with grant_type=account_credentials and the account id.
func accountCredentials(clientID, clientSecret, accountID, tokenURL string) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {accountID},
		},
	}
}

// newTokenSource returns a reusing token source that refreshes early. ctx
// carries the HTTP client used for the token endpoint.
func newTokenSource(ctx context.Context, conf *clientcredentials.Config, cache TokenCache, logger *zap.Logger) oauth2.TokenSource {
	var src oauth2.TokenSource = conf.TokenSource(ctx)
	if cache != nil {
		src = &cachedSource{base: src, cache: cache, logger: logger}
	}
	return oauth2.ReuseTokenSourceWithExpiry(nil, src, tokenExpiryBuffer)
}
