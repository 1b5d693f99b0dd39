package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

// DefaultCacheTTL bounds how stale a cached directory entry may get.
const DefaultCacheTTL = 5 * time.Minute

// CachedRepository is a Redis read-through cache in front of another Store.
// Single-entity lookups by id are cached; lists and user-id lookups pass through.
// Writes go to the backing store and then drop the cached entry.
// Redis failures degrade to the backing store.
type CachedRepository struct {
	next   Store
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedRepository wraps next. A nil redis client disables caching.
func NewCachedRepository(next Store, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedRepository{next: next, redis: client, ttl: ttl, logger: logger}
}

func cacheKey(kind Kind, id string) string {
	return fmt.Sprintf("clinic:directory:%s:%s", kind, id)
}

func (c *CachedRepository) Client(ctx context.Context, id string) (*Client, error) {
	var out Client
	if c.get(ctx, cacheKey(KindClient, id), &out) {
		return &out, nil
	}
	client, err := c.next.Client(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, cacheKey(KindClient, id), client)
	return client, nil
}

func (c *CachedRepository) ClientByUserID(ctx context.Context, userID string) (*Client, error) {
	return c.next.ClientByUserID(ctx, userID)
}

func (c *CachedRepository) Personnel(ctx context.Context, id string) (*Personnel, error) {
	var out Personnel
	if c.get(ctx, cacheKey(KindPersonnel, id), &out) {
		return &out, nil
	}
	p, err := c.next.Personnel(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, cacheKey(KindPersonnel, id), p)
	return p, nil
}

func (c *CachedRepository) PersonnelByUserID(ctx context.Context, userID string) (*Personnel, error) {
	return c.next.PersonnelByUserID(ctx, userID)
}

func (c *CachedRepository) Service(ctx context.Context, id string) (*Service, error) {
	var out Service
	if c.get(ctx, cacheKey(KindService, id), &out) {
		return &out, nil
	}
	s, err := c.next.Service(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, cacheKey(KindService, id), s)
	return s, nil
}

func (c *CachedRepository) ListServices(ctx context.Context) ([]*Service, error) {
	return c.next.ListServices(ctx)
}

func (c *CachedRepository) ListPersonnel(ctx context.Context) ([]*Personnel, error) {
	return c.next.ListPersonnel(ctx)
}

// Invalidate drops any cached entry for kind and id.
func (c *CachedRepository) Invalidate(ctx context.Context, kind Kind, id string) error {
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, cacheKey(kind, id)).Err(); err != nil {
		return fmt.Errorf("directory: invalidate %s: %w", kind, err)
	}
	return nil
}

func (c *CachedRepository) ListClients(ctx context.Context) ([]*Client, error) {
	return c.next.ListClients(ctx)
}

func (c *CachedRepository) CreateClient(ctx context.Context, client *Client) (*Client, error) {
	out, err := c.next.CreateClient(ctx, client)
	if err != nil {
		return nil, err
	}
	c.drop(ctx, KindClient, out.ID)
	return out, nil
}

func (c *CachedRepository) UpdateClient(ctx context.Context, client *Client) (*Client, error) {
	out, err := c.next.UpdateClient(ctx, client)
	if err != nil {
		return nil, err
	}
	c.drop(ctx, KindClient, out.ID)
	return out, nil
}

func (c *CachedRepository) DeleteClient(ctx context.Context, id string) error {
	if err := c.next.DeleteClient(ctx, id); err != nil {
		return err
	}
	c.drop(ctx, KindClient, id)
	return nil
}

func (c *CachedRepository) CreatePersonnel(ctx context.Context, p *Personnel) (*Personnel, error) {
	out, err := c.next.CreatePersonnel(ctx, p)
	if err != nil {
		return nil, err
	}
	c.drop(ctx, KindPersonnel, out.ID)
	return out, nil
}

func (c *CachedRepository) CreateService(ctx context.Context, s *Service) (*Service, error) {
	out, err := c.next.CreateService(ctx, s)
	if err != nil {
		return nil, err
	}
	c.drop(ctx, KindService, out.ID)
	return out, nil
}

func (c *CachedRepository) UpdateService(ctx context.Context, s *Service) (*Service, error) {
	out, err := c.next.UpdateService(ctx, s)
	if err != nil {
		return nil, err
	}
	c.drop(ctx, KindService, out.ID)
	return out, nil
}

func (c *CachedRepository) DeleteService(ctx context.Context, id string) error {
	if err := c.next.DeleteService(ctx, id); err != nil {
		return err
	}
	c.drop(ctx, KindService, id)
	return nil
}

// drop invalidates after a committed write. A failure leaves the entry to expire with its TTL.
func (c *CachedRepository) drop(ctx context.Context, kind Kind, id string) {
	if err := c.Invalidate(ctx, kind, id); err != nil {
		c.logger.Warn("directory cache invalidation failed", "kind", string(kind), "id", id, "error", err)
	}
}

func (c *CachedRepository) get(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.Warn("directory cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("directory cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CachedRepository) set(ctx context.Context, key string, v any) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("directory cache write failed", "key", key, "error", err)
	}
}
