package store

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/stellarlinkco/remindme/internal/skill"
)

const DefaultPhoneCacheSize = 1024

// CachedPhones keeps recently used phone numbers in memory in front of
// another PhoneStore. Misses are not cached.
type CachedPhones struct {
	inner skill.PhoneStore
	cache *lru.Cache[string, string]
}

func NewCachedPhones(inner skill.PhoneStore, size int) (*CachedPhones, error) {
	if size <= 0 {
		size = DefaultPhoneCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create phone cache: %w", err)
	}
	return &CachedPhones{inner: inner, cache: cache}, nil
}

func (c *CachedPhones) GetPhoneNumber(ctx context.Context, userID string) (string, bool, error) {
	if n, ok := c.cache.Get(userID); ok {
		return n, true, nil
	}
	n, found, err := c.inner.GetPhoneNumber(ctx, userID)
	if err != nil || !found {
		return n, found, err
	}
	c.cache.Add(userID, n)
	return n, true, nil
}

func (c *CachedPhones) PutPhoneNumber(ctx context.Context, userID, number string) error {
	if err := c.inner.PutPhoneNumber(ctx, userID, number); err != nil {
		c.cache.Remove(userID)
		return err
	}
	c.cache.Add(userID, number)
	return nil
}
