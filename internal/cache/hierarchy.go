// Package cache holds the redis-backed hierarchy cache and rate counter.
package cache

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// HierarchyCache stores assembled course trees. A miss or a broken entry is
// reported as (nil, false); callers fall back to the repository.
type HierarchyCache interface {
	Get(ctx context.Context, courseID string) (*domain.CourseTree, bool)
	Set(ctx context.Context, tree *domain.CourseTree)
	Invalidate(ctx context.Context, courseID string) error
}

func hierarchyKey(courseID string) string {
	return "course:hierarchy:" + courseID
}

type redisHierarchyCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisHierarchyCache caches trees as JSON under course:hierarchy:<id>.
func NewRedisHierarchyCache(client *redis.Client, ttl time.Duration, log *logger.Logger) HierarchyCache {
	return &redisHierarchyCache{client: client, ttl: ttl, log: log}
}

func (c *redisHierarchyCache) Get(ctx context.Context, courseID string) (*domain.CourseTree, bool) {
	val, err := c.client.Get(ctx, hierarchyKey(courseID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("hierarchy cache read failed", "courseId", courseID, "error", err)
		}
		return nil, false
	}
	var tree domain.CourseTree
	if err := json.Unmarshal(val, &tree); err != nil {
		c.log.Warn("hierarchy cache entry unreadable", "courseId", courseID, "error", err)
		return nil, false
	}
	return &tree, true
}

func (c *redisHierarchyCache) Set(ctx context.Context, tree *domain.CourseTree) {
	data, err := json.Marshal(tree)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, hierarchyKey(tree.Course.ID), data, c.ttl).Err(); err != nil {
		c.log.Warn("hierarchy cache write failed", "courseId", tree.Course.ID, "error", err)
	}
}

func (c *redisHierarchyCache) Invalidate(ctx context.Context, courseID string) error {
	return c.client.Del(ctx, hierarchyKey(courseID)).Err()
}

type nopHierarchyCache struct{}

// NewNopHierarchyCache returns a cache that never hits.
func NewNopHierarchyCache() HierarchyCache { return nopHierarchyCache{} }

func (nopHierarchyCache) Get(context.Context, string) (*domain.CourseTree, bool) { return nil, false }
func (nopHierarchyCache) Set(context.Context, *domain.CourseTree)                {}
func (nopHierarchyCache) Invalidate(context.Context, string) error               { return nil }
