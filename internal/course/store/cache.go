package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"coursehub/internal/course/models"
)

const cacheKeyPrefix = "course:"

// Finder is the read surface the cache decorates.
type Finder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// Cache is a redis read-through decorator over course reads. It serves the
// listing join path, where a momentarily stale student count is acceptable.
// Cache failures degrade to the underlying store; a read never fails
// because redis is down.
type Cache struct {
	inner  Finder
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(inner Finder, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{inner: inner, client: client, ttl: ttl, logger: logger}
}

type cachedCourse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	State        string `json:"state"`
	StudentCount int    `json:"student_count"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

func (c *Cache) FindByID(ctx context.Context, id string) (*models.Course, error) {
	key := cacheKeyPrefix + id

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedCourse
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &models.Course{
				ID:           cached.ID,
				Title:        cached.Title,
				Description:  cached.Description,
				State:        models.PublicationState(cached.State),
				StudentCount: cached.StudentCount,
				CreatedAt:    time.Unix(cached.CreatedAt, 0).UTC(),
				UpdatedAt:    time.Unix(cached.UpdatedAt, 0).UTC(),
			}, nil
		}
		// Corrupt entry; fall through to the store and overwrite it.
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "course cache read failed", "course_id", id, "error", err)
	}

	course, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedCourse{
		ID:           course.ID,
		Title:        course.Title,
		Description:  course.Description,
		State:        string(course.State),
		StudentCount: course.StudentCount,
		CreatedAt:    course.CreatedAt.Unix(),
		UpdatedAt:    course.UpdatedAt.Unix(),
	})
	if err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "course cache write failed", "course_id", id, "error", err)
		}
	}
	return course, nil
}

// Invalidate drops the cached entry after a course mutation.
func (c *Cache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, cacheKeyPrefix+id).Err(); err != nil {
		c.logger.WarnContext(ctx, "course cache invalidation failed", "course_id", id, "error", err)
	}
}
