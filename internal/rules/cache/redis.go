// Package cache adds a Redis read-through cache for requirement sets.
// Published versions are immutable, so cached entries never need
// invalidation, only a TTL to bound memory.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"visado/internal/logic"
	"visado/internal/rules/models"
	id "visado/pkg/domain"
)

const requirementKeyPrefix = "rules:reqs:"

// DefaultTTL bounds how long a requirement set stays cached.
const DefaultTTL = 24 * time.Hour

// RequirementLoader is the upstream the cache falls back to.
type RequirementLoader interface {
	GetRequirements(ctx context.Context, versionID id.RuleVersionID) ([]models.Requirement, error)
}

// RequirementCache serves requirement sets from Redis, falling back to the
// underlying store on miss or on any Redis failure. Cache problems must
// never fail an evaluation.
type RequirementCache struct {
	client *redis.Client
	next   RequirementLoader
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the cache.
type Option func(*RequirementCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *RequirementCache) { c.ttl = ttl }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *RequirementCache) { c.logger = logger }
}

// New constructs a requirement cache in front of next.
func New(client *redis.Client, next RequirementLoader, opts ...Option) (*RequirementCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if next == nil {
		return nil, fmt.Errorf("requirement loader is required")
	}
	c := &RequirementCache{client: client, next: next, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// wireRequirement is the cached representation. The condition is stored as
// plain JSON and rebuilt into a logic value on read.
type wireRequirement struct {
	ID            string          `json:"id"`
	RuleVersionID string          `json:"rule_version_id"`
	Code          string          `json:"code"`
	RuleType      string          `json:"rule_type"`
	Description   string          `json:"description,omitempty"`
	Condition     json.RawMessage `json:"condition"`
	IsMandatory   bool            `json:"is_mandatory"`
}

// GetRequirements returns the requirement set for a version, consulting
// Redis first.
func (c *RequirementCache) GetRequirements(ctx context.Context, versionID id.RuleVersionID) ([]models.Requirement, error) {
	key := requirementKeyPrefix + versionID.String()

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		reqs, decodeErr := decodeRequirements(payload)
		if decodeErr == nil {
			return reqs, nil
		}
		c.warn(ctx, "discarding undecodable cache entry", "key", key, "error", decodeErr)
	} else if !errors.Is(err, redis.Nil) {
		c.warn(ctx, "requirement cache read failed", "key", key, "error", err)
	}

	reqs, err := c.next.GetRequirements(ctx, versionID)
	if err != nil {
		return nil, err
	}

	payload, err = encodeRequirements(reqs)
	if err != nil {
		c.warn(ctx, "failed to encode requirements for cache", "key", key, "error", err)
		return reqs, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.warn(ctx, "requirement cache write failed", "key", key, "error", err)
	}
	return reqs, nil
}

func encodeRequirements(reqs []models.Requirement) ([]byte, error) {
	wire := make([]wireRequirement, 0, len(reqs))
	for _, r := range reqs {
		condition, err := json.Marshal(r.Condition.Interface())
		if err != nil {
			return nil, fmt.Errorf("marshal condition for %s: %w", r.Code, err)
		}
		wire = append(wire, wireRequirement{
			ID:            r.ID.String(),
			RuleVersionID: r.RuleVersionID.String(),
			Code:          r.Code,
			RuleType:      r.RuleType,
			Description:   r.Description,
			Condition:     condition,
			IsMandatory:   r.IsMandatory,
		})
	}
	return json.Marshal(wire)
}

func decodeRequirements(payload []byte) ([]models.Requirement, error) {
	var wire []wireRequirement
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, err
	}
	reqs := make([]models.Requirement, 0, len(wire))
	for _, w := range wire {
		reqID, err := id.ParseRequirementID(w.ID)
		if err != nil {
			return nil, err
		}
		versionID, err := id.ParseRuleVersionID(w.RuleVersionID)
		if err != nil {
			return nil, err
		}
		var raw any
		if err := json.Unmarshal(w.Condition, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal condition for %s: %w", w.Code, err)
		}
		condition, err := logic.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("rebuild condition for %s: %w", w.Code, err)
		}
		reqs = append(reqs, models.Requirement{
			ID:            reqID,
			RuleVersionID: versionID,
			Code:          w.Code,
			RuleType:      w.RuleType,
			Description:   w.Description,
			Condition:     condition,
			IsMandatory:   w.IsMandatory,
		})
	}
	return reqs, nil
}

func (c *RequirementCache) warn(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, args...)
	}
}
