package tenantconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// HashGetter is the part of a go-redis client RedisSource uses.
// *redis.Client and *redis.ClusterClient satisfy it.
type HashGetter interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisSource stores one configuration section per Redis hash. The hash
// key is prefix followed by the section path, e.g. "tenantjwt:Oidc:acme",
// and its fields are the section keys.
type RedisSource struct {
	client HashGetter
	prefix string
}

// NewRedisSource returns a Source backed by client.
func NewRedisSource(client HashGetter, prefix string) *RedisSource {
	return &RedisSource{client: client, prefix: prefix}
}

// Section implements Source.
func (s *RedisSource) Section(ctx context.Context, path string) (Section, bool, error) {
	key := s.prefix + path
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s from redis: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	section := make(Section, len(fields))
	for k, v := range fields {
		section[strings.ToLower(k)] = v
	}
	return section, true, nil
}
