package persona

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	goredis "github.com/redis/go-redis/v9"
)

const (
	scoreKeyPrefix   = "intentstack:persona:scores:"
	updatedKeyPrefix = "intentstack:persona:updated:"
)

// RedisScoreRepository keeps one hash per user, one field per persona.
type RedisScoreRepository struct {
	rdb    goredis.UniversalClient
	logger *logging.ChanneledLogger
}

// NewRedisClient dials addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRedisScoreRepository wraps an existing client.
func NewRedisScoreRepository(rdb goredis.UniversalClient, logger *logging.ChanneledLogger) *RedisScoreRepository {
	return &RedisScoreRepository{rdb: rdb, logger: logger}
}

func (r *RedisScoreRepository) AddScore(ctx context.Context, userID string, personaType persona.Type, delta int) error {
	start := time.Now()
	_, err := r.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HIncrBy(ctx, scoreKeyPrefix+userID, string(personaType), int64(delta))
		p.HSet(ctx, updatedKeyPrefix+userID, string(personaType), time.Now().UTC().Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		r.logger.Persona().Error("Redis persona score increment failed", "error", err.Error(), "personaType", personaType)
		return fmt.Errorf("failed to increment persona score: %w", err)
	}
	r.logger.Persona().Debug("Redis persona score incremented", "personaType", personaType, "delta", delta, "duration", time.Since(start))
	return nil
}

func (r *RedisScoreRepository) GetScores(ctx context.Context, userID string) (map[persona.Type]int, error) {
	raw, err := r.rdb.HGetAll(ctx, scoreKeyPrefix+userID).Result()
	if err != nil {
		r.logger.Persona().Error("Redis persona score read failed", "error", err.Error())
		return nil, fmt.Errorf("failed to read persona scores: %w", err)
	}
	scores := make(map[persona.Type]int, len(raw))
	for field, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.logger.Persona().Warn("Skipping non-numeric persona score", "personaType", field, "value", v)
			continue
		}
		scores[persona.Type(field)] = n
	}
	return scores, nil
}

func (r *RedisScoreRepository) Reset(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, scoreKeyPrefix+userID, updatedKeyPrefix+userID).Err(); err != nil {
		r.logger.Persona().Error("Redis persona score reset failed", "error", err.Error())
		return fmt.Errorf("failed to reset persona scores: %w", err)
	}
	return nil
}
