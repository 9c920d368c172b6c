package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis dials Redis and pings it. The read timeout stays short;
// blocking commands (BRPOP, XREADGROUP) extend it per call.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, clientName string) (redis.UniversalClient, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	dbIndex, err := strconv.Atoi(cfg.DB)
	if err != nil {
		dbIndex = 0
	}

	opts := &redis.Options{
		Addr:            addr,
		Password:        cfg.Password,
		DB:              dbIndex,
		DialTimeout:     1 * time.Second,
		ReadTimeout:     400 * time.Millisecond,
		WriteTimeout:    400 * time.Millisecond,
		PoolSize:        100,
		MinIdleConns:    10,
		PoolTimeout:     750 * time.Millisecond,
		ConnMaxIdleTime: 90 * time.Second,
		PoolFIFO:        true,
		MaxRetries:      1,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 200 * time.Millisecond,

		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			// shows up in CLIENT LIST
			_ = cn.ClientSetName(ctx, clientName).Err()
			return nil
		},
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}
