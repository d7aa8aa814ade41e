// Package cache implements the Cache Provider Actor kind (spec §4.4)
// backed by Redis via go-redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/provider/actor"
)

// Activate opens a go-redis client against the descriptor's config
// (expects "addr", optionally "password" and "db") and spawns the actor.
func Activate(ctx context.Context, desc *domain.ProviderDescriptor, inboxDepth int, logger *zap.Logger) (*actor.Actor, error) {
	db, _ := strconv.Atoi(desc.Config["db"])
	client := redis.NewClient(&redis.Options{
		Addr:     desc.Config["addr"],
		Password: desc.Config["password"],
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &domain.ConnectionError{Message: err.Error()}
	}

	handle := func(ctx context.Context, op string, args []byte) ([]byte, error) {
		return dispatch(ctx, client, op, args)
	}
	test := func(ctx context.Context) (time.Duration, error) {
		start := time.Now()
		err := client.Ping(ctx).Err()
		return time.Since(start), err
	}
	info := func() domain.ConnectionInfo {
		return domain.ConnectionInfo{
			Kind:    domain.ProviderKindCache,
			Subtype: desc.Subtype,
			Details: map[string]string{"addr": desc.Config["addr"]},
		}
	}

	return actor.Spawn(desc.Name, domain.ProviderKindCache, inboxDepth, handle, test, info, func() { client.Close() }, logger), nil
}

func dispatch(ctx context.Context, client *redis.Client, op string, rawArgs []byte) ([]byte, error) {
	switch op {
	case "get":
		var args struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		value, err := client.Get(ctx, args.Key).Bytes()
		found := true
		if err == redis.Nil {
			found, err = false, nil
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Value []byte `json:"value"`
			Found bool   `json:"found"`
		}{Value: value, Found: found})

	case "set":
		var args struct {
			Key        string `json:"key"`
			Value      []byte `json:"value"`
			TTLSeconds int64  `json:"ttl_seconds"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		var ttl time.Duration
		if args.TTLSeconds > 0 {
			ttl = time.Duration(args.TTLSeconds) * time.Second
		}
		if err := client.Set(ctx, args.Key, args.Value, ttl).Err(); err != nil {
			return nil, err
		}
		return json.Marshal(struct{}{})

	case "delete":
		var args struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		n, err := client.Del(ctx, args.Key).Result()
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Deleted bool `json:"deleted"`
		}{Deleted: n > 0})

	case "increment":
		var args struct {
			Key    string `json:"key"`
			Amount int64  `json:"amount"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		value, err := client.IncrBy(ctx, args.Key, args.Amount).Result()
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Value int64 `json:"value"`
		}{Value: value})

	default:
		return nil, fmt.Errorf("cache provider: unknown op %q", op)
	}
}
