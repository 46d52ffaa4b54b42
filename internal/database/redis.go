package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientName tags every connection the service opens, visible in CLIENT LIST.
const ClientName = "cseasy-api"

const redisPingTimeout = 5 * time.Second

// ConnectRedis builds the client shared by the dashboard cache, transcripts
// and the feed fan-out, and fails fast when the server is unreachable.
func ConnectRedis(rawURL string) (*redis.Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("redis url must not be empty")
	}

	options, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url %s: %w", RedactDSN(rawURL), err)
	}
	if options.ClientName == "" {
		options.ClientName = ClientName
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", RedactDSN(rawURL), err)
	}

	return client, nil
}
