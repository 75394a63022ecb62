package integration

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/resepku/backend/internal/infrastructure/auth"
	"github.com/resepku/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedRedis     testcontainers.Container
	sharedRedisAddr config.RedisConfig
)

// NewTestRedis returns a client for a Redis container shared by the package,
// flushed before use.
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	skipIfShort(t)
	ctx := context.Background()

	cfg, err := sharedRedisConfig(ctx)
	require.NoError(t, err, "Failed to start Redis container")

	client, err := auth.NewRedisClient(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sharedRedisConfig(ctx context.Context) (config.RedisConfig, error) {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedRedis != nil {
		return sharedRedisAddr, nil
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		return config.RedisConfig{}, err
	}
	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return config.RedisConfig{}, err
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		_ = container.Terminate(ctx)
		return config.RedisConfig{}, err
	}

	sharedRedis = container
	sharedRedisAddr = config.RedisConfig{Enabled: true, Host: host, Port: port.Int()}
	return sharedRedisAddr, nil
}
