package repo

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/PeterWorld816/movieapi/internal/config"
	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	stores, err := Open(context.Background(), config.Config{StoreDriver: config.StoreMemory, EnforceUniqueUsername: true}, nil, log)
	require.NoError(t, err)
	defer stores.Close()

	require.NoError(t, stores.Ping(context.Background()))

	_, err = stores.Users.Create(context.Background(), user.User{Username: "a", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = stores.Users.Create(context.Background(), user.User{Username: "a", Email: "b@example.com"})
	assert.ErrorIs(t, err, user.ErrDuplicateUsername)
}

func TestOpen_UnknownDriver(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := Open(context.Background(), config.Config{StoreDriver: "cassandra"}, nil, log)
	assert.Error(t, err)
}
