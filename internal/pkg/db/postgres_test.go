package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-engine/internal/config"
)

func TestPoolConfigDefaults(t *testing.T) {
	pc, err := poolConfig(&config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "staking", Password: "secret", Name: "staking",
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, 10*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, ApplicationName, pc.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "staking", pc.ConnConfig.Database)
}

func TestPoolConfigOverrides(t *testing.T) {
	pc, err := poolConfig(&config.DatabaseConfig{
		Host: "db", Port: 6543, User: "u", Password: "p", Name: "n",
		PoolSize:        20,
		ConnectTimeout:  3 * time.Second,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(20), pc.MaxConns)
	assert.Equal(t, int32(5), pc.MinConns)
	assert.Equal(t, 3*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, 5*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, uint16(6543), pc.ConnConfig.Port)
}
