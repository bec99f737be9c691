package mongoutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestValidateAndSetDefaults(t *testing.T) {
	c := &Config{Address: []string{"db1:27017", "db2:27017"}, Database: "pshare", Username: "u", Password: "p"}
	require.NoError(t, c.ValidateAndSetDefaults())
	assert.Equal(t, defaultMaxPoolSize, c.MaxPoolSize)
	assert.Equal(t, defaultMaxRetry, c.MaxRetry)
	assert.Equal(t, "mongodb://u:p@db1:27017,db2:27017/pshare?authSource=pshare&maxPoolSize=100", c.Uri)
	assert.Equal(t, defaultAppName, c.AppName)
	assert.Equal(t, defaultSelectTimeout, c.SelectTimeout)

	assert.Error(t, (&Config{Database: "x"}).ValidateAndSetDefaults())
	assert.Error(t, (&Config{Uri: "mongodb://localhost"}).ValidateAndSetDefaults())
}

func TestBuildURIWithoutCredentials(t *testing.T) {
	c := &Config{Address: []string{"localhost:27017"}, Database: "pshare", MaxPoolSize: 5}
	assert.Equal(t, "mongodb://localhost:27017/pshare?authSource=admin&maxPoolSize=5", buildMongoURI(c, "admin"))
}

func TestBuildURIEscapesCredentials(t *testing.T) {
	c := &Config{Address: []string{"db:27017"}, Database: "pshare", Username: "svc", Password: "p@ss/word", MaxPoolSize: 10}
	uri := buildMongoURI(c, "admin")
	assert.Equal(t, "mongodb://svc:p%40ss%2Fword@db:27017/pshare?authSource=admin&maxPoolSize=10", uri)
}

func TestApplyConfigToOptions(t *testing.T) {
	c := &Config{Uri: "mongodb://localhost:27017", Database: "pshare"}
	require.NoError(t, c.ValidateAndSetDefaults())
	opts, err := applyConfigToOptions(c)
	require.NoError(t, err)
	require.NotNil(t, opts.MaxPoolSize)
	assert.Equal(t, uint64(defaultMaxPoolSize), *opts.MaxPoolSize)
	require.NotNil(t, opts.AppName)
	assert.Equal(t, "pshare", *opts.AppName)
	assert.Nil(t, opts.Auth)

	_, err = applyConfigToOptions(&Config{})
	assert.Error(t, err)
}

func TestShouldRetry(t *testing.T) {
	ctx := context.Background()
	assert.True(t, shouldRetry(ctx, errors.New("network")))
	assert.False(t, shouldRetry(ctx, mongo.CommandError{Code: 18}))
	assert.True(t, shouldRetry(ctx, mongo.CommandError{Code: 11600}))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, shouldRetry(cctx, errors.New("network")))
}
