package redisstream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatfront/pkg/config"
)

func TestFromConfig_Defaults(t *testing.T) {
	s := FromConfig(config.RedisSettings{})
	require.False(t, s.Enabled)
	require.Equal(t, "localhost:6379", s.Addr)
	require.Equal(t, "chatfront", s.Group)
	require.Equal(t, "chatfront-1", s.Consumer)
}

func TestBuildRouter_DisabledUsesInMemory(t *testing.T) {
	r, err := BuildRouter(Settings{})
	require.NoError(t, err)
	require.NotNil(t, r.Publisher)
	require.NotNil(t, r.Subscriber)
	require.NoError(t, r.Close())
}
