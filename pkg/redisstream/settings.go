package redisstream

import "github.com/go-go-golems/chatfront/pkg/config"

// Settings holds Redis Streams transport configuration for Watermill.
type Settings struct {
	Enabled  bool
	Addr     string
	Group    string
	Consumer string
}

// FromConfig maps the resolved CLI settings onto transport settings.
func FromConfig(c config.RedisSettings) Settings {
	s := Settings{Enabled: c.Enabled, Addr: c.Addr, Group: c.Group, Consumer: c.Consumer}
	if s.Addr == "" {
		s.Addr = "localhost:6379"
	}
	if s.Group == "" {
		s.Group = "chatfront"
	}
	if s.Consumer == "" {
		s.Consumer = "chatfront-1"
	}
	return s
}
