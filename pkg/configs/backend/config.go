package backend

import (
	"time"
)

type BackendConfig struct {
	port    int32
	control *ControlConfig
}

func (c *BackendConfig) Port() int32 {
	return c.port
}

func (c *BackendConfig) Control() *ControlConfig {
	return c.control
}

// Configuration for the control plane.
//
// to get `ControlConfig` instance, use `ControlConfigMarshall.TrySeal()` .
type ControlConfig struct {
	database string
	redis    *RedisConfig
	queue    *QueueConfig
	scope    *ScopeConfig
}

// Connection string for database.
func (c *ControlConfig) Database() string {
	return c.database
}

// Connection settings for redis, shared by the grant store, the
// ttl store and the command queue.
func (c *ControlConfig) Redis() *RedisConfig {
	return c.redis
}

// Configuration for the command queue.
func (c *ControlConfig) Queue() *QueueConfig {
	return c.queue
}

// Configuration for scoped tokens.
func (c *ControlConfig) Scope() *ScopeConfig {
	return c.scope
}

type RedisConfig struct {
	address  string
	password string
	db       int
}

// host:port of the redis server.
func (r *RedisConfig) Address() string {
	return r.address
}

func (r *RedisConfig) Password() string {
	return r.password
}

func (r *RedisConfig) DB() int {
	return r.db
}

type QueueConfig struct {
	key string
}

// redis list key commands are pushed to. default = "expfab.commands"
func (q *QueueConfig) Key() string {
	return q.key
}

type ScopeConfig struct {
	tokenSecret string
	tokenTTL    time.Duration
	grantPrefix string
	ttlPrefix   string
}

// HS256 secret ephemeral scope tokens are signed with.
func (s *ScopeConfig) TokenSecret() string {
	return s.tokenSecret
}

// lifetime of ephemeral scope tokens. default = 5m
func (s *ScopeConfig) TokenTTL() time.Duration {
	return s.tokenTTL
}

// redis key prefix for scope grants. default = "expfab.scope"
func (s *ScopeConfig) GrantPrefix() string {
	return s.grantPrefix
}

// redis key prefix for experiment ttl marks. default = "expfab.ttl"
func (s *ScopeConfig) TTLPrefix() string {
	return s.ttlPrefix
}
