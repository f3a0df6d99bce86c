package backend

import (
	"fmt"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/backend.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type BackendConfigMarshall struct {
	Port    int32                  `yaml:"port"`
	Control *ControlConfigMarshall `yaml:"control"`
}

var _ Marshalled[*BackendConfig] = &BackendConfigMarshall{}

func (b *BackendConfigMarshall) trySeal(path string) *BackendConfig {
	return &BackendConfig{
		port:    b.Port,
		control: nonnil(b.Control, path+".control").trySeal(path + ".control"),
	}
}

// Configuration of the control plane.
//
// This type is marshalling value and mutable.
// Consider to use immutable version, `ControlConfig`.
// You can get `ControlConfig` instance with `ControlConfigMarshall.TrySeal()`
type ControlConfigMarshall struct {
	Database string               `yaml:"database"`
	Redis    *RedisConfigMarshall `yaml:"redis"`
	Queue    *QueueConfigMarshall `yaml:"queue,omitempty"`
	Scope    *ScopeConfigMarshall `yaml:"scope"`
}

// verify configuration value and create "readonly" version of this.
//
// IT WILL PANIC if any misconfiguration is found.
func (cm *ControlConfigMarshall) TrySeal() *ControlConfig {
	return cm.trySeal("(root)")
}

func (cm *ControlConfigMarshall) trySeal(path string) *ControlConfig {
	queue := cm.Queue
	if queue == nil {
		queue = &QueueConfigMarshall{}
	}
	return &ControlConfig{
		database: required(cm.Database, path+".database"),
		redis:    nonnil(cm.Redis, path+".redis").trySeal(path + ".redis"),
		queue:    queue.trySeal(path + ".queue"),
		scope:    nonnil(cm.Scope, path+".scope").trySeal(path + ".scope"),
	}
}

type RedisConfigMarshall struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

func (rm *RedisConfigMarshall) trySeal(path string) *RedisConfig {
	return &RedisConfig{
		address:  required(rm.Address, path+".address"),
		password: rm.Password,
		db:       rm.DB,
	}
}

type QueueConfigMarshall struct {
	Key string `yaml:"key,omitempty"`
}

func (qm *QueueConfigMarshall) trySeal(path string) *QueueConfig {
	key := qm.Key
	if key == "" {
		key = "expfab.commands"
	}
	return &QueueConfig{key: key}
}

type ScopeConfigMarshall struct {
	TokenSecret string `yaml:"tokenSecret"`
	TokenTTL    string `yaml:"tokenTTL,omitempty"`
	GrantPrefix string `yaml:"grantPrefix,omitempty"`
	TTLPrefix   string `yaml:"ttlPrefix,omitempty"`
}

func (sm *ScopeConfigMarshall) trySeal(path string) *ScopeConfig {
	ttl := 5 * time.Minute
	if sm.TokenTTL != "" {
		parsed, err := time.ParseDuration(sm.TokenTTL)
		if err != nil {
			panic(fmt.Errorf("%s.tokenTTL can not be parsed: %w", path, err))
		}
		if parsed <= 0 {
			panic(path + ".tokenTTL should be positive")
		}
		ttl = parsed
	}
	grantPrefix := sm.GrantPrefix
	if grantPrefix == "" {
		grantPrefix = "expfab.scope"
	}
	ttlPrefix := sm.TTLPrefix
	if ttlPrefix == "" {
		ttlPrefix = "expfab.ttl"
	}
	return &ScopeConfig{
		tokenSecret: required(sm.TokenSecret, path+".tokenSecret"),
		tokenTTL:    ttl,
		grantPrefix: grantPrefix,
		ttlPrefix:   ttlPrefix,
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}
