package app

import (
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/data-steve/rowcol-sub001/internal/config"
	"github.com/data-steve/rowcol-sub001/pkg/jobs"
)

func TestNewJobStoreMemory(t *testing.T) {
	store, err := newJobStore(&config.Config{JobsStorage: "memory"}, nil)
	if err != nil {
		t.Fatalf("newJobStore() error = %v", err)
	}
	if _, ok := store.(*jobs.MemoryStore); !ok {
		t.Errorf("store type = %T, want *jobs.MemoryStore", store)
	}
}

func TestNewJobStoreDefaultsToMemory(t *testing.T) {
	store, err := newJobStore(&config.Config{}, nil)
	if err != nil {
		t.Fatalf("newJobStore() error = %v", err)
	}
	if _, ok := store.(*jobs.MemoryStore); !ok {
		t.Errorf("store type = %T, want *jobs.MemoryStore", store)
	}
}

func TestNewJobStoreRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	store, err := newJobStore(&config.Config{JobsStorage: "redis"}, rdb)
	if err != nil {
		t.Fatalf("newJobStore() error = %v", err)
	}
	if _, ok := store.(*jobs.RedisStore); !ok {
		t.Errorf("store type = %T, want *jobs.RedisStore", store)
	}
}

func TestNewJobStoreUnknownBackend(t *testing.T) {
	_, err := newJobStore(&config.Config{JobsStorage: "postgres"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown jobs storage backend")
	}
}
