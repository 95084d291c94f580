package store_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"smoozies-monitor/internal/store"
)

var errKVDown = errors.New("kv unavailable")

// fakeKVStore 仅用于单元测试（内存 KV，可模拟写入失败）
type fakeKVStore struct {
	mu       sync.Mutex
	data     map[string]string
	failSet  bool
	setCalls int
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{
		data: make(map[string]string),
	}
}

func (f *fakeKVStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.data[key]
	if !ok {
		return "", store.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setCalls++
	if f.failSet {
		return errKVDown
	}
	f.data[key] = value
	return nil
}

func (f *fakeKVStore) setFailing(v bool) {
	f.mu.Lock()
	f.failSet = v
	f.mu.Unlock()
}

func (f *fakeKVStore) raw(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key]
}
