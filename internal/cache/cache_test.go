package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type memCache struct {
	data map[string][]byte
	err  error
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *memCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRememberFillsOnMiss(t *testing.T) {
	c := newMemCache()
	calls := 0
	fill := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	got, err := Remember(context.Background(), c, "k", time.Minute, fill)
	if err != nil || got != 42 {
		t.Fatalf("got %d, err %v", got, err)
	}

	got, err = Remember(context.Background(), c, "k", time.Minute, fill)
	if err != nil || got != 42 {
		t.Fatalf("got %d, err %v", got, err)
	}
	if calls != 1 {
		t.Errorf("fill called %d times, want 1", calls)
	}
}

func TestRememberFallsThroughOnBackendError(t *testing.T) {
	c := newMemCache()
	c.err = errors.New("redis down")

	got, err := Remember(context.Background(), c, "k", time.Minute, func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil || got != "fresh" {
		t.Errorf("got %q, err %v", got, err)
	}
}

func TestRememberPropagatesFillError(t *testing.T) {
	c := newMemCache()
	wantErr := errors.New("query failed")

	_, err := Remember(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v", err)
	}
}
