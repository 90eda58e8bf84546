package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeSlotClient struct {
	values map[string]string
}

func (f *fakeSlotClient) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.values == nil {
		f.values = map[string]string{}
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeSlotClient) GetDel(ctx context.Context, key string) *redis.StringCmd {
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	delete(f.values, key)
	return redis.NewStringResult(val, nil)
}

func TestSlotReadAndClear(t *testing.T) {
	slot := NewSlot(&fakeSlotClient{})
	ctx := context.Background()

	if err := slot.Put(ctx, 1, []byte(`{"full_name":"Ada"}`)); err != nil {
		t.Fatal(err)
	}

	payload, ok, err := slot.Take(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("take: ok=%v err=%v", ok, err)
	}
	if string(payload) != `{"full_name":"Ada"}` {
		t.Fatalf("payload = %s", payload)
	}

	// 第二次读必须落空（读即清）
	if _, ok, err := slot.Take(ctx, 1); err != nil || ok {
		t.Fatalf("slot not cleared: ok=%v err=%v", ok, err)
	}
}

func TestSlotIsolatedPerUser(t *testing.T) {
	slot := NewSlot(&fakeSlotClient{})
	ctx := context.Background()

	if err := slot.Put(ctx, 1, []byte(`a`)); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := slot.Take(ctx, 2); ok {
		t.Fatal("user 2 must not see user 1's slot")
	}
	if _, ok, _ := slot.Take(ctx, 1); !ok {
		t.Fatal("user 1's payload lost")
	}
}
