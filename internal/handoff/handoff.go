package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 跨页交接槽：生成流程把 AI 载荷放进来，编辑器入口一次性取走。
// 显式的单槽消息通道，读即清，不做广播。

const defaultTTL = 10 * time.Minute

type slotClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// Slot 是按用户隔离的单槽交接通道。
type Slot struct {
	client slotClient
	ttl    time.Duration
}

func NewSlot(client slotClient) *Slot {
	return &Slot{client: client, ttl: defaultTTL}
}

func slotKey(userID uint) string {
	return fmt.Sprintf("handoff:ai_result:%d", userID)
}

// Put 写入载荷，覆盖旧值。TTL 防止未消费的载荷无限滞留。
func (s *Slot) Put(ctx context.Context, userID uint, payload []byte) error {
	if err := s.client.Set(ctx, slotKey(userID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("put handoff slot: %w", err)
	}
	return nil
}

// Take 读取并清空槽位。槽为空返回 (nil, false, nil)。
// 载荷是否为合法 JSON 由调和器判断，这里只负责一次性传递。
func (s *Slot) Take(ctx context.Context, userID uint) ([]byte, bool, error) {
	val, err := s.client.GetDel(ctx, slotKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("take handoff slot: %w", err)
	}
	return []byte(val), true, nil
}
