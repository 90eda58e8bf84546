package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cvforge/internal/cv"
)

// Store 是保存操作的持久化后端。
type Store interface {
	Create(ctx context.Context, userID uint, title, templateID string, rec cv.Record) (uint, error)
	Update(ctx context.Context, userID, id uint, title, templateID string, rec cv.Record) error
}

// SaveRequest 描述一次保存。Silent 为 true 时调用方不向用户弹通知，
// 但 id/错误照常返回（导出链路靠它拿到已持久化的 id）。
type SaveRequest struct {
	UserID     uint
	RecordID   uint // 0 表示新建
	Title      string
	TemplateID string
	Record     cv.Record
	Silent     bool
}

// Saver 保证同一记录 id 最多一个持久化变更在途：并发请求排在
// 前一个之后串行执行，绝不交错。必填校验在碰存储之前完成。
type Saver struct {
	store  Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*recordLock
}

type recordLock struct {
	sync.Mutex
	refs int
}

func NewSaver(store Store, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{store: store, logger: logger, locks: make(map[string]*recordLock)}
}

// Save 执行校验后落库，返回记录 id。保存与导出不构成事务：
// 保存成功后导出失败，记录仍然在库。
func (s *Saver) Save(ctx context.Context, req SaveRequest) (uint, error) {
	// 校验失败不碰存储，也不占记录锁
	if err := req.Record.Validate(); err != nil {
		return 0, err
	}

	key := s.lockKey(req)
	lock := s.acquire(key)
	defer s.release(key, lock)
	lock.Lock()
	defer lock.Unlock()

	if req.RecordID == 0 {
		id, err := s.store.Create(ctx, req.UserID, req.Title, req.TemplateID, req.Record)
		if err != nil {
			s.logSaveErr(req, err)
			return 0, fmt.Errorf("create cv: %w", err)
		}
		return id, nil
	}

	if err := s.store.Update(ctx, req.UserID, req.RecordID, req.Title, req.TemplateID, req.Record); err != nil {
		s.logSaveErr(req, err)
		return 0, fmt.Errorf("update cv %d: %w", req.RecordID, err)
	}
	return req.RecordID, nil
}

// lockKey 以记录 id 为锁粒度；新建没有 id，按用户串行。
func (s *Saver) lockKey(req SaveRequest) string {
	if req.RecordID == 0 {
		return fmt.Sprintf("new:%d", req.UserID)
	}
	return fmt.Sprintf("cv:%d", req.RecordID)
}

func (s *Saver) acquire(key string) *recordLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &recordLock{}
		s.locks[key] = lock
	}
	lock.refs++
	return lock
}

func (s *Saver) release(key string, lock *recordLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, key)
	}
}

func (s *Saver) logSaveErr(req SaveRequest, err error) {
	// 静默保存只把失败交还调用方，不往用户通知通道写
	if req.Silent {
		s.logger.Debug("静默保存失败", "record_id", req.RecordID, "error", err)
		return
	}
	s.logger.Error("保存失败", "record_id", req.RecordID, "error", err)
}
