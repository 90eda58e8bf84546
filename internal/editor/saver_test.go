package editor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cvforge/internal/cv"
)

type fakeStore struct {
	mu       sync.Mutex
	created  int
	updated  int
	inFlight int32
	maxSeen  int32
	delay    time.Duration
	err      error
}

func (f *fakeStore) track() func() {
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { atomic.AddInt32(&f.inFlight, -1) }
}

func (f *fakeStore) Create(ctx context.Context, userID uint, title, templateID string, rec cv.Record) (uint, error) {
	defer f.track()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.created++
	return uint(f.created), nil
}

func (f *fakeStore) Update(ctx context.Context, userID, id uint, title, templateID string, rec cv.Record) error {
	defer f.track()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updated++
	return nil
}

func validRecord() cv.Record {
	return cv.Record{FullName: "Ada", Email: "ada@example.com"}
}

func TestSaveValidationBeforeStore(t *testing.T) {
	store := &fakeStore{}
	s := NewSaver(store, nil)

	_, err := s.Save(context.Background(), SaveRequest{UserID: 1, Record: cv.Record{Email: "a@b.c"}})
	if !errors.Is(err, cv.ErrMissingFullName) {
		t.Fatalf("want ErrMissingFullName, got %v", err)
	}
	_, err = s.Save(context.Background(), SaveRequest{UserID: 1, Record: cv.Record{FullName: "Ada"}})
	if !errors.Is(err, cv.ErrMissingEmail) {
		t.Fatalf("want ErrMissingEmail, got %v", err)
	}
	if store.created+store.updated != 0 {
		t.Fatal("validation failure must not touch the store")
	}
}

func TestSaveCreateThenUpdate(t *testing.T) {
	store := &fakeStore{}
	s := NewSaver(store, nil)
	ctx := context.Background()

	id, err := s.Save(ctx, SaveRequest{UserID: 1, Record: validRecord(), Title: "CV"})
	if err != nil || id == 0 {
		t.Fatalf("create: id=%d err=%v", id, err)
	}
	got, err := s.Save(ctx, SaveRequest{UserID: 1, RecordID: id, Record: validRecord()})
	if err != nil || got != id {
		t.Fatalf("update: id=%d err=%v", got, err)
	}
	if store.created != 1 || store.updated != 1 {
		t.Fatalf("store calls: created=%d updated=%d", store.created, store.updated)
	}
}

// 同一记录 id 的并发保存必须串行：存储层任一时刻最多一个在途变更。
func TestSaveSingleFlightPerRecord(t *testing.T) {
	store := &fakeStore{delay: 10 * time.Millisecond}
	s := NewSaver(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Save(ctx, SaveRequest{UserID: 1, RecordID: 7, Record: validRecord()}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if store.maxSeen > 1 {
		t.Fatalf("saves interleaved: max in-flight = %d", store.maxSeen)
	}
	if store.updated != 8 {
		t.Fatalf("queued saves lost: updated=%d", store.updated)
	}
}

// 静默保存失败仍把错误交还调用方。
func TestSilentSaveReturnsError(t *testing.T) {
	store := &fakeStore{err: errors.New("remote down")}
	s := NewSaver(store, nil)

	_, err := s.Save(context.Background(), SaveRequest{
		UserID: 1, RecordID: 3, Record: validRecord(), Silent: true,
	})
	if err == nil {
		t.Fatal("silent save must still propagate the failure")
	}
}
