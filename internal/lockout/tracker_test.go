package lockout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/kakeibo/internal/model"
)

// --- モック ---

type mockAttemptRepo struct {
	recordAttemptFn func(ctx context.Context, ip string, window time.Duration) (int, error)
	findByIPFn      func(ctx context.Context, ip string) (*model.LoginAttempt, error)
	listFn          func(ctx context.Context) ([]*model.LoginAttempt, error)
}

func (m *mockAttemptRepo) RecordAttempt(ctx context.Context, ip string, window time.Duration) (int, error) {
	return m.recordAttemptFn(ctx, ip, window)
}
func (m *mockAttemptRepo) FindByIP(ctx context.Context, ip string) (*model.LoginAttempt, error) {
	if m.findByIPFn != nil {
		return m.findByIPFn(ctx, ip)
	}
	return nil, nil
}
func (m *mockAttemptRepo) List(ctx context.Context) ([]*model.LoginAttempt, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// fakeAttemptStore はリポジトリのUPSERT契約をインメモリで再現する。
// 前回試行からwindow以上経過していればカウントを1にリセット、
// そうでなければインクリメントし、キーごとの更新はミューテックスで直列化する。
// テストから時刻を進められるようnowを差し替え可能にしている。
type fakeAttemptStore struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[string]*model.LoginAttempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		now:     time.Now,
		records: make(map[string]*model.LoginAttempt),
	}
}

func (s *fakeAttemptStore) RecordAttempt(ctx context.Context, ip string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.records[ip]
	if !ok {
		rec = &model.LoginAttempt{IPAddress: ip}
		s.records[ip] = rec
	}
	if !ok || !rec.LastAttemptAt.After(now.Add(-window)) {
		rec.Attempts = 1
	} else {
		rec.Attempts++
	}
	rec.LastAttemptAt = now
	return rec.Attempts, nil
}

func (s *fakeAttemptStore) FindByIP(ctx context.Context, ip string) (*model.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[ip]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (s *fakeAttemptStore) List(ctx context.Context) ([]*model.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var attempts []*model.LoginAttempt
	for _, rec := range s.records {
		copied := *rec
		attempts = append(attempts, &copied)
	}
	return attempts, nil
}

// --- テスト ---

// TestTracker_RecordAttempt_WithinThreshold は閾値内の試行が許可されることを検証する。
func TestTracker_RecordAttempt_WithinThreshold(t *testing.T) {
	repo := &mockAttemptRepo{
		recordAttemptFn: func(ctx context.Context, ip string, window time.Duration) (int, error) {
			return 4, nil
		},
	}
	tracker := NewTracker(repo, Config{MaxAttempts: 4, Window: time.Hour})

	allowed, err := tracker.RecordAttempt(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if !allowed {
		t.Error("expected attempt at threshold to be allowed")
	}
}

// TestTracker_RecordAttempt_ExceedsThreshold は閾値超過の試行が拒否されることを検証する。
func TestTracker_RecordAttempt_ExceedsThreshold(t *testing.T) {
	repo := &mockAttemptRepo{
		recordAttemptFn: func(ctx context.Context, ip string, window time.Duration) (int, error) {
			return 5, nil
		},
	}
	tracker := NewTracker(repo, Config{MaxAttempts: 4, Window: time.Hour})

	allowed, err := tracker.RecordAttempt(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if allowed {
		t.Error("expected attempt over threshold to be denied")
	}
}

// TestTracker_RecordAttempt_PassesWindow はリポジトリに設定済みウィンドウが渡されることを検証する。
func TestTracker_RecordAttempt_PassesWindow(t *testing.T) {
	var gotWindow time.Duration
	repo := &mockAttemptRepo{
		recordAttemptFn: func(ctx context.Context, ip string, window time.Duration) (int, error) {
			gotWindow = window
			return 1, nil
		},
	}
	tracker := NewTracker(repo, Config{MaxAttempts: 4, Window: 30 * time.Minute})

	if _, err := tracker.RecordAttempt(context.Background(), "10.0.0.1"); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if gotWindow != 30*time.Minute {
		t.Errorf("window = %v, want %v", gotWindow, 30*time.Minute)
	}
}

// TestTracker_RecordAttempt_RepoError はストア障害がラップされて伝播することを検証する。
func TestTracker_RecordAttempt_RepoError(t *testing.T) {
	repoErr := errors.New("connection refused")
	repo := &mockAttemptRepo{
		recordAttemptFn: func(ctx context.Context, ip string, window time.Duration) (int, error) {
			return 0, repoErr
		},
	}
	tracker := NewTracker(repo, Config{MaxAttempts: 4, Window: time.Hour})

	_, err := tracker.RecordAttempt(context.Background(), "10.0.0.1")
	if !errors.Is(err, repoErr) {
		t.Errorf("expected wrapped repo error, got %v", err)
	}
}

// TestTracker_WindowReset はロックアウトの一連の流れを検証する。
// 4回目までは許可、5回目以降は拒否、ウィンドウ経過後は
// カウントが1にリセットされて再び許可される。
func TestTracker_WindowReset(t *testing.T) {
	store := newFakeAttemptStore()
	current := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	tracker := NewTracker(store, Config{MaxAttempts: 4, Window: time.Hour})
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		allowed, err := tracker.RecordAttempt(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("attempt %d returned error: %v", i, err)
		}
		if !allowed {
			t.Fatalf("attempt %d: expected allowed", i)
		}
	}

	for i := 5; i <= 6; i++ {
		allowed, err := tracker.RecordAttempt(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("attempt %d returned error: %v", i, err)
		}
		if allowed {
			t.Fatalf("attempt %d: expected denied", i)
		}
	}

	// 拒否された試行も最終試行時刻を更新するため、ウィンドウは最後の試行から数える
	current = current.Add(time.Hour)

	allowed, err := tracker.RecordAttempt(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("attempt after window returned error: %v", err)
	}
	if !allowed {
		t.Error("expected attempt after window to be allowed")
	}

	rec, err := tracker.FindAttempt(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("FindAttempt returned error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected attempt record, got nil")
	}
	if rec.Attempts != 1 {
		t.Errorf("Attempts after window reset = %d, want 1", rec.Attempts)
	}
}

// TestTracker_ConcurrentAttempts は同一IPからの並行試行で
// カウントの取りこぼしが起きないことを検証する。
func TestTracker_ConcurrentAttempts(t *testing.T) {
	store := newFakeAttemptStore()
	tracker := NewTracker(store, Config{MaxAttempts: 4, Window: time.Hour})
	ctx := context.Background()

	const attempts = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := tracker.RecordAttempt(ctx, "10.0.0.1")
			if err != nil {
				t.Errorf("RecordAttempt returned error: %v", err)
				return
			}
			mu.Lock()
			if ok {
				allowed++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	rec, err := tracker.FindAttempt(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("FindAttempt returned error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected attempt record, got nil")
	}
	if rec.Attempts != attempts {
		t.Errorf("Attempts = %d, want %d", rec.Attempts, attempts)
	}
	if allowed != 4 {
		t.Errorf("allowed attempts = %d, want 4", allowed)
	}
}

// TestTracker_ListAttempts は試行レコード一覧の取得を検証する。
func TestTracker_ListAttempts(t *testing.T) {
	now := time.Now()
	repo := &mockAttemptRepo{
		listFn: func(ctx context.Context) ([]*model.LoginAttempt, error) {
			return []*model.LoginAttempt{
				{IPAddress: "10.0.0.1", Attempts: 7, LastAttemptAt: now},
			}, nil
		},
	}
	tracker := NewTracker(repo, Config{MaxAttempts: 4, Window: time.Hour})

	attempts, err := tracker.ListAttempts(context.Background())
	if err != nil {
		t.Fatalf("ListAttempts returned error: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt record, got %d", len(attempts))
	}
	if attempts[0].Attempts != 7 {
		t.Errorf("Attempts = %d, want %d", attempts[0].Attempts, 7)
	}
}
