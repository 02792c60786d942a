package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/sleeplog/internal/middleware"
	"github.com/hitoshi/sleeplog/internal/model"
	"github.com/hitoshi/sleeplog/internal/sleep"
)

// --- モック定義 ---

// mockSubscriberService はSubscriberServiceInterfaceのモック実装。
type mockSubscriberService struct {
	registerFn       func(ctx context.Context, username, email string) (*model.Subscriber, error)
	resolveFn        func(ctx context.Context, id int64) (*model.Subscriber, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.Subscriber, error)
	listFn           func(ctx context.Context) ([]*model.Subscriber, error)
}

func (m *mockSubscriberService) Register(ctx context.Context, username, email string) (*model.Subscriber, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, email)
	}
	return nil, nil
}

func (m *mockSubscriberService) Resolve(ctx context.Context, id int64) (*model.Subscriber, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, id)
	}
	return nil, model.NewSubscriberNotFoundError(id)
}

func (m *mockSubscriberService) FindByUsername(ctx context.Context, username string) (*model.Subscriber, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockSubscriberService) List(ctx context.Context) ([]*model.Subscriber, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// mockSleepService はSleepServiceInterfaceのモック実装。
type mockSleepService struct {
	today        model.Date
	createFn     func(ctx context.Context, subscriberID int64, in sleep.CreateSleepLogInput) (*model.SleepEntry, error)
	lastNightFn  func(ctx context.Context, subscriberID int64) (*model.SleepEntry, error)
	last30DaysFn func(ctx context.Context, subscriberID int64) (*model.SleepStatistics, error)
}

func (m *mockSleepService) Today() model.Date {
	if m.today == (model.Date{}) {
		return model.Date{Year: 2024, Month: time.May, Day: 30}
	}
	return m.today
}

func (m *mockSleepService) CreateSleepLog(ctx context.Context, subscriberID int64, in sleep.CreateSleepLogInput) (*model.SleepEntry, error) {
	if m.createFn != nil {
		return m.createFn(ctx, subscriberID, in)
	}
	return nil, nil
}

func (m *mockSleepService) GetLastNightSleep(ctx context.Context, subscriberID int64) (*model.SleepEntry, error) {
	if m.lastNightFn != nil {
		return m.lastNightFn(ctx, subscriberID)
	}
	return nil, nil
}

func (m *mockSleepService) GetLast30DaysStatistics(ctx context.Context, subscriberID int64) (*model.SleepStatistics, error) {
	if m.last30DaysFn != nil {
		return m.last30DaysFn(ctx, subscriberID)
	}
	return nil, nil
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// --- ヘルパー ---

// newTestRouter はモックサービスを組み込んだルーターを生成する。
func newTestRouter(t *testing.T, subs SubscriberServiceInterface, sleeps SleepServiceInterface) http.Handler {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	if subs == nil {
		subs = &mockSubscriberService{}
	}
	if sleeps == nil {
		sleeps = &mockSleepService{}
	}

	return NewRouter(&RouterDeps{
		HealthChecker:     &mockHealthChecker{},
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		CORSAllowedOrigin: "*",
		RateLimiter:       rl,
		SubscriberService: subs,
		SleepService:      sleeps,
	})
}

// envelope はテスト用のレスポンスエンベロープ。
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Code      string          `json:"code"`
	Timestamp time.Time       `json:"timestamp"`
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	resp := w.Result()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return resp, env
}

func fixedTime() time.Time {
	return time.Date(2024, 5, 30, 9, 0, 0, 0, time.UTC)
}

// isNullData はdataがnullかどうかを返す。
func isNullData(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
