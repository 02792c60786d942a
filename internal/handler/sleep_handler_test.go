package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/sleeplog/internal/model"
	"github.com/hitoshi/sleeplog/internal/sleep"
)

func testEntry() *model.SleepEntry {
	return &model.SleepEntry{
		ID:                    11,
		SubscriberID:          1,
		SleepDate:             model.Date{Year: 2024, Month: time.May, Day: 29},
		Bedtime:               model.ClockTime{Hour: 22, Minute: 30},
		WakeTime:              model.ClockTime{Hour: 7, Minute: 0},
		TotalTimeInBedMinutes: 510,
		MorningFeeling:        model.MorningFeelingGood,
		CreatedAt:             fixedTime(),
		UpdatedAt:             fixedTime(),
	}
}

// --- POST /api/users/{userId}/sleep テスト ---

func TestSleepHandler_Create_Success(t *testing.T) {
	var got sleep.CreateSleepLogInput
	svc := &mockSleepService{
		createFn: func(ctx context.Context, subscriberID int64, in sleep.CreateSleepLogInput) (*model.SleepEntry, error) {
			if subscriberID != 1 {
				t.Errorf("subscriberID = %d, want 1", subscriberID)
			}
			got = in
			return testEntry(), nil
		},
	}
	router := newTestRouter(t, nil, svc)

	resp, env := doRequest(t, router, http.MethodPost, "/api/users/1/sleep",
		`{"sleepDate":"2024-05-29","bedtime":"22:30","wakeTime":"07:00:45","morningFeeling":"GOOD"}`)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if env.Message != "Sleep log created successfully" {
		t.Errorf("message = %q", env.Message)
	}

	want := sleep.CreateSleepLogInput{
		SleepDate:      model.Date{Year: 2024, Month: time.May, Day: 29},
		Bedtime:        model.ClockTime{Hour: 22, Minute: 30},
		WakeTime:       model.ClockTime{Hour: 7, Minute: 0},
		MorningFeeling: model.MorningFeelingGood,
	}
	if got != want {
		t.Errorf("input = %+v, want %+v", got, want)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	checks := map[string]interface{}{
		"id":                    float64(11),
		"userId":                float64(1),
		"sleepDate":             "2024-05-29",
		"bedtime":               "22:30",
		"wakeTime":              "07:00",
		"totalTimeInBedMinutes": float64(510),
		"morningFeeling":        "GOOD",
	}
	for key, want := range checks {
		if data[key] != want {
			t.Errorf("data[%q] = %v, want %v", key, data[key], want)
		}
	}
	for _, key := range []string{"createdAt", "updatedAt"} {
		if _, ok := data[key]; !ok {
			t.Errorf("data is missing %q", key)
		}
	}
}

func TestSleepHandler_Create_TodayIsAccepted(t *testing.T) {
	called := false
	svc := &mockSleepService{
		createFn: func(ctx context.Context, subscriberID int64, in sleep.CreateSleepLogInput) (*model.SleepEntry, error) {
			called = true
			return testEntry(), nil
		},
	}
	router := newTestRouter(t, nil, svc)

	resp, _ := doRequest(t, router, http.MethodPost, "/api/users/1/sleep",
		`{"sleepDate":"2024-05-30","bedtime":"01:00","wakeTime":"08:00","morningFeeling":"OK"}`)

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if !called {
		t.Error("expected CreateSleepLog to be called")
	}
}

func TestSleepHandler_Create_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "未来の日付",
			body: `{"sleepDate":"2024-05-31","bedtime":"22:30","wakeTime":"07:00","morningFeeling":"GOOD"}`,
			want: "Validation failed: sleepDate: Sleep date cannot be in the future",
		},
		{
			name: "不正な日付形式",
			body: `{"sleepDate":"29/05/2024","bedtime":"22:30","wakeTime":"07:00","morningFeeling":"GOOD"}`,
			want: "Validation failed: sleepDate: Sleep date must be in YYYY-MM-DD format",
		},
		{
			name: "不正な時刻",
			body: `{"sleepDate":"2024-05-29","bedtime":"25:00","wakeTime":"7am","morningFeeling":"GOOD"}`,
			want: "Validation failed: bedtime: Bedtime must be in HH:mm format, wakeTime: Wake time must be in HH:mm format",
		},
		{
			name: "未定義の気分",
			body: `{"sleepDate":"2024-05-29","bedtime":"22:30","wakeTime":"07:00","morningFeeling":"GREAT"}`,
			want: "Validation failed: morningFeeling: Morning feeling must be one of GOOD, OK, BAD",
		},
		{
			name: "全項目欠落",
			body: `{}`,
			want: "Validation failed: sleepDate: Sleep date is required, bedtime: Bedtime is required, " +
				"wakeTime: Wake time is required, morningFeeling: Morning feeling is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockSleepService{
				createFn: func(ctx context.Context, subscriberID int64, in sleep.CreateSleepLogInput) (*model.SleepEntry, error) {
					called = true
					return testEntry(), nil
				},
			}
			router := newTestRouter(t, nil, svc)

			resp, env := doRequest(t, router, http.MethodPost, "/api/users/1/sleep", tt.body)

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
			if env.Message != tt.want {
				t.Errorf("message = %q, want %q", env.Message, tt.want)
			}
			if called {
				t.Error("CreateSleepLog should not be called for invalid input")
			}
		})
	}
}

func TestSleepHandler_Create_MalformedJSON(t *testing.T) {
	router := newTestRouter(t, nil, &mockSleepService{})

	resp, env := doRequest(t, router, http.MethodPost, "/api/users/1/sleep", `not json`)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if env.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", env.Code, model.ErrCodeInvalidRequest)
	}
}

func TestSleepHandler_Create_InvalidUserID(t *testing.T) {
	router := newTestRouter(t, nil, &mockSleepService{})

	resp, _ := doRequest(t, router, http.MethodPost, "/api/users/xyz/sleep",
		`{"sleepDate":"2024-05-29","bedtime":"22:30","wakeTime":"07:00","morningFeeling":"GOOD"}`)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestSleepHandler_Create_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "ユーザー未検出",
			err:        model.NewSubscriberNotFoundError(1),
			wantStatus: http.StatusNotFound,
			wantMsg:    "User with id 1 not found",
		},
		{
			name:       "同日の記録が既にある",
			err:        model.NewSleepEntryExistsError(model.Date{Year: 2024, Month: time.May, Day: 29}),
			wantStatus: http.StatusConflict,
			wantMsg:    "Sleep log already exists for date 2024-05-29",
		},
		{
			name:       "ストレージ障害",
			err:        errors.New("睡眠記録の作成に失敗しました: connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSleepService{
				createFn: func(ctx context.Context, subscriberID int64, in sleep.CreateSleepLogInput) (*model.SleepEntry, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(t, nil, svc)

			resp, env := doRequest(t, router, http.MethodPost, "/api/users/1/sleep",
				`{"sleepDate":"2024-05-29","bedtime":"22:30","wakeTime":"07:00","morningFeeling":"GOOD"}`)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if env.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", env.Message, tt.wantMsg)
			}
			if env.Success {
				t.Error("success should be false")
			}
		})
	}
}

// --- GET /api/users/{userId}/sleep/last-night テスト ---

func TestSleepHandler_LastNight_Success(t *testing.T) {
	svc := &mockSleepService{
		lastNightFn: func(ctx context.Context, subscriberID int64) (*model.SleepEntry, error) {
			return testEntry(), nil
		},
	}
	router := newTestRouter(t, nil, svc)

	resp, env := doRequest(t, router, http.MethodGet, "/api/users/1/sleep/last-night", "")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var data sleepEntryResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if data.TotalTimeInBedMinutes != 510 || data.SleepDate.String() != "2024-05-29" {
		t.Errorf("data = %+v", data)
	}
}

func TestSleepHandler_LastNight_NoEntryIsNullData(t *testing.T) {
	router := newTestRouter(t, nil, &mockSleepService{})

	resp, env := doRequest(t, router, http.MethodGet, "/api/users/1/sleep/last-night", "")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !env.Success {
		t.Error("success should be true")
	}
	if !isNullData(env.Data) {
		t.Errorf("data = %s, want null", env.Data)
	}
}

func TestSleepHandler_LastNight_SubscriberNotFound(t *testing.T) {
	svc := &mockSleepService{
		lastNightFn: func(ctx context.Context, subscriberID int64) (*model.SleepEntry, error) {
			return nil, model.NewSubscriberNotFoundError(subscriberID)
		},
	}
	router := newTestRouter(t, nil, svc)

	resp, _ := doRequest(t, router, http.MethodGet, "/api/users/42/sleep/last-night", "")

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- GET /api/users/{userId}/sleep/statistics/30-days テスト ---

func TestSleepHandler_Statistics_Success(t *testing.T) {
	svc := &mockSleepService{
		last30DaysFn: func(ctx context.Context, subscriberID int64) (*model.SleepStatistics, error) {
			return &model.SleepStatistics{
				DateRange: model.DateRange{
					StartDate: model.Date{Year: 2024, Month: time.May, Day: 1},
					EndDate:   model.Date{Year: 2024, Month: time.May, Day: 30},
				},
				AverageTotalTimeInBedMinutes: 480.5,
				AverageBedtime:               model.ClockTime{Hour: 23, Minute: 15},
				AverageWakeTime:              model.ClockTime{Hour: 7, Minute: 5},
				MorningFeelingFrequencies: map[model.MorningFeeling]int{
					model.MorningFeelingGood: 2,
					model.MorningFeelingBad:  1,
				},
			}, nil
		},
	}
	router := newTestRouter(t, nil, svc)

	resp, env := doRequest(t, router, http.MethodGet, "/api/users/1/sleep/statistics/30-days", "")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	want := `{"dateRange":{"startDate":"2024-05-01","endDate":"2024-05-30"},` +
		`"averageTotalTimeInBedMinutes":480.5,"averageBedtime":"23:15","averageWakeTime":"07:05",` +
		`"morningFeelingFrequencies":{"BAD":1,"GOOD":2}}`
	if got := strings.TrimSpace(string(env.Data)); got != want {
		t.Errorf("data =\n%s\nwant\n%s", got, want)
	}
}

func TestSleepHandler_Statistics_NoDataIsNullData(t *testing.T) {
	router := newTestRouter(t, nil, &mockSleepService{})

	resp, env := doRequest(t, router, http.MethodGet, "/api/users/1/sleep/statistics/30-days", "")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !isNullData(env.Data) {
		t.Errorf("data = %s, want null", env.Data)
	}
	if env.Message != "No sleep logs in the last 30 days" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestSleepHandler_Statistics_InternalError(t *testing.T) {
	svc := &mockSleepService{
		last30DaysFn: func(ctx context.Context, subscriberID int64) (*model.SleepStatistics, error) {
			return nil, errors.New("query failed")
		},
	}
	router := newTestRouter(t, nil, svc)

	resp, env := doRequest(t, router, http.MethodGet, "/api/users/1/sleep/statistics/30-days", "")

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	if env.Code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", env.Code, model.ErrCodeInternal)
	}
}
