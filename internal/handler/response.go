package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/sleeplog/internal/middleware"
	"github.com/hitoshi/sleeplog/internal/model"
)

// 成功時のメッセージ
const (
	msgOK                = "OK"
	msgUserCreated       = "User created successfully"
	msgSleepLogCreated   = "Sleep log created successfully"
	msgNoSleepLog        = "No sleep log recorded yet"
	msgNoSleepStatistics = "No sleep logs in the last 30 days"
)

// subscriberResponse はユーザーのレスポンス。
type subscriberResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toSubscriberResponse(s *model.Subscriber) subscriberResponse {
	return subscriberResponse{
		ID:        s.ID,
		Username:  s.Username,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// sleepEntryResponse は睡眠記録のレスポンス。
type sleepEntryResponse struct {
	ID                    int64                `json:"id"`
	UserID                int64                `json:"userId"`
	SleepDate             model.Date           `json:"sleepDate"`
	Bedtime               model.ClockTime      `json:"bedtime"`
	WakeTime              model.ClockTime      `json:"wakeTime"`
	TotalTimeInBedMinutes int                  `json:"totalTimeInBedMinutes"`
	MorningFeeling        model.MorningFeeling `json:"morningFeeling"`
	CreatedAt             time.Time            `json:"createdAt"`
	UpdatedAt             time.Time            `json:"updatedAt"`
}

func toSleepEntryResponse(e *model.SleepEntry) sleepEntryResponse {
	return sleepEntryResponse{
		ID:                    e.ID,
		UserID:                e.SubscriberID,
		SleepDate:             e.SleepDate,
		Bedtime:               e.Bedtime,
		WakeTime:              e.WakeTime,
		TotalTimeInBedMinutes: e.TotalTimeInBedMinutes,
		MorningFeeling:        e.MorningFeeling,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

type dateRangeResponse struct {
	StartDate model.Date `json:"startDate"`
	EndDate   model.Date `json:"endDate"`
}

// sleepStatisticsResponse は30日間統計のレスポンス。
// morningFeelingFrequenciesには範囲内に出現したカテゴリのみが含まれる。
type sleepStatisticsResponse struct {
	DateRange                    dateRangeResponse            `json:"dateRange"`
	AverageTotalTimeInBedMinutes float64                      `json:"averageTotalTimeInBedMinutes"`
	AverageBedtime               model.ClockTime              `json:"averageBedtime"`
	AverageWakeTime              model.ClockTime              `json:"averageWakeTime"`
	MorningFeelingFrequencies    map[model.MorningFeeling]int `json:"morningFeelingFrequencies"`
}

func toSleepStatisticsResponse(s *model.SleepStatistics) sleepStatisticsResponse {
	freqs := make(map[model.MorningFeeling]int, len(s.MorningFeelingFrequencies))
	for k, v := range s.MorningFeelingFrequencies {
		freqs[k] = v
	}
	return sleepStatisticsResponse{
		DateRange: dateRangeResponse{
			StartDate: s.DateRange.StartDate,
			EndDate:   s.DateRange.EndDate,
		},
		AverageTotalTimeInBedMinutes: s.AverageTotalTimeInBedMinutes,
		AverageBedtime:               s.AverageBedtime,
		AverageWakeTime:              s.AverageWakeTime,
		MorningFeelingFrequencies:    freqs,
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if statusCode := mapErrorKindToHTTPStatus(model.KindOf(err)); statusCode != http.StatusInternalServerError {
		var apiErr *model.APIError
		errors.As(err, &apiErr)
		middleware.WriteErrorResponse(w, statusCode, apiErr)
		return
	}

	// 分類されないエラーは詳細をログのみに残す
	requestID, _ := middleware.RequestIDFromContext(r.Context())
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", requestID),
	)
	middleware.WriteInternalServerError(w)
}

// mapErrorKindToHTTPStatus はエラー種別からHTTPステータスコードにマッピングする。
func mapErrorKindToHTTPStatus(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
