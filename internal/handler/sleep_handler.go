package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/sleeplog/internal/middleware"
	"github.com/hitoshi/sleeplog/internal/model"
	"github.com/hitoshi/sleeplog/internal/sleep"
)

// SleepServiceInterface は睡眠記録ハンドラーが必要とするサービスインターフェース。
type SleepServiceInterface interface {
	// Today は未来日付の判定に使う「今日」を返す。
	Today() model.Date
	// CreateSleepLog は睡眠記録を作成する。
	CreateSleepLog(ctx context.Context, subscriberID int64, in sleep.CreateSleepLogInput) (*model.SleepEntry, error)
	// GetLastNightSleep は最新の睡眠記録を返す。記録が無い場合はnilを返す。
	GetLastNightSleep(ctx context.Context, subscriberID int64) (*model.SleepEntry, error)
	// GetLast30DaysStatistics は直近30日間の統計を返す。記録が無い場合はnilを返す。
	GetLast30DaysStatistics(ctx context.Context, subscriberID int64) (*model.SleepStatistics, error)
}

// SleepHandler は睡眠記録のHTTPハンドラー。
type SleepHandler struct {
	service SleepServiceInterface
}

// NewSleepHandler はSleepHandlerを生成する。
func NewSleepHandler(service SleepServiceInterface) *SleepHandler {
	return &SleepHandler{
		service: service,
	}
}

// Create は睡眠記録を作成する。
// POST /api/users/{userId}/sleep
func (h *SleepHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userId")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req createSleepLogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	in, err := req.bind(h.service.Today())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	entry, err := h.service.CreateSleepLog(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusCreated, msgSleepLogCreated, toSleepEntryResponse(entry))
}

// LastNight は最新の睡眠記録を返す。記録が無い場合もdataをnullとして200を返す。
// GET /api/users/{userId}/sleep/last-night
func (h *SleepHandler) LastNight(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userId")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	entry, err := h.service.GetLastNightSleep(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if entry == nil {
		middleware.WriteSuccess(w, http.StatusOK, msgNoSleepLog, nil)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, msgOK, toSleepEntryResponse(entry))
}

// Statistics は直近30日間の統計を返す。記録が無い場合もdataをnullとして200を返す。
// GET /api/users/{userId}/sleep/statistics/30-days
func (h *SleepHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userId")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	stats, err := h.service.GetLast30DaysStatistics(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if stats == nil {
		middleware.WriteSuccess(w, http.StatusOK, msgNoSleepStatistics, nil)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, msgOK, toSleepStatisticsResponse(stats))
}
