package sleep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/sleeplog/internal/metrics"
	"github.com/hitoshi/sleeplog/internal/model"
	"github.com/hitoshi/sleeplog/internal/repository"
)

// SubscriberResolver はユーザーIDからユーザーを解決するインターフェース。
// 存在しない場合はNotFoundエラーを返すこと。
type SubscriberResolver interface {
	Resolve(ctx context.Context, id int64) (*model.Subscriber, error)
}

// Recorder は睡眠記録に関するメトリクスの記録先。
type Recorder interface {
	RecordSleepEntryCreated(feeling string)
	RecordConflict(kind string)
	RecordStatisticsRequest(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordSleepEntryCreated(string) {}
func (nopRecorder) RecordConflict(string)          {}
func (nopRecorder) RecordStatisticsRequest(string) {}

// ServiceConfig はServiceの設定。
type ServiceConfig struct {
	// Location は「今日」を決めるタイムゾーン。nilの場合はUTC。
	Location *time.Location
	// Now は現在時刻の取得関数。nilの場合はtime.Now。
	Now func() time.Time
}

// CreateSleepLogInput は睡眠記録の作成リクエスト。形式の検証は呼び出し側で済んでいること。
type CreateSleepLogInput struct {
	SleepDate      model.Date
	Bedtime        model.ClockTime
	WakeTime       model.ClockTime
	MorningFeeling model.MorningFeeling
}

// Service は睡眠記録のサービス層。
type Service struct {
	subscribers SubscriberResolver
	entries     repository.SleepEntryRepository
	recorder    Recorder
	location    *time.Location
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewService(
	subscribers SubscriberResolver,
	entries repository.SleepEntryRepository,
	recorder Recorder,
	cfg ServiceConfig,
) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		subscribers: subscribers,
		entries:     entries,
		recorder:    recorder,
		location:    cfg.Location,
		now:         cfg.Now,
	}
}

// Today は設定されたタイムゾーンでの今日の日付を返す。
func (s *Service) Today() model.Date {
	return model.DateOf(s.now().In(s.location))
}

// CreateSleepLog は睡眠記録を作成する。
// ユーザーが存在しない場合はNotFound、同じ日付の記録が既にある場合はConflictを返す。
// 返す記録にはストレージが採番したIDとタイムスタンプが入る。
func (s *Service) CreateSleepLog(ctx context.Context, subscriberID int64, in CreateSleepLogInput) (*model.SleepEntry, error) {
	if _, err := s.subscribers.Resolve(ctx, subscriberID); err != nil {
		return nil, err
	}

	existing, err := s.entries.FindBySubscriberAndDate(ctx, subscriberID, in.SleepDate)
	if err != nil {
		return nil, fmt.Errorf("既存の睡眠記録の確認に失敗しました: %w", err)
	}
	if existing != nil {
		s.recorder.RecordConflict(metrics.ConflictSleepEntry)
		return nil, model.NewSleepEntryExistsError(in.SleepDate)
	}

	entry, err := s.entries.Create(ctx, model.NewSleepEntry{
		SubscriberID:          subscriberID,
		SleepDate:             in.SleepDate,
		Bedtime:               in.Bedtime,
		WakeTime:              in.WakeTime,
		TotalTimeInBedMinutes: MinutesInBed(in.Bedtime, in.WakeTime),
		MorningFeeling:        in.MorningFeeling,
	})
	if errors.Is(err, repository.ErrUniqueViolation) {
		slog.Warn("同じ日付の睡眠記録の同時作成を検出しました",
			slog.Int64("user_id", subscriberID),
			slog.String("sleep_date", in.SleepDate.String()),
		)
		s.recorder.RecordConflict(metrics.ConflictSleepEntry)
		return nil, model.NewSleepEntryExistsError(in.SleepDate)
	}
	if err != nil {
		return nil, fmt.Errorf("睡眠記録の保存に失敗しました: %w", err)
	}

	s.recorder.RecordSleepEntryCreated(string(entry.MorningFeeling))
	slog.Info("睡眠記録を作成しました",
		slog.Int64("user_id", subscriberID),
		slog.Int64("sleep_log_id", entry.ID),
		slog.String("sleep_date", entry.SleepDate.String()),
		slog.Int("total_time_in_bed_minutes", entry.TotalTimeInBedMinutes),
	)
	return entry, nil
}

// GetLastNightSleep は睡眠日が最も新しい記録を返す。
// 記録が無い場合はnilを返す（エラーではない）。
func (s *Service) GetLastNightSleep(ctx context.Context, subscriberID int64) (*model.SleepEntry, error) {
	if _, err := s.subscribers.Resolve(ctx, subscriberID); err != nil {
		return nil, err
	}

	entry, err := s.entries.FindMostRecent(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("最新の睡眠記録の取得に失敗しました: %w", err)
	}
	return entry, nil
}

// GetLast30DaysStatistics は今日までの30日間の統計を返す。
// 期間内に記録が無い場合はnilを返す（エラーではない）。
func (s *Service) GetLast30DaysStatistics(ctx context.Context, subscriberID int64) (*model.SleepStatistics, error) {
	if _, err := s.subscribers.Resolve(ctx, subscriberID); err != nil {
		return nil, err
	}

	window := Window(s.Today())
	entries, err := s.entries.ListInRange(ctx, subscriberID, window.StartDate, window.EndDate)
	if err != nil {
		return nil, fmt.Errorf("期間内の睡眠記録の取得に失敗しました: %w", err)
	}
	if len(entries) == 0 {
		s.recorder.RecordStatisticsRequest(metrics.StatisticsNoData)
		return nil, nil
	}

	stats, err := Aggregate(entries, window)
	if errors.Is(err, ErrEmptyWindow) {
		// ストレージが範囲外の行だけを返した場合
		s.recorder.RecordStatisticsRequest(metrics.StatisticsNoData)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("睡眠統計の集計に失敗しました: %w", err)
	}

	s.recorder.RecordStatisticsRequest(metrics.StatisticsComputed)
	return stats, nil
}
