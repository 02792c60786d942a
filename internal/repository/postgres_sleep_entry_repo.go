package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/sleeplog/internal/model"
)

// PostgresSleepEntryRepo はPostgreSQLを使用した睡眠記録リポジトリ。
type PostgresSleepEntryRepo struct {
	db *sql.DB
}

// NewPostgresSleepEntryRepo はPostgresSleepEntryRepoを生成する。
func NewPostgresSleepEntryRepo(db *sql.DB) *PostgresSleepEntryRepo {
	return &PostgresSleepEntryRepo{db: db}
}

const sleepEntryColumns = `id, user_id, sleep_date, bedtime, wake_time,
	total_time_in_bed_minutes, morning_feeling, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSleepEntry は1行分の睡眠記録を読み取る。
func scanSleepEntry(s rowScanner) (*model.SleepEntry, error) {
	e := &model.SleepEntry{}
	err := s.Scan(
		&e.ID, &e.SubscriberID, &e.SleepDate, &e.Bedtime, &e.WakeTime,
		&e.TotalTimeInBedMinutes, &e.MorningFeeling, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// FindBySubscriberAndDate はユーザーIDと睡眠日で記録を検索する。見つからない場合はnilを返す。
func (r *PostgresSleepEntryRepo) FindBySubscriberAndDate(ctx context.Context, subscriberID int64, date model.Date) (*model.SleepEntry, error) {
	e, err := scanSleepEntry(r.db.QueryRowContext(ctx,
		`SELECT `+sleepEntryColumns+`
		 FROM sleep_logs WHERE user_id = $1 AND sleep_date = $2`,
		subscriberID, date,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("睡眠記録の検索に失敗しました: %w", err)
	}
	return e, nil
}

// FindMostRecent はsleep_dateが最も新しい記録を返す。記録が無い場合はnilを返す。
func (r *PostgresSleepEntryRepo) FindMostRecent(ctx context.Context, subscriberID int64) (*model.SleepEntry, error) {
	e, err := scanSleepEntry(r.db.QueryRowContext(ctx,
		`SELECT `+sleepEntryColumns+`
		 FROM sleep_logs WHERE user_id = $1
		 ORDER BY sleep_date DESC
		 LIMIT 1`,
		subscriberID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("最新の睡眠記録の取得に失敗しました: %w", err)
	}
	return e, nil
}

// ListInRange は [start, end]（両端を含む）に睡眠日がある記録をsleep_date降順で返す。
func (r *PostgresSleepEntryRepo) ListInRange(ctx context.Context, subscriberID int64, start, end model.Date) ([]model.SleepEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sleepEntryColumns+`
		 FROM sleep_logs
		 WHERE user_id = $1 AND sleep_date BETWEEN $2 AND $3
		 ORDER BY sleep_date DESC`,
		subscriberID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("期間内の睡眠記録の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []model.SleepEntry
	for rows.Next() {
		e, err := scanSleepEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("睡眠記録行の読み取りに失敗しました: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("睡眠記録の走査に失敗しました: %w", err)
	}
	return entries, nil
}

// Create は記録を挿入し、DBが採番したid・タイムスタンプを含む行をRETURNINGで読み戻す。
func (r *PostgresSleepEntryRepo) Create(ctx context.Context, entry model.NewSleepEntry) (*model.SleepEntry, error) {
	e, err := scanSleepEntry(r.db.QueryRowContext(ctx,
		`INSERT INTO sleep_logs (user_id, sleep_date, bedtime, wake_time,
		     total_time_in_bed_minutes, morning_feeling)
		 VALUES ($1, $2, $3, $4, $5, $6::morning_feeling)
		 RETURNING `+sleepEntryColumns,
		entry.SubscriberID, entry.SleepDate, entry.Bedtime, entry.WakeTime,
		entry.TotalTimeInBedMinutes, entry.MorningFeeling,
	))
	if err != nil {
		return nil, translateInsertError(err, "睡眠記録の作成に失敗しました")
	}
	return e, nil
}

// compile-time interface check
var _ SleepEntryRepository = (*PostgresSleepEntryRepo)(nil)
