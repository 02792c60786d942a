package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hitoshi/sleeplog/internal/model"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sleepEntryRowColumns = []string{
	"id", "user_id", "sleep_date", "bedtime", "wake_time",
	"total_time_in_bed_minutes", "morning_feeling", "created_at", "updated_at",
}

func setupMockSleepEntryRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSleepEntryRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresSleepEntryRepo(db)
}

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

// PostgresSleepEntryRepoはSleepEntryRepositoryインターフェースを満たすことを検証
func TestPostgresSleepEntryRepo_ImplementsInterface(t *testing.T) {
	var _ SleepEntryRepository = (*PostgresSleepEntryRepo)(nil)
}

func TestPostgresSleepEntryRepo_FindBySubscriberAndDate_Found(t *testing.T) {
	db, mock, repo := setupMockSleepEntryRepo(t)
	defer db.Close()

	now := time.Now()
	// lib/pqはDATE/TIMEをtime.Timeで返す
	mock.ExpectQuery(`FROM sleep_logs WHERE user_id = \$1 AND sleep_date = \$2`).
		WithArgs(int64(3), "2024-05-01").
		WillReturnRows(sqlmock.NewRows(sleepEntryRowColumns).AddRow(
			int64(100), int64(3),
			time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			time.Date(0, 1, 1, 22, 30, 0, 0, time.UTC),
			time.Date(0, 1, 1, 7, 0, 0, 0, time.UTC),
			510, []byte("GOOD"), now, now,
		))

	e, err := repo.FindBySubscriberAndDate(context.Background(), 3, mustDate(t, "2024-05-01"))

	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int64(100), e.ID)
	assert.Equal(t, int64(3), e.SubscriberID)
	assert.Equal(t, "2024-05-01", e.SleepDate.String())
	assert.Equal(t, "22:30", e.Bedtime.String())
	assert.Equal(t, "07:00", e.WakeTime.String())
	assert.Equal(t, 510, e.TotalTimeInBedMinutes)
	assert.Equal(t, model.MorningFeelingGood, e.MorningFeeling)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSleepEntryRepo_FindBySubscriberAndDate_NotFound(t *testing.T) {
	db, mock, repo := setupMockSleepEntryRepo(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sleep_logs`).
		WithArgs(int64(3), "2024-05-02").
		WillReturnError(sql.ErrNoRows)

	e, err := repo.FindBySubscriberAndDate(context.Background(), 3, mustDate(t, "2024-05-02"))

	assert.NoError(t, err)
	assert.Nil(t, e)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSleepEntryRepo_FindMostRecent_OrdersBySleepDateDesc(t *testing.T) {
	db, mock, repo := setupMockSleepEntryRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`ORDER BY sleep_date DESC\s+LIMIT 1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(sleepEntryRowColumns).AddRow(
			int64(101), int64(3), "2024-05-09", "23:15:00", "06:45:00",
			450, "OK", now, now,
		))

	e, err := repo.FindMostRecent(context.Background(), 3)

	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "2024-05-09", e.SleepDate.String())
	assert.Equal(t, "23:15", e.Bedtime.String())
	assert.Equal(t, model.MorningFeelingOK, e.MorningFeeling)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSleepEntryRepo_FindMostRecent_NoRows(t *testing.T) {
	db, mock, repo := setupMockSleepEntryRepo(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sleep_logs`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	e, err := repo.FindMostRecent(context.Background(), 9)

	assert.NoError(t, err)
	assert.Nil(t, e)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSleepEntryRepo_ListInRange(t *testing.T) {
	db, mock, repo := setupMockSleepEntryRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`WHERE user_id = \$1 AND sleep_date BETWEEN \$2 AND \$3`).
		WithArgs(int64(3), "2024-04-02", "2024-05-01").
		WillReturnRows(sqlmock.NewRows(sleepEntryRowColumns).
			AddRow(int64(2), int64(3), "2024-05-01", "22:00:00", "06:00:00", 480, "GOOD", now, now).
			AddRow(int64(1), int64(3), "2024-04-30", "23:00:00", "08:00:00", 540, "BAD", now, now))

	entries, err := repo.ListInRange(context.Background(), 3, mustDate(t, "2024-04-02"), mustDate(t, "2024-05-01"))

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-05-01", entries[0].SleepDate.String())
	assert.Equal(t, model.MorningFeelingBad, entries[1].MorningFeeling)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSleepEntryRepo_ListInRange_Empty(t *testing.T) {
	db, mock, repo := setupMockSleepEntryRepo(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sleep_logs`).
		WithArgs(int64(3), "2024-04-02", "2024-05-01").
		WillReturnRows(sqlmock.NewRows(sleepEntryRowColumns))

	entries, err := repo.ListInRange(context.Background(), 3, mustDate(t, "2024-04-02"), mustDate(t, "2024-05-01"))

	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSleepEntryRepo_Create(t *testing.T) {
	db, mock, repo := setupMockSleepEntryRepo(t)
	defer db.Close()

	createdAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO sleep_logs`).
		WithArgs(int64(3), "2024-05-01", "22:30:00", "07:00:00", 510, "GOOD").
		WillReturnRows(sqlmock.NewRows(sleepEntryRowColumns).AddRow(
			int64(55), int64(3), "2024-05-01", "22:30:00", "07:00:00", 510, "GOOD", createdAt, createdAt,
		))

	e, err := repo.Create(context.Background(), model.NewSleepEntry{
		SubscriberID:          3,
		SleepDate:             mustDate(t, "2024-05-01"),
		Bedtime:               model.ClockTime{Hour: 22, Minute: 30},
		WakeTime:              model.ClockTime{Hour: 7, Minute: 0},
		TotalTimeInBedMinutes: 510,
		MorningFeeling:        model.MorningFeelingGood,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(55), e.ID)
	assert.Equal(t, createdAt, e.CreatedAt)
	assert.Equal(t, createdAt, e.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSleepEntryRepo_Create_UniqueViolation(t *testing.T) {
	db, mock, repo := setupMockSleepEntryRepo(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO sleep_logs`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "sleep_logs_user_id_sleep_date_key"})

	e, err := repo.Create(context.Background(), model.NewSleepEntry{
		SubscriberID:   3,
		SleepDate:      mustDate(t, "2024-05-01"),
		MorningFeeling: model.MorningFeelingOK,
	})

	assert.Nil(t, e)
	assert.ErrorIs(t, err, ErrUniqueViolation)
	require.NoError(t, mock.ExpectationsWereMet())
}
