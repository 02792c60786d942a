// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/sleeplog/internal/model"
	"github.com/lib/pq"
)

// ErrUniqueViolation はストレージの一意性制約違反を表す。
// サービス層はこれを事前チェックと同じConflictエラーに変換する。
var ErrUniqueViolation = errors.New("unique constraint violation")

// pgUniqueViolation はPostgreSQLのunique_violationのSQLSTATE。
const pgUniqueViolation = "23505"

// SubscriberRepository はユーザーデータの永続化インターフェース。
type SubscriberRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Subscriber, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Subscriber, error)

	// List は全ユーザーをID昇順で返す。
	List(ctx context.Context) ([]*model.Subscriber, error)

	// Create はユーザーを作成し、採番されたIDとタイムスタンプを含むレコードを返す。
	// ユーザー名が重複する場合はErrUniqueViolationを返す。
	Create(ctx context.Context, username, email string) (*model.Subscriber, error)
}

// SleepEntryRepository は睡眠記録の永続化インターフェース。
type SleepEntryRepository interface {
	// FindBySubscriberAndDate はユーザーIDと睡眠日で記録を検索する。見つからない場合はnilを返す。
	FindBySubscriberAndDate(ctx context.Context, subscriberID int64, date model.Date) (*model.SleepEntry, error)

	// FindMostRecent はsleep_dateが最も新しい記録を返す。記録が無い場合はnilを返す。
	FindMostRecent(ctx context.Context, subscriberID int64) (*model.SleepEntry, error)

	// ListInRange は [start, end]（両端を含む）に睡眠日がある記録をsleep_date降順で返す。
	ListInRange(ctx context.Context, subscriberID int64, start, end model.Date) ([]model.SleepEntry, error)

	// Create は記録を挿入し、採番されたIDとタイムスタンプを含むレコードを返す。
	// (subscriber_id, sleep_date) が重複する場合はErrUniqueViolationを返す。
	Create(ctx context.Context, entry model.NewSleepEntry) (*model.SleepEntry, error)
}

// translateInsertError はINSERT時のエラーを変換する。
// 一意性制約違反はErrUniqueViolationでラップし、それ以外はmsgを付けてラップする。
func translateInsertError(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return fmt.Errorf("%w (%s): %w", ErrUniqueViolation, pqErr.Constraint, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
