package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/sleeplog/internal/model"
)

// PostgresSubscriberRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresSubscriberRepo struct {
	db *sql.DB
}

// NewPostgresSubscriberRepo はPostgresSubscriberRepoを生成する。
func NewPostgresSubscriberRepo(db *sql.DB) *PostgresSubscriberRepo {
	return &PostgresSubscriberRepo{db: db}
}

const subscriberColumns = `id, username, email, created_at, updated_at`

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresSubscriberRepo) FindByID(ctx context.Context, id int64) (*model.Subscriber, error) {
	sub := &model.Subscriber{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM users WHERE id = $1`,
		id,
	).Scan(&sub.ID, &sub.Username, &sub.Email, &sub.CreatedAt, &sub.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return sub, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresSubscriberRepo) FindByUsername(ctx context.Context, username string) (*model.Subscriber, error) {
	sub := &model.Subscriber{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM users WHERE username = $1`,
		username,
	).Scan(&sub.ID, &sub.Username, &sub.Email, &sub.CreatedAt, &sub.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	return sub, nil
}

// List は全ユーザーをID昇順で返す。
func (r *PostgresSubscriberRepo) List(ctx context.Context) ([]*model.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriberColumns+` FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var subs []*model.Subscriber
	for rows.Next() {
		sub := &model.Subscriber{}
		if err := rows.Scan(&sub.ID, &sub.Username, &sub.Email, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return subs, nil
}

// Create はユーザーを作成する。
// id、created_at、updated_atはDBが採番し、RETURNINGで読み戻す。
func (r *PostgresSubscriberRepo) Create(ctx context.Context, username, email string) (*model.Subscriber, error) {
	sub := &model.Subscriber{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email)
		 VALUES ($1, $2)
		 RETURNING `+subscriberColumns,
		username, email,
	).Scan(&sub.ID, &sub.Username, &sub.Email, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, translateInsertError(err, "failed to insert user")
	}

	return sub, nil
}

// compile-time interface check
var _ SubscriberRepository = (*PostgresSubscriberRepo)(nil)
