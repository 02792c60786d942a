// Package model はドメインモデルを定義する。
package model

import "time"

// Subscriber は睡眠記録を所有する登録ユーザーを表す。
// IDとタイムスタンプはストレージが採番する。
type Subscriber struct {
	ID        int64
	Username  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
