// Package model はドメインモデルを定義する。
package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// MorningFeeling は起床時の主観的な気分を表す。
type MorningFeeling string

const (
	// MorningFeelingGood は良い目覚め。
	MorningFeelingGood MorningFeeling = "GOOD"
	// MorningFeelingOK は普通の目覚め。
	MorningFeelingOK MorningFeeling = "OK"
	// MorningFeelingBad は悪い目覚め。
	MorningFeelingBad MorningFeeling = "BAD"
)

// ParseMorningFeeling は文字列をMorningFeelingに変換する。
func ParseMorningFeeling(s string) (MorningFeeling, error) {
	f := MorningFeeling(s)
	if !f.Valid() {
		return "", fmt.Errorf("invalid morning feeling %q", s)
	}
	return f, nil
}

// Valid は定義済みのカテゴリかどうかを返す。
func (f MorningFeeling) Valid() bool {
	switch f {
	case MorningFeelingGood, MorningFeelingOK, MorningFeelingBad:
		return true
	default:
		return false
	}
}

// Scan はPostgreSQLのENUM型の値を読み取る。
func (f *MorningFeeling) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("cannot scan %T into MorningFeeling", src)
	}
	parsed, err := ParseMorningFeeling(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Value はdriver.Valuerを実装する。
func (f MorningFeeling) Value() (driver.Value, error) {
	return string(f), nil
}

// SleepEntry は永続化済みの1晩分の睡眠記録を表す。
type SleepEntry struct {
	ID                    int64
	SubscriberID          int64
	SleepDate             Date
	Bedtime               ClockTime
	WakeTime              ClockTime
	TotalTimeInBedMinutes int
	MorningFeeling        MorningFeeling
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewSleepEntry は永続化前の睡眠記録を表す。
// IDとタイムスタンプはストレージへの挿入時に初めて確定するため、このフィールドは持たない。
type NewSleepEntry struct {
	SubscriberID          int64
	SleepDate             Date
	Bedtime               ClockTime
	WakeTime              ClockTime
	TotalTimeInBedMinutes int
	MorningFeeling        MorningFeeling
}

// SleepStatistics は日付範囲内の睡眠記録の集計結果を表す。永続化しない。
type SleepStatistics struct {
	DateRange                    DateRange
	AverageTotalTimeInBedMinutes float64
	AverageBedtime               ClockTime
	AverageWakeTime              ClockTime
	// 範囲内に出現したカテゴリのみを含む。キーが無いカテゴリは0件として扱う。
	MorningFeelingFrequencies map[MorningFeeling]int
}
