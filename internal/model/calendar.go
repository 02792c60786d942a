package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	minutesPerHour = 60
	// MinutesPerDay は1日の分数。
	MinutesPerDay = 24 * minutesPerHour

	dateLayout = "2006-01-02"
)

// ClockTime は日付を持たない時刻（時・分）を表す。秒以下は扱わない。
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime は "HH:mm" または "HH:mm:ss" 形式の文字列を解析する。
// 秒は切り捨てる。
func ParseClockTime(s string) (ClockTime, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("invalid clock time %q: expected HH:mm", s)
}

// ClockTimeFromMinutes は0時からの経過分をClockTimeに変換する。
// 1日を超える値は24時間で折り返す。
func ClockTimeFromMinutes(minutes int) ClockTime {
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return ClockTime{Hour: minutes / minutesPerHour, Minute: minutes % minutesPerHour}
}

// MinutesSinceMidnight は0時からの経過分を返す。
func (c ClockTime) MinutesSinceMidnight() int {
	return c.Hour*minutesPerHour + c.Minute
}

// String は "HH:mm" 形式の文字列を返す。
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MarshalJSON は "HH:mm" 形式でエンコードする。
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON は "HH:mm" 形式の文字列をデコードする。
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan はPostgreSQLのTIME型の値を読み取る。
// lib/pqはTIMEをtime.Timeとして返すが、テキストで返るケースにも対応する。
func (c *ClockTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*c = ClockTime{Hour: v.Hour(), Minute: v.Minute()}
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

func (c *ClockTime) scanString(s string) error {
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value はdriver.Valuerを実装する。
func (c ClockTime) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:00", c.Hour, c.Minute), nil
}

// Date はタイムゾーンを持たない暦日を表す。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf は時刻tが属する暦日を返す。tのロケーションで解釈する。
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate は "YYYY-MM-DD" 形式の文字列を解析する。
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// String は "YYYY-MM-DD" 形式の文字列を返す。
func (d Date) String() string {
	return d.midnight().Format(dateLayout)
}

// AddDays はn日後（負数の場合はn日前）の暦日を返す。
func (d Date) AddDays(n int) Date {
	return DateOf(d.midnight().AddDate(0, 0, n))
}

// Before はdがoより前の日付かどうかを返す。
func (d Date) Before(o Date) bool {
	return d.midnight().Before(o.midnight())
}

// After はdがoより後の日付かどうかを返す。
func (d Date) After(o Date) bool {
	return d.midnight().After(o.midnight())
}

func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalJSON は "YYYY-MM-DD" 形式でエンコードする。
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON は "YYYY-MM-DD" 形式の文字列をデコードする。
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan はPostgreSQLのDATE型の値を読み取る。
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value はdriver.Valuerを実装する。
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// DateRange は両端を含む日付範囲 [StartDate, EndDate] を表す。
type DateRange struct {
	StartDate Date
	EndDate   Date
}

// Contains はdが範囲内（両端を含む）かどうかを返す。
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.StartDate) && !d.After(r.EndDate)
}
