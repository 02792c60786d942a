package sleep

import (
	"errors"

	"github.com/hitoshi/sleeplog/internal/model"
)

// WindowDays は統計の集計期間（日数、当日を含む）。
const WindowDays = 30

// ErrEmptyWindow は集計対象の記録が1件も無いことを示す。
// 呼び出し側は集計前に件数を確認し「データなし」として扱うこと。
var ErrEmptyWindow = errors.New("no sleep entries in window")

// Window はtodayを末日とする WindowDays 日間の範囲を返す。
func Window(today model.Date) model.DateRange {
	return model.DateRange{
		StartDate: today.AddDays(-(WindowDays - 1)),
		EndDate:   today,
	}
}

// Aggregate は範囲内の睡眠記録から統計を計算する。
// 範囲外の記録は無視する。対象が0件の場合はErrEmptyWindowを返す。
//
// 就寝・起床時刻の平均は0時からの経過分の単純平均で、角度による平均ではない。
// そのため23:50と00:10の平均は00:00ではなく12:00になる。
func Aggregate(entries []model.SleepEntry, r model.DateRange) (*model.SleepStatistics, error) {
	var (
		n            int
		totalMinutes int
		bedMinutes   int
		wakeMinutes  int
		frequencies  = make(map[model.MorningFeeling]int)
	)
	for _, e := range entries {
		if !r.Contains(e.SleepDate) {
			continue
		}
		n++
		totalMinutes += e.TotalTimeInBedMinutes
		bedMinutes += e.Bedtime.MinutesSinceMidnight()
		wakeMinutes += e.WakeTime.MinutesSinceMidnight()
		frequencies[e.MorningFeeling]++
	}
	if n == 0 {
		return nil, ErrEmptyWindow
	}

	return &model.SleepStatistics{
		DateRange:                    r,
		AverageTotalTimeInBedMinutes: float64(totalMinutes) / float64(n),
		AverageBedtime:               meanClockTime(bedMinutes, n),
		AverageWakeTime:              meanClockTime(wakeMinutes, n),
		MorningFeelingFrequencies:    frequencies,
	}, nil
}

// meanClockTime は経過分の合計と件数から平均時刻を組み立てる。端数の分は切り捨てる。
func meanClockTime(sum, n int) model.ClockTime {
	return model.ClockTimeFromMinutes(sum / n)
}
