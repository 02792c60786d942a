// Package sleep は睡眠記録の作成・取得・集計のドメインロジックを提供する。
package sleep

import "github.com/hitoshi/sleeplog/internal/model"

// MinutesInBed は就寝時刻から起床時刻までの経過分を返す。
//
// 起床時刻が就寝時刻以上なら同じ日の中の差分とし、それより小さければ
// 0時をまたいだものとして扱う。両者が等しい場合は24時間ではなく0分とする。
// 上限は設けない。
func MinutesInBed(bedtime, wakeTime model.ClockTime) int {
	b := bedtime.MinutesSinceMidnight()
	w := wakeTime.MinutesSinceMidnight()
	if w >= b {
		return w - b
	}
	return model.MinutesPerDay - b + w
}
