// Package activity はログイン/ログアウトイベントからアクティビティ指標を導出する。
//
// 同じ「アクティブセッション数」を2通りの方法で計算する。
//   - Aggregate: 期間内のlogin数からlogout数を引いた算術カウント。負になり得る。
//   - Replay: アカウントごとのスタックで時系列に再生したセッション数。常に0以上。
//
// 両者は独立に計算され、一致は保証されない。
package activity

import "time"

// 集計期間の指定値。
const (
	Range7Days  = "7d"
	Range30Days = "30d"
	Range90Days = "90d"
)

const day = 24 * time.Hour

// NormalizeRange は期間指定を実際に適用される値に正規化する。
// "7d"と"30d"以外はすべて"90d"として扱う。不正値はエラーにしない。
func NormalizeRange(rangeValue string) string {
	switch rangeValue {
	case Range7Days, Range30Days:
		return rangeValue
	default:
		return Range90Days
	}
}

// ResolveStart は期間指定から集計開始時刻を求める。
func ResolveStart(rangeValue string, now time.Time) time.Time {
	days := 90
	switch NormalizeRange(rangeValue) {
	case Range7Days:
		days = 7
	case Range30Days:
		days = 30
	}
	return now.Add(-time.Duration(days) * day)
}
