package activity

import (
	"sort"

	"github.com/hitoshi/identityx/internal/model"
)

// dateLayout はトレンドの日付バケットの書式。
const dateLayout = "2006-01-02"

// TrendPoint は1日・1プロバイダーあたりのログイン数を表す。
type TrendPoint struct {
	Date     string
	Provider string
	Count    int
}

type trendKey struct {
	date     string
	provider string
}

// Trend はloginイベントをUTCの暦日とプロバイダーで集計する。
// 結果は日付の昇順（同日内はプロバイダー名の昇順）で、件数0の組は出力しない。
func Trend(matched []*model.Event) []TrendPoint {
	counts := make(map[trendKey]int)
	for _, e := range matched {
		if e.Type != model.EventTypeLogin {
			continue
		}
		k := trendKey{
			date:     e.Timestamp.UTC().Format(dateLayout),
			provider: e.Provider,
		}
		counts[k]++
	}

	points := make([]TrendPoint, 0, len(counts))
	for k, n := range counts {
		points = append(points, TrendPoint{Date: k.date, Provider: k.provider, Count: n})
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Date != points[j].Date {
			return points[i].Date < points[j].Date
		}
		return points[i].Provider < points[j].Provider
	})

	return points
}
