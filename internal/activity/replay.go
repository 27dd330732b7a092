package activity

import (
	"sort"
	"time"

	"github.com/hitoshi/identityx/internal/model"
)

// SessionReplay はイベントを時系列に再生した後のアカウントごとの未終了セッションを保持する。
type SessionReplay struct {
	open map[string][]time.Time
}

// Replay はイベントを時刻の昇順に安定ソートし、アカウント名ごとのスタックで再生する。
//   - login: ログイン時刻をpushする
//   - logout: スタックが空でなければpopする。空なら何もしない
//
// 入力スライスは変更しない。
func Replay(events []*model.Event) *SessionReplay {
	sorted := make([]*model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	r := &SessionReplay{open: make(map[string][]time.Time)}
	for _, e := range sorted {
		if e.AccountName == "" {
			continue
		}
		stack := r.open[e.AccountName]
		switch e.Type {
		case model.EventTypeLogin:
			r.open[e.AccountName] = append(stack, e.Timestamp)
		case model.EventTypeLogout:
			if len(stack) > 0 {
				r.open[e.AccountName] = stack[:len(stack)-1]
			}
		}
	}
	return r
}

// ActiveSessions は全アカウントの未終了セッション数の合計を返す。
func (r *SessionReplay) ActiveSessions() int {
	total := 0
	for _, stack := range r.open {
		total += len(stack)
	}
	return total
}

// OpenSessions は指定アカウントの未終了セッション数を返す。
func (r *SessionReplay) OpenSessions(accountName string) int {
	return len(r.open[accountName])
}

// ReplayActiveSessions はReplayしたうえでActiveSessionsを返すショートカット。
func ReplayActiveSessions(events []*model.Event) int {
	return Replay(events).ActiveSessions()
}
