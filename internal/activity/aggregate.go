package activity

import (
	"sort"
	"time"

	"github.com/hitoshi/identityx/internal/model"
)

// AccountKey はイベントと接続を照合するための (provider, accountName) の組。
type AccountKey struct {
	Provider    string
	AccountName string
}

// AccountKeys は接続一覧から重複を除いたAccountKeyの集合を返す。
func AccountKeys(connections []*model.Connection) map[AccountKey]struct{} {
	keys := make(map[AccountKey]struct{}, len(connections))
	for _, c := range connections {
		keys[AccountKey{Provider: c.Provider, AccountName: c.AccountName}] = struct{}{}
	}
	return keys
}

// ScopeFilter は接続一覧からイベント検索用のフィルタを組み立てる。
// ストアへの条件はプロバイダーとアカウント名それぞれの集合なので、
// 組としての一致はMatchEventsで改めて確認する必要がある。
func ScopeFilter(connections []*model.Connection, since time.Time) model.EventFilter {
	providers := make(map[string]struct{})
	accounts := make(map[string]struct{})
	for _, c := range connections {
		providers[c.Provider] = struct{}{}
		accounts[c.AccountName] = struct{}{}
	}

	return model.EventFilter{
		Providers:    sortedKeys(providers),
		AccountNames: sortedKeys(accounts),
		Since:        since,
		Types:        []model.EventType{model.EventTypeLogin, model.EventTypeLogout},
	}
}

// MatchEvents は集計対象となるイベントを抽出する。
// 条件: Timestamp >= since、種別がlogin/logout、(Provider, AccountName) がいずれかの接続と一致。
// 入力の順序は保持する。
func MatchEvents(events []*model.Event, connections []*model.Connection, since time.Time) []*model.Event {
	keys := AccountKeys(connections)

	matched := make([]*model.Event, 0, len(events))
	for _, e := range events {
		if e.Timestamp.Before(since) {
			continue
		}
		if !e.Type.Valid() {
			continue
		}
		if _, ok := keys[AccountKey{Provider: e.Provider, AccountName: e.AccountName}]; !ok {
			continue
		}
		matched = append(matched, e)
	}
	return matched
}

// RangeAggregate は期間集計の結果を表す。
type RangeAggregate struct {
	TotalAccounts int
	TotalLogins   int
	TotalLogouts  int
	// ActiveSessions はTotalLogins - TotalLogoutsの算術値。
	// ログアウトが多い期間では負になり、0への切り上げは行わない。
	ActiveSessions int
}

// Aggregate は照合済みのイベントから期間集計を行う。
// TotalAccountsはイベントではなく接続一覧から数えるため、イベントのないアカウントも含まれる。
func Aggregate(connections []*model.Connection, matched []*model.Event) RangeAggregate {
	agg := RangeAggregate{
		TotalAccounts: len(AccountKeys(connections)),
	}

	for _, e := range matched {
		switch e.Type {
		case model.EventTypeLogin:
			agg.TotalLogins++
		case model.EventTypeLogout:
			agg.TotalLogouts++
		}
	}
	agg.ActiveSessions = agg.TotalLogins - agg.TotalLogouts

	return agg
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
