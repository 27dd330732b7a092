package model

import "time"

// EventType はログイン/ログアウトイベントの種別を表す。
type EventType string

const (
	// EventTypeLogin はログインイベント。
	EventTypeLogin EventType = "login"
	// EventTypeLogout はログアウトイベント。
	EventTypeLogout EventType = "logout"
)

// Valid はイベント種別が定義済みの値かどうかを返す。
func (t EventType) Valid() bool {
	return t == EventTypeLogin || t == EventTypeLogout
}

// ParseEventType は文字列をEventTypeに変換する。
// 未定義の値の場合はfalseを返す。
func ParseEventType(s string) (EventType, bool) {
	t := EventType(s)
	return t, t.Valid()
}

// Event は1回のログインまたはログアウトの発生を表す。
// 記録後は不変で、更新されることはない。
type Event struct {
	ID           string
	UserID       string
	ConnectionID string
	Type         EventType
	Provider     string
	AccountName  string
	Timestamp    time.Time
	Metadata     map[string]any
	CreatedAt    time.Time
}

// EventFilter はイベント検索条件を表す。
// nilのスライスは「条件なし」を意味する。空でないスライスはいずれかに一致するものを選ぶ。
// ProvidersとAccountNamesは独立に評価されるため、組の一致は呼び出し側で確認すること。
type EventFilter struct {
	Providers    []string
	AccountNames []string
	Since        time.Time
	Types        []EventType
}
