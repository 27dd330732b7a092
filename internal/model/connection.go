package model

import "time"

// Connection はユーザーが登録した外部プロバイダーアカウントとの紐付けを表す。
// (Provider, AccountName) の組でイベントと照合する。
// 同一ユーザー内での重複登録は許容される。
type Connection struct {
	ID          string
	UserID      string
	Provider    string
	AccountName string
	CreatedAt   time.Time
}
