// Package model はドメインモデルを定義する。
package model

import "time"

// User はダッシュボードの利用ユーザーを表す。
// Usernameはサインアップ時にメールアドレスのローカル部から生成する。
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// イベントから導出する「アクティブセッション」とは無関係で、認証状態のみを保持する。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
