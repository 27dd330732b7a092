// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizer は利用者が入力した短いテキスト（プロバイダー名やアカウント名）から
// マークアップを取り除き、ダッシュボードに表示しても安全なプレーンテキストにする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizer はテキスト入力のサニタイズ機能のインターフェースを定義する。
type InputSanitizer interface {
	// SanitizeText はすべてのHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// script, styleなどの要素は中身ごと除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// inputSanitizer はInputSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerの新しいインスタンスを生成する。
// タグを一切許可しないStrictPolicyを使用する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はエンティティの多重エスケープを展開する回数の上限。
const maxSanitizePasses = 8

// SanitizeText はタグを除去したプレーンテキストを返す。
// 保存値はHTMLではないのでエスケープは元の文字に戻すが、戻した結果に
// タグが現れる場合があるため、出力が変化しなくなるまでポリシーを適用し直す。
// 上限回数で収束しない入力は空文字列にする。
func (s *inputSanitizer) SanitizeText(raw string) string {
	text := strings.TrimSpace(raw)
	for i := 0; i < maxSanitizePasses; i++ {
		if text == "" {
			return ""
		}
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
		if next == text {
			return text
		}
		text = next
	}
	return ""
}
