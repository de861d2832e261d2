// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はアップストリームから取得した投稿本文・コメント本文の
// HTMLをサニタイズし、XSS攻撃などのリスクからAPI利用者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はユーザー生成HTMLのサニタイズを行う。
// ポリシーは生成後に変更されず、スレッドセーフに利用できる。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, i, b, em, strong, ul, ol, li, blockquote, pre, code
//   - aタグ: href属性のみ許可。target="_blank"とrel="noreferrer noopener"を自動付与
//   - 相対URLは不許可
//   - script, iframe, styleおよびon*イベント属性は許可リスト外のため除去される
func NewContentSanitizer() *ContentSanitizer {
	p := bluemonday.NewPolicy()

	// HN本文で実際に現れるタグの許可リスト
	p.AllowElements(
		"p", "br", "i", "b", "em", "strong",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &ContentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
// 空文字列には空文字列を返し、同一入力に対して常に同一出力を返す。
func (s *ContentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
