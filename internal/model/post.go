// Package model はドメインモデルを定義する。
package model

import "time"

// PostType は投稿の種別を表す。
type PostType string

const (
	// PostTypeStory は通常のストーリー投稿。
	PostTypeStory PostType = "story"
	// PostTypeJob は求人投稿。
	PostTypeJob PostType = "job"
	// PostTypePoll は投票投稿。
	PostTypePoll PostType = "poll"
)

// SortType は投稿一覧のソート順を表す。
type SortType string

const (
	// SortTop はランキング順。
	SortTop SortType = "top"
	// SortNew は新着順。
	SortNew SortType = "new"
	// SortBest はベスト順。
	SortBest SortType = "best"
)

// ParseSortType は文字列をSortTypeに変換する。
// 未知の値はSortTopとして扱う。
func ParseSortType(s string) SortType {
	switch SortType(s) {
	case SortNew:
		return SortNew
	case SortBest:
		return SortBest
	default:
		return SortTop
	}
}

// Post はトップレベルの投稿を表す。
// フェッチのたびに新しく構築されるイミュータブルな値オブジェクトであり、
// 部分更新やマージは行わない。
type Post struct {
	ID    int      `json:"id"`
	Type  PostType `json:"type"`
	Title string   `json:"title"`

	// URL は外部リンク投稿のリンク先。セルフ投稿では空。
	URL string `json:"url,omitempty"`
	// Text はセルフ投稿の本文（サニタイズ済みHTML）。
	Text string `json:"text,omitempty"`

	Author string `json:"author"`
	Points int    `json:"points"`

	// CommentCount はコメントの総数（子孫を含む）。
	// len(CommentIDs)とは一致しない。
	CommentCount int `json:"commentCount"`
	// CommentIDs はトップレベルコメントのIDのみをアップストリームの
	// 提示順で保持する。ページネーションはこの順序に依存する。
	CommentIDs []int `json:"commentIds"`

	CreatedAt time.Time `json:"createdAt"`

	// Deleted/Dead が真の投稿は原則として表示対象外。
	// 投稿取得パス自体はフィルタしない（コメントパスのみ除外する）。
	Deleted bool `json:"deleted,omitempty"`
	Dead    bool `json:"dead,omitempty"`
}
