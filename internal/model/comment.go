package model

import "time"

// Comment はスレッド状ディスカッションの1ノードを表す。
// リモートクライアントから直接取得されたコメントのChildrenは常に空で、
// ツリービルダーだけが深さ上限までChildrenを埋める。
type Comment struct {
	ID     int    `json:"id"`
	Author string `json:"author"`
	// Text はコメント本文（サニタイズ済みHTML）。
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`

	// ParentID は親（投稿またはコメント）のID。
	// アップストリームが省略した場合は0（実在しないID）で「親不明」を表す。
	ParentID int `json:"parentId"`

	// CommentIDs はアップストリームが返した未解決の子コメントID列。
	// ChildrenはこのIDを解決した結果で、深さ上限で打ち切られた場合は
	// CommentIDsが非空のままChildrenが空になる。
	CommentIDs []int      `json:"commentIds"`
	Children   []*Comment `json:"children"`

	// Deleted/Dead が真のコメントは組み立て後のツリーから除外され、
	// そのサブツリーの子IDは一切フェッチされない。
	Deleted bool `json:"deleted,omitempty"`
	Dead    bool `json:"dead,omitempty"`
}
