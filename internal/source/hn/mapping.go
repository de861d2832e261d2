package hn

import (
	"time"

	"github.com/hitoshi/hnlens/internal/model"
)

// mapPostType は生アイテムの種別をPostTypeへ写像する。
// 未知・欠落の種別はstoryとして扱う。
func mapPostType(t string) model.PostType {
	switch model.PostType(t) {
	case model.PostTypeStory, model.PostTypeJob, model.PostTypePoll:
		return model.PostType(t)
	default:
		return model.PostTypeStory
	}
}

// mapPost は生アイテムをPostへ写像する。
// 省略可能なフィールドすべてに明示的な既定値を与える全域関数。
func mapPost(item *hnItem) *model.Post {
	return &model.Post{
		ID:           item.ID,
		Type:         mapPostType(item.Type),
		Title:        item.Title,
		URL:          item.URL,
		Text:         item.Text,
		Author:       authorOrUnknown(item.By),
		Points:       item.Score,
		CommentCount: item.Descendants,
		CommentIDs:   kidsOrEmpty(item.Kids),
		CreatedAt:    time.Unix(item.Time, 0).UTC(),
		Deleted:      item.Deleted,
		Dead:         item.Dead,
	}
}

// mapComment は生アイテムをCommentへ写像する。
// Childrenは常に空で初期化され、ツリービルダーだけがこれを埋める。
func mapComment(item *hnItem) *model.Comment {
	return &model.Comment{
		ID:         item.ID,
		Author:     authorOrUnknown(item.By),
		Text:       item.Text,
		CreatedAt:  time.Unix(item.Time, 0).UTC(),
		ParentID:   item.Parent,
		CommentIDs: kidsOrEmpty(item.Kids),
		Children:   []*model.Comment{},
		Deleted:    item.Deleted,
		Dead:       item.Dead,
	}
}

func authorOrUnknown(by string) string {
	if by == "" {
		return "unknown"
	}
	return by
}

// kidsOrEmpty は子ID列をnilでない空スライスに正規化する。
// JSONで常に配列として直列化されるようにするため。
func kidsOrEmpty(kids []int) []int {
	if kids == nil {
		return []int{}
	}
	return kids
}
