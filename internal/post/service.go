// Package post は投稿一覧と単一投稿取得のサービスを提供する。
package post

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/hnlens/internal/model"
	"github.com/hitoshi/hnlens/internal/source"
)

// 一覧取得の既定値と上限
const (
	DefaultPage     = 1
	DefaultPageSize = 30
	MaxPageSize     = 100
)

// Sanitizer はユーザー生成HTMLの無害化のインターフェース。
type Sanitizer interface {
	Sanitize(html string) string
}

// Service は投稿取得のビジネスロジックを提供する。
type Service struct {
	src       source.Source
	sanitizer Sanitizer
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(src source.Source, sanitizer Sanitizer, logger *slog.Logger) *Service {
	return &Service{
		src:       src,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// FetchParams は投稿一覧取得のパラメータ。
// ゼロ値のフィールドには既定値が適用される。
type FetchParams struct {
	Sort     model.SortType
	Page     int
	PageSize int
}

// FetchPosts はソート種別に応じたIDリストをページングし、
// ページ窓に含まれる投稿だけを取得して返す。
// 空ページでもエラーではなく空スライスを返す。
func (s *Service) FetchPosts(ctx context.Context, params FetchParams) ([]*model.Post, error) {
	if params.Sort == "" {
		params.Sort = model.SortTop
	}
	if params.Page < 1 {
		params.Page = DefaultPage
	}
	if params.PageSize < 1 || params.PageSize > MaxPageSize {
		params.PageSize = DefaultPageSize
	}

	start := time.Now()

	ids, err := s.postIDs(ctx, params.Sort)
	if err != nil {
		return nil, err
	}

	window := pageWindow(ids, params.Page, params.PageSize)
	if len(window) == 0 {
		// 範囲外ページはアイテム取得を行わずに空結果
		return []*model.Post{}, nil
	}

	posts, err := s.src.PostsByIDs(ctx, window)
	if err != nil {
		return nil, err
	}

	for _, p := range posts {
		if p.Text != "" {
			p.Text = s.sanitizer.Sanitize(p.Text)
		}
	}

	s.logger.Debug("投稿一覧を取得しました",
		slog.String("sort", string(params.Sort)),
		slog.Int("page", params.Page),
		slog.Int("page_size", params.PageSize),
		slog.Int("total_ids", len(ids)),
		slog.Int("returned", len(posts)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return posts, nil
}

// PostByID は単一の投稿を取得する。存在しなければNotFoundError。
func (s *Service) PostByID(ctx context.Context, id int) (*model.Post, error) {
	p, err := s.src.PostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Text != "" {
		p.Text = s.sanitizer.Sanitize(p.Text)
	}
	return p, nil
}

func (s *Service) postIDs(ctx context.Context, sort model.SortType) ([]int, error) {
	switch sort {
	case model.SortNew:
		return s.src.NewPostIDs(ctx)
	case model.SortBest:
		return s.src.BestPostIDs(ctx)
	default:
		return s.src.TopPostIDs(ctx)
	}
}

// pageWindow は1始まりのページ番号でID列を切り出す。
// 範囲外は空スライスになる。
func pageWindow(ids []int, page, pageSize int) []int {
	start := (page - 1) * pageSize
	if start >= len(ids) {
		return nil
	}
	end := start + pageSize
	if end > len(ids) {
		end = len(ids)
	}
	return ids[start:end]
}
