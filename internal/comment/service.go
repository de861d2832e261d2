// Package comment はコメントツリーの再帰構築とページングを提供する。
package comment

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/hnlens/internal/model"
	"github.com/hitoshi/hnlens/internal/source"
)

// ページングの既定値と上限
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Sanitizer はユーザー生成HTMLの無害化のインターフェース。
type Sanitizer interface {
	Sanitize(html string) string
}

// MetricsRecorder は構築中に脱落したコメントの記録のインターフェース。
// テスト時はnilのままでよい。
type MetricsRecorder interface {
	RecordCommentDropped()
}

// Service はコメントツリー構築のビジネスロジックを提供する。
type Service struct {
	src       source.Source
	sanitizer Sanitizer
	metrics   MetricsRecorder
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(src source.Source, sanitizer Sanitizer, metrics MetricsRecorder, logger *slog.Logger) *Service {
	return &Service{
		src:       src,
		sanitizer: sanitizer,
		metrics:   metrics,
		logger:    logger,
	}
}

// PaginatedComments はコメントページングの応答。
// TotalCommentsはトップレベルコメントの総数で、脱落や深さ打ち切りの
// 影響を受けない。
type PaginatedComments struct {
	Comments      []*model.Comment `json:"comments"`
	TotalComments int              `json:"totalComments"`
	HasMore       bool             `json:"hasMore"`
}

// CommentsByPostID は投稿のコメントツリー全体を深さ上限つきで構築する。
// 投稿が存在しなければNotFoundError。
func (s *Service) CommentsByPostID(ctx context.Context, postID, maxDepth int) ([]*model.Comment, error) {
	post, err := s.src.PostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.buildTree(ctx, postID, post.CommentIDs, maxDepth)
}

// CommentsPaginated はトップレベルコメントをページングし、
// ページ窓に含まれるサブツリーだけを構築して返す。
// HasMoreはこのページの後にまだトップレベルコメントが残っているかを示す。
func (s *Service) CommentsPaginated(ctx context.Context, postID, page, pageSize, maxDepth int) (*PaginatedComments, error) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	post, err := s.src.PostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	total := len(post.CommentIDs)
	start := (page - 1) * pageSize
	if start >= total {
		// 範囲外ページはサブツリー構築を行わずに空結果
		return &PaginatedComments{
			Comments:      []*model.Comment{},
			TotalComments: total,
			HasMore:       false,
		}, nil
	}
	end := start + pageSize
	hasMore := end < total
	if end > total {
		end = total
	}

	comments, err := s.buildTree(ctx, postID, post.CommentIDs[start:end], maxDepth)
	if err != nil {
		return nil, err
	}

	return &PaginatedComments{
		Comments:      comments,
		TotalComments: total,
		HasMore:       hasMore,
	}, nil
}

// buildTree はresolveを呼び出して構築結果のサマリをログに残す。
func (s *Service) buildTree(ctx context.Context, postID int, ids []int, maxDepth int) ([]*model.Comment, error) {
	start := time.Now()

	comments, err := s.resolve(ctx, ids, 0, maxDepth)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("コメントツリーを構築しました",
		slog.Int("post_id", postID),
		slog.Int("top_level_requested", len(ids)),
		slog.Int("top_level_returned", len(comments)),
		slog.Int("max_depth", maxDepth),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return comments, nil
}

// resolve はID列を同一レベルで並行取得し、各生存コメントの子を再帰的に
// 解決する。結果は入力ID順を保ち、脱落したコメントは詰めて除かれる。
// depthがmaxDepth以上になった階層は取得せず、CommentIDsだけが残る。
func (s *Service) resolve(ctx context.Context, ids []int, depth, maxDepth int) ([]*model.Comment, error) {
	if depth >= maxDepth || len(ids) == 0 {
		return []*model.Comment{}, nil
	}

	fetched := make([]*model.Comment, len(ids))

	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			c, err := s.fetchSafe(ctx, id)
			if err != nil {
				return err
			}
			fetched[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 脱落分を詰めて入力順を保つ
	survivors := make([]*model.Comment, 0, len(ids))
	for _, c := range fetched {
		if c != nil {
			survivors = append(survivors, c)
		}
	}

	// 生存コメントの子サブツリーも並行に解決する
	var cg errgroup.Group
	for _, c := range survivors {
		if len(c.CommentIDs) == 0 {
			continue
		}
		c := c
		cg.Go(func() error {
			children, err := s.resolve(ctx, c.CommentIDs, depth+1, maxDepth)
			if err != nil {
				return err
			}
			c.Children = children
			return nil
		})
	}
	if err := cg.Wait(); err != nil {
		return nil, err
	}

	return survivors, nil
}

// fetchSafe は単一コメントを取得し、ツリーから除外すべきものはnilを返す。
// 存在しないコメントと削除済み・凍結済みコメントは静かに脱落させ、
// それ以外の失敗はエラーとして伝播する。
func (s *Service) fetchSafe(ctx context.Context, id int) (*model.Comment, error) {
	c, err := s.src.CommentByID(ctx, id)
	if err != nil {
		if model.IsNotFound(err) {
			s.dropped(id, "not_found")
			return nil, nil
		}
		return nil, err
	}

	if c.Deleted || c.Dead {
		s.dropped(id, "deleted_or_dead")
		return nil, nil
	}

	if c.Text != "" {
		c.Text = s.sanitizer.Sanitize(c.Text)
	}
	return c, nil
}

func (s *Service) dropped(id int, reason string) {
	if s.metrics != nil {
		s.metrics.RecordCommentDropped()
	}
	s.logger.Debug("コメントをツリーから除外しました",
		slog.Int("comment_id", id),
		slog.String("reason", reason),
	)
}
