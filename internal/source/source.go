// Package source はデータソースアダプタの契約と起動時の選択を提供する。
// サービス層はSourceインターフェースだけに依存し、同じ契約を実装する
// 別のデータソースへサービスを変更せずに差し替えられる。
package source

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/hnlens/internal/model"
	"github.com/hitoshi/hnlens/internal/retry"
	"github.com/hitoshi/hnlens/internal/source/hn"
)

// Source は全データソースアダプタが実装する能力セット。
type Source interface {
	// TopPostIDs はランキング順の投稿ID列を返す。
	TopPostIDs(ctx context.Context) ([]int, error)
	// NewPostIDs は新着順の投稿ID列を返す。
	NewPostIDs(ctx context.Context) ([]int, error)
	// BestPostIDs はベスト順の投稿ID列を返す。
	BestPostIDs(ctx context.Context) ([]int, error)
	// PostByID は単一の投稿を返す。存在しなければNotFoundError。
	PostByID(ctx context.Context, id int) (*model.Post, error)
	// PostsByIDs は複数の投稿を入力ID順で返す。
	PostsByIDs(ctx context.Context, ids []int) ([]*model.Post, error)
	// CommentByID は単一のコメントを返す。存在しなければNotFoundError。
	CommentByID(ctx context.Context, id int) (*model.Comment, error)
}

// DefaultSourceName は組み込みの既定データソース名。
const DefaultSourceName = "hackernews"

// Deps はアダプタ生成に必要な依存関係をまとめた構造体。
type Deps struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	BaseURL    string
	Timeout    time.Duration
	Retry      retry.Options
	Metrics    hn.MetricsRecorder
}

// New はDATA_SOURCE設定値に対応するSourceを生成する。
// 起動時に1回だけ呼ばれる閉じたディスパッチで、未知の値は警告ログを
// 出してhackernewsにフォールバックする。
func New(name string, deps Deps) Source {
	switch name {
	case DefaultSourceName, "":
	default:
		deps.Logger.Warn("未知のDATA_SOURCEが指定されたためhackernewsを使用します",
			slog.String("data_source", name),
		)
	}

	return hn.NewClient(hn.ClientConfig{
		HTTPClient: deps.HTTPClient,
		Logger:     deps.Logger,
		BaseURL:    deps.BaseURL,
		Timeout:    deps.Timeout,
		Retry:      deps.Retry,
		Metrics:    deps.Metrics,
	})
}
