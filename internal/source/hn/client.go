// Package hn はHacker News Firebase APIのクライアント実装を提供する。
// IDリストの取得と、アイテム単位のフェッチ（タイムアウト・リトライ付き）、
// 生アイテムからドメインモデルへの写像を含む。
package hn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/hnlens/internal/model"
	"github.com/hitoshi/hnlens/internal/retry"
)

// MetricsRecorder はアップストリーム呼び出しのメトリクス記録のインターフェース。
// テスト時はnilのままでよい。
type MetricsRecorder interface {
	RecordUpstreamRequest(statusCode int)
	RecordUpstreamLatency(d time.Duration)
	RecordUpstreamRetry()
}

// ClientConfig はClientの生成パラメータ。
type ClientConfig struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	// BaseURL はAPIのベースURL（例: https://hacker-news.firebaseio.com）。
	// /v0 への正規化はClient側で行う。
	BaseURL string
	// Timeout は1回のHTTP呼び出しに適用するタイムアウト。
	Timeout time.Duration
	// Retry はリトライエンジンの設定。OnRetryはClientが上書きする。
	Retry retry.Options
	// Metrics は省略可能なメトリクスレコーダー。
	Metrics MetricsRecorder
}

// Client はHacker News APIのクライアント。
// すべての呼び出しはタイムアウトガードとリトライエンジンで保護される。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // /v0 まで正規化済み
	timeout    time.Duration
	retryOpts  retry.Options
	metrics    MetricsRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		baseURL:    toV0BaseURL(cfg.BaseURL),
		timeout:    cfg.Timeout,
		retryOpts:  cfg.Retry,
		metrics:    cfg.Metrics,
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.retryOpts.OnRetry = func(attempt int, delay time.Duration, err error) {
		if c.metrics != nil {
			c.metrics.RecordUpstreamRetry()
		}
		c.logger.Info("アップストリーム呼び出しを再試行します",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", c.retryOpts.MaxRetries),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
	}

	return c
}

// toV0BaseURL はベースURLを /v0 付きに正規化する。
func toV0BaseURL(base string) string {
	if strings.HasSuffix(base, "/") {
		return base + "v0"
	}
	return base + "/v0"
}

// hnItem はHN APIの生アイテム。storyもcommentも同じエンドポイント形で返る。
type hnItem struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"` // epoch秒
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Kids        []int  `json:"kids"`
	Parent      int    `json:"parent"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
}

// TopPostIDs はランキング順の投稿ID列を返す。
func (c *Client) TopPostIDs(ctx context.Context) ([]int, error) {
	return c.fetchIDs(ctx, "hn.topPostIDs", "/topstories.json")
}

// NewPostIDs は新着順の投稿ID列を返す。
func (c *Client) NewPostIDs(ctx context.Context) ([]int, error) {
	return c.fetchIDs(ctx, "hn.newPostIDs", "/newstories.json")
}

// BestPostIDs はベスト順の投稿ID列を返す。
func (c *Client) BestPostIDs(ctx context.Context) ([]int, error) {
	return c.fetchIDs(ctx, "hn.bestPostIDs", "/beststories.json")
}

// PostByID は単一の投稿を取得する。
// アップストリームがnullを返した場合はNotFoundError。
func (c *Client) PostByID(ctx context.Context, id int) (*model.Post, error) {
	item, err := c.fetchItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapPost(item), nil
}

// PostsByIDs は複数の投稿を並行かつ独立に取得する。
// 結果は入力ID順に並び、1件でも許容されない失敗があれば全体が失敗する。
// 失敗しても既に発行済みの兄弟リクエストはキャンセルしない。
func (c *Client) PostsByIDs(ctx context.Context, ids []int) ([]*model.Post, error) {
	posts := make([]*model.Post, len(ids))

	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			p, err := c.PostByID(ctx, id)
			if err != nil {
				return err
			}
			posts[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return posts, nil
}

// CommentByID は単一のコメントを取得する。
// アップストリームがnullを返した場合はNotFoundError。
func (c *Client) CommentByID(ctx context.Context, id int) (*model.Comment, error) {
	item, err := c.fetchItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapComment(item), nil
}

// fetchIDs はIDリストエンドポイントをリトライ付きで呼び出す。
func (c *Client) fetchIDs(ctx context.Context, name, endpoint string) ([]int, error) {
	url := c.baseURL + endpoint

	start := time.Now()
	ids, err := retry.Do(ctx, c.retryOpts, func(ctx context.Context) ([]int, error) {
		var ids []int
		if err := c.getJSON(ctx, url, &ids); err != nil {
			return nil, err
		}
		return ids, nil
	})
	if err != nil {
		c.logger.Debug("アダプタ呼び出しが失敗しました",
			slog.String("name", name),
			slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.logger.Debug("アダプタ呼び出しが完了しました",
		slog.String("name", name),
		slog.Int("id_count", len(ids)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return ids, nil
}

// fetchItem はアイテムエンドポイントをリトライ付きで呼び出す。
// 存在しないIDに対してHN APIは200でnullを返すため、その場合も
// NotFoundErrorに正規化する。
func (c *Client) fetchItem(ctx context.Context, id int) (*hnItem, error) {
	url := fmt.Sprintf("%s/item/%d.json", c.baseURL, id)

	return retry.Do(ctx, c.retryOpts, func(ctx context.Context) (*hnItem, error) {
		var item *hnItem
		if err := c.getJSON(ctx, url, &item); err != nil {
			return nil, err
		}
		if item == nil {
			return nil, model.NewNotFoundError(fmt.Sprintf("アイテムが見つかりません: %d", id))
		}
		return item, nil
	})
}

// getJSON は1回分のHTTP呼び出しを実行し、レスポンスJSONをdstへデコードする。
// タイムアウトガードはこの1呼び出しだけに適用され、超過時はTimeoutErrorを返す。
// 404はNotFoundError、それ以外の非2xxはGatewayErrorへ写像する。
func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "hnlens/1.0")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.RecordUpstreamLatency(time.Since(start))
	}
	if err != nil {
		// 呼び出し元のコンテキストが生きているのにdeadlineを超えた場合は
		// ローカルタイムアウトとして正規化する
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return model.NewTimeoutError(fmt.Sprintf("アップストリームが%v以内に応答しませんでした: %s", c.timeout, url))
		}
		return err
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusNotFound {
		return model.NewNotFoundError(fmt.Sprintf("リソースが見つかりません: %s", url))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.NewGatewayError(fmt.Sprintf("アップストリームがステータス %d を返しました: %s", resp.StatusCode, url))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return nil
}
