package hn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/hnlens/internal/model"
	"github.com/hitoshi/hnlens/internal/retry"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// fastRetry は実時間待機を最小化したリトライ設定。
func fastRetry(maxRetries int) retry.Options {
	return retry.Options{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func newTestClient(t *testing.T, server *httptest.Server, maxRetries int) *Client {
	t.Helper()
	var buf bytes.Buffer
	return NewClient(ClientConfig{
		HTTPClient: server.Client(),
		Logger:     newTestLogger(&buf),
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		Retry:      fastRetry(maxRetries),
	})
}

// --- ベースURLの正規化 ---

func TestToV0BaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://hacker-news.firebaseio.com", "https://hacker-news.firebaseio.com/v0"},
		{"https://hacker-news.firebaseio.com/", "https://hacker-news.firebaseio.com/v0"},
	}
	for _, tt := range tests {
		if got := toV0BaseURL(tt.in); got != tt.want {
			t.Errorf("toV0BaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- 写像の全域性 ---

func TestMapPost_AllOptionalFieldsMissing(t *testing.T) {
	// 省略可能フィールドがすべて欠けた生アイテムにも既定値が入る
	p := mapPost(&hnItem{ID: 123})

	if p.ID != 123 {
		t.Errorf("ID = %d, want 123", p.ID)
	}
	if p.Type != model.PostTypeStory {
		t.Errorf("Type = %q, want story", p.Type)
	}
	if p.Title != "" {
		t.Errorf("Title = %q, want 空文字", p.Title)
	}
	if p.Author != "unknown" {
		t.Errorf("Author = %q, want unknown", p.Author)
	}
	if p.Points != 0 {
		t.Errorf("Points = %d, want 0", p.Points)
	}
	if p.CommentCount != 0 {
		t.Errorf("CommentCount = %d, want 0", p.CommentCount)
	}
	if p.CommentIDs == nil || len(p.CommentIDs) != 0 {
		t.Errorf("CommentIDs = %v, want 空スライス", p.CommentIDs)
	}
	if !p.CreatedAt.Equal(time.Unix(0, 0).UTC()) {
		t.Errorf("CreatedAt = %v, want epoch 0", p.CreatedAt)
	}
}

func TestMapPostType(t *testing.T) {
	tests := []struct {
		in   string
		want model.PostType
	}{
		{"story", model.PostTypeStory},
		{"job", model.PostTypeJob},
		{"poll", model.PostTypePoll},
		{"comment", model.PostTypeStory},
		{"", model.PostTypeStory},
	}
	for _, tt := range tests {
		if got := mapPostType(tt.in); got != tt.want {
			t.Errorf("mapPostType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapComment_Defaults(t *testing.T) {
	c := mapComment(&hnItem{ID: 7})

	if c.Author != "unknown" {
		t.Errorf("Author = %q, want unknown", c.Author)
	}
	if c.Text != "" {
		t.Errorf("Text = %q, want 空文字", c.Text)
	}
	if c.ParentID != 0 {
		t.Errorf("ParentID = %d, want 0", c.ParentID)
	}
	if c.Children == nil || len(c.Children) != 0 {
		t.Errorf("Children = %v, want 空スライス", c.Children)
	}
}

// --- IDリストの取得 ---

func TestTopPostIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/topstories.json" {
			t.Errorf("パス = %s, want /v0/topstories.json", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]int{1, 2, 3})
	}))
	defer server.Close()

	c := newTestClient(t, server, 0)
	ids, err := c.TopPostIDs(context.Background())
	if err != nil {
		t.Fatalf("TopPostIDs がエラーを返した: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("ids = %v, want [1 2 3]", ids)
	}
}

// --- アイテムの取得とエラー写像 ---

func TestPostByID_MapsItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/item/42.json" {
			t.Errorf("パス = %s, want /v0/item/42.json", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":          42,
			"type":        "story",
			"by":          "alice",
			"time":        1700000000,
			"title":       "A story",
			"url":         "https://example.com",
			"score":       100,
			"descendants": 5,
			"kids":        []int{101, 102},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server, 0)
	p, err := c.PostByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("PostByID がエラーを返した: %v", err)
	}
	if p.ID != 42 || p.Author != "alice" || p.Points != 100 || p.CommentCount != 5 {
		t.Errorf("予期しないPost: %+v", p)
	}
	if len(p.CommentIDs) != 2 || p.CommentIDs[0] != 101 {
		t.Errorf("CommentIDs = %v, want [101 102]", p.CommentIDs)
	}
	if !p.CreatedAt.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Errorf("CreatedAt = %v", p.CreatedAt)
	}
}

func TestPostByID_NullItemIsNotFound(t *testing.T) {
	// HN APIは存在しないIDに対して200でnullを返す
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer server.Close()

	c := newTestClient(t, server, 3)
	_, err := c.PostByID(context.Background(), 999999)
	if !model.IsNotFound(err) {
		t.Errorf("NotFoundErrorが返っていない: %v", err)
	}
}

func TestPostByID_404IsNotFoundWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, server, 3)
	_, err := c.PostByID(context.Background(), 1)
	if !model.IsNotFound(err) {
		t.Errorf("NotFoundErrorが返っていない: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("リクエスト回数 = %d, want 1（404は再試行しない）", calls.Load())
	}
}

func TestPostByID_ServerErrorRetriedThenGateway(t *testing.T) {
	const maxRetries = 2
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(t, server, maxRetries)
	_, err := c.PostByID(context.Background(), 1)

	ae, ok := model.AsAppError(err)
	if !ok || ae.Code != model.ErrCodeGateway {
		t.Errorf("GatewayErrorが返っていない: %v", err)
	}
	if calls.Load() != maxRetries+1 {
		t.Errorf("リクエスト回数 = %d, want %d", calls.Load(), maxRetries+1)
	}
}

func TestPostByID_ServerErrorThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "type": "story"})
	}))
	defer server.Close()

	c := newTestClient(t, server, 3)
	p, err := c.PostByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("PostByID がエラーを返した: %v", err)
	}
	if p.ID != 1 {
		t.Errorf("ID = %d, want 1", p.ID)
	}
	if calls.Load() != 2 {
		t.Errorf("リクエスト回数 = %d, want 2", calls.Load())
	}
}

func TestGetJSON_TimeoutIsTimeoutError(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	var buf bytes.Buffer
	c := NewClient(ClientConfig{
		HTTPClient: server.Client(),
		Logger:     newTestLogger(&buf),
		BaseURL:    server.URL,
		Timeout:    20 * time.Millisecond,
		Retry:      fastRetry(0),
	})

	_, err := c.PostByID(context.Background(), 1)
	if !model.IsTimeout(err) {
		t.Errorf("TimeoutErrorが返っていない: %v", err)
	}
}

func TestGetJSON_TimeoutIsRetried(t *testing.T) {
	// タイムアウト自体も残り試行があれば再試行される
	var calls atomic.Int32
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			<-block
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 5, "type": "story"})
	}))
	defer server.Close()
	defer close(block)

	var buf bytes.Buffer
	c := NewClient(ClientConfig{
		HTTPClient: server.Client(),
		Logger:     newTestLogger(&buf),
		BaseURL:    server.URL,
		Timeout:    20 * time.Millisecond,
		Retry:      fastRetry(2),
	})

	p, err := c.PostByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("PostByID がエラーを返した: %v", err)
	}
	if p.ID != 5 {
		t.Errorf("ID = %d, want 5", p.ID)
	}
	if calls.Load() != 2 {
		t.Errorf("リクエスト回数 = %d, want 2", calls.Load())
	}
}

// --- バッチ取得 ---

func TestPostsByIDs_PreservesInputOrder(t *testing.T) {
	// 完了順が逆転しても入力ID順で組み立てられる
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int
		fmt.Sscanf(r.URL.Path, "/v0/item/%d.json", &id)
		// 若いIDほど遅く応答させる
		time.Sleep(time.Duration(40-id*10) * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"id": id, "type": "story"})
	}))
	defer server.Close()

	c := newTestClient(t, server, 0)
	posts, err := c.PostsByIDs(context.Background(), []int{1, 2, 3})
	if err != nil {
		t.Fatalf("PostsByIDs がエラーを返した: %v", err)
	}
	for i, want := range []int{1, 2, 3} {
		if posts[i].ID != want {
			t.Errorf("posts[%d].ID = %d, want %d", i, posts[i].ID, want)
		}
	}
}

func TestPostsByIDs_OneFailureFailsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v0/item/2.json" {
			w.Write([]byte("null"))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "type": "story"})
	}))
	defer server.Close()

	c := newTestClient(t, server, 0)
	_, err := c.PostsByIDs(context.Background(), []int{1, 2, 3})
	if !model.IsNotFound(err) {
		t.Errorf("NotFoundErrorが返っていない: %v", err)
	}
}

// --- コメント取得 ---

func TestCommentByID_MapsItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":     101,
			"type":   "comment",
			"by":     "bob",
			"time":   1700000100,
			"text":   "<p>hello</p>",
			"parent": 42,
			"kids":   []int{201},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server, 0)
	got, err := c.CommentByID(context.Background(), 101)
	if err != nil {
		t.Fatalf("CommentByID がエラーを返した: %v", err)
	}
	if got.ID != 101 || got.Author != "bob" || got.ParentID != 42 {
		t.Errorf("予期しないComment: %+v", got)
	}
	if len(got.CommentIDs) != 1 || got.CommentIDs[0] != 201 {
		t.Errorf("CommentIDs = %v, want [201]", got.CommentIDs)
	}
	if len(got.Children) != 0 {
		t.Errorf("クライアントから取得したコメントのChildrenは空でなければならない: %v", got.Children)
	}
}
