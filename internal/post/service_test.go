package post

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/hnlens/internal/model"
)

// fakeSource はSourceインターフェースのテスト用実装。
type fakeSource struct {
	topIDs  []int
	newIDs  []int
	bestIDs []int
	posts   map[int]*model.Post

	fetchedIDs [][]int
	idsErr     error
}

func (f *fakeSource) TopPostIDs(ctx context.Context) ([]int, error)  { return f.topIDs, f.idsErr }
func (f *fakeSource) NewPostIDs(ctx context.Context) ([]int, error)  { return f.newIDs, f.idsErr }
func (f *fakeSource) BestPostIDs(ctx context.Context) ([]int, error) { return f.bestIDs, f.idsErr }

func (f *fakeSource) PostByID(ctx context.Context, id int) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, model.NewNotFoundError("missing")
	}
	return p, nil
}

func (f *fakeSource) PostsByIDs(ctx context.Context, ids []int) ([]*model.Post, error) {
	f.fetchedIDs = append(f.fetchedIDs, ids)
	out := make([]*model.Post, 0, len(ids))
	for _, id := range ids {
		p, err := f.PostByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeSource) CommentByID(ctx context.Context, id int) (*model.Comment, error) {
	return nil, model.NewNotFoundError("missing")
}

// passthroughSanitizer は入力をそのまま返すテスト用サニタイザ。
type passthroughSanitizer struct{ calls int }

func (s *passthroughSanitizer) Sanitize(html string) string {
	s.calls++
	return html
}

func newTestService(src *fakeSource) (*Service, *passthroughSanitizer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	san := &passthroughSanitizer{}
	return NewService(src, san, logger), san
}

func makePosts(ids ...int) map[int]*model.Post {
	posts := make(map[int]*model.Post, len(ids))
	for _, id := range ids {
		posts[id] = &model.Post{
			ID:         id,
			Type:       model.PostTypeStory,
			Author:     "alice",
			CommentIDs: []int{},
			CreatedAt:  time.Unix(1700000000, 0).UTC(),
		}
	}
	return posts
}

func TestFetchPosts_DefaultsToTopFirstPage(t *testing.T) {
	src := &fakeSource{
		topIDs: []int{1, 2, 3},
		posts:  makePosts(1, 2, 3),
	}
	svc, _ := newTestService(src)

	posts, err := svc.FetchPosts(context.Background(), FetchParams{})
	if err != nil {
		t.Fatalf("FetchPosts がエラーを返した: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("件数 = %d, want 3", len(posts))
	}
	for i, want := range []int{1, 2, 3} {
		if posts[i].ID != want {
			t.Errorf("posts[%d].ID = %d, want %d", i, posts[i].ID, want)
		}
	}
}

func TestFetchPosts_SortSelection(t *testing.T) {
	src := &fakeSource{
		topIDs:  []int{1},
		newIDs:  []int{2},
		bestIDs: []int{3},
		posts:   makePosts(1, 2, 3),
	}
	svc, _ := newTestService(src)

	tests := []struct {
		sort   model.SortType
		wantID int
	}{
		{model.SortTop, 1},
		{model.SortNew, 2},
		{model.SortBest, 3},
	}
	for _, tt := range tests {
		posts, err := svc.FetchPosts(context.Background(), FetchParams{Sort: tt.sort})
		if err != nil {
			t.Fatalf("FetchPosts(%s) がエラーを返した: %v", tt.sort, err)
		}
		if len(posts) != 1 || posts[0].ID != tt.wantID {
			t.Errorf("sort=%s の結果 = %v, want ID %d", tt.sort, posts, tt.wantID)
		}
	}
}

func TestFetchPosts_WindowOnlyFetchesPageIDs(t *testing.T) {
	// ページ窓のIDだけがアイテム取得される
	src := &fakeSource{
		topIDs: []int{10, 20, 30, 40, 50},
		posts:  makePosts(10, 20, 30, 40, 50),
	}
	svc, _ := newTestService(src)

	posts, err := svc.FetchPosts(context.Background(), FetchParams{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("FetchPosts がエラーを返した: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != 30 || posts[1].ID != 40 {
		t.Errorf("2ページ目の結果 = %v, want [30 40]", posts)
	}
	if len(src.fetchedIDs) != 1 || len(src.fetchedIDs[0]) != 2 {
		t.Errorf("取得要求されたID = %v, want [[30 40]]", src.fetchedIDs)
	}
}

func TestFetchPosts_LastPartialPage(t *testing.T) {
	src := &fakeSource{
		topIDs: []int{1, 2, 3},
		posts:  makePosts(1, 2, 3),
	}
	svc, _ := newTestService(src)

	posts, err := svc.FetchPosts(context.Background(), FetchParams{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("FetchPosts がエラーを返した: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != 3 {
		t.Errorf("端数ページの結果 = %v, want [3]", posts)
	}
}

func TestFetchPosts_OutOfRangePageIsEmptyNotError(t *testing.T) {
	src := &fakeSource{
		topIDs: []int{1, 2, 3},
		posts:  makePosts(1, 2, 3),
	}
	svc, _ := newTestService(src)

	posts, err := svc.FetchPosts(context.Background(), FetchParams{Page: 99, PageSize: 30})
	if err != nil {
		t.Fatalf("範囲外ページがエラーになった: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("結果 = %v, want 空スライス", posts)
	}
	if len(src.fetchedIDs) != 0 {
		t.Errorf("範囲外ページでアイテム取得が行われた: %v", src.fetchedIDs)
	}
}

func TestFetchPosts_InvalidParamsFallBackToDefaults(t *testing.T) {
	src := &fakeSource{
		topIDs: []int{1, 2},
		posts:  makePosts(1, 2),
	}
	svc, _ := newTestService(src)

	tests := []FetchParams{
		{Page: 0, PageSize: 10},
		{Page: -1, PageSize: 10},
		{Page: 1, PageSize: 0},
		{Page: 1, PageSize: MaxPageSize + 1},
	}
	for _, params := range tests {
		posts, err := svc.FetchPosts(context.Background(), params)
		if err != nil {
			t.Fatalf("FetchPosts(%+v) がエラーを返した: %v", params, err)
		}
		if len(posts) != 2 {
			t.Errorf("FetchPosts(%+v) の件数 = %d, want 2", params, len(posts))
		}
	}
}

func TestFetchPosts_SanitizesText(t *testing.T) {
	src := &fakeSource{
		topIDs: []int{1},
		posts: map[int]*model.Post{
			1: {ID: 1, Type: model.PostTypeStory, Author: "alice", Text: "<p>ask hn</p>", CommentIDs: []int{}},
		},
	}
	svc, san := newTestService(src)

	_, err := svc.FetchPosts(context.Background(), FetchParams{})
	if err != nil {
		t.Fatalf("FetchPosts がエラーを返した: %v", err)
	}
	if san.calls != 1 {
		t.Errorf("サニタイズ回数 = %d, want 1", san.calls)
	}
}

func TestPostByID_NotFoundPropagates(t *testing.T) {
	src := &fakeSource{posts: map[int]*model.Post{}}
	svc, _ := newTestService(src)

	_, err := svc.PostByID(context.Background(), 42)
	if !model.IsNotFound(err) {
		t.Errorf("NotFoundErrorが返っていない: %v", err)
	}
}

func TestPageWindow(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5}
	tests := []struct {
		page, pageSize int
		want           []int
	}{
		{1, 2, []int{1, 2}},
		{2, 2, []int{3, 4}},
		{3, 2, []int{5}},
		{4, 2, nil},
		{1, 10, []int{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		got := pageWindow(ids, tt.page, tt.pageSize)
		if len(got) != len(tt.want) {
			t.Errorf("pageWindow(page=%d, size=%d) = %v, want %v", tt.page, tt.pageSize, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("pageWindow(page=%d, size=%d) = %v, want %v", tt.page, tt.pageSize, got, tt.want)
				break
			}
		}
	}
}
