package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/hnlens/internal/model"
	"github.com/hitoshi/hnlens/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// FetchPosts はソート種別に応じた投稿一覧をページング付きで返す。
	FetchPosts(ctx context.Context, params post.FetchParams) ([]*model.Post, error)
	// PostByID は単一の投稿を返す。存在しなければNotFoundError。
	PostByID(ctx context.Context, id int) (*model.Post, error)
}

// PostHandler は投稿取得のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// ListPosts は投稿一覧を取得する。
// GET /api/posts?sort=top|new|best&page=1&pageSize=30
//
// 数値として解釈できないpage・pageSizeは既定値にフォールバックし、
// 明示的に範囲外の数値が指定された場合は400を返す。
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	sort := model.ParseSortType(r.URL.Query().Get("sort"))

	page, pageExplicit := queryInt(r, "page", post.DefaultPage)
	if pageExplicit && page < 1 {
		writeError(w, http.StatusBadRequest, "pageは1以上で指定してください。")
		return
	}

	pageSize, sizeExplicit := queryInt(r, "pageSize", post.DefaultPageSize)
	if sizeExplicit && (pageSize < 1 || pageSize > post.MaxPageSize) {
		writeError(w, http.StatusBadRequest, "pageSizeは1から100の範囲で指定してください。")
		return
	}

	posts, err := h.service.FetchPosts(r.Context(), post.FetchParams{
		Sort:     sort,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// GetPost は投稿詳細を取得する。
// GET /api/posts/{id}
//
// 数値でないIDや非正のIDはリソースとして存在しえないため404を返す。
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "投稿が見つかりません。")
		return
	}

	p, err := h.service.PostByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
