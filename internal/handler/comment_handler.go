package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/hnlens/internal/comment"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	// CommentsPaginated はトップレベルコメントをページングし、
	// ページ窓のサブツリーだけを構築して返す。
	CommentsPaginated(ctx context.Context, postID, page, pageSize, maxDepth int) (*comment.PaginatedComments, error)
}

// CommentHandler はコメント取得のHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
	// maxDepth はツリー構築の深さ上限（設定値）。
	maxDepth int
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface, maxDepth int) *CommentHandler {
	return &CommentHandler{
		service:  service,
		maxDepth: maxDepth,
	}
}

// GetComments は投稿のコメントをページング付きで取得する。
// GET /api/comments?postId=123&page=1&pageSize=10
//
// postIdは必須の正の整数で、欠落や不正は400を返す。
func (h *CommentHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	postID, explicit := queryInt(r, "postId", 0)
	if !explicit || postID < 1 {
		writeError(w, http.StatusBadRequest, "postIdは正の整数で指定してください。")
		return
	}

	page, pageExplicit := queryInt(r, "page", comment.DefaultPage)
	if pageExplicit && page < 1 {
		writeError(w, http.StatusBadRequest, "pageは1以上で指定してください。")
		return
	}

	pageSize, sizeExplicit := queryInt(r, "pageSize", comment.DefaultPageSize)
	if sizeExplicit && (pageSize < 1 || pageSize > comment.MaxPageSize) {
		writeError(w, http.StatusBadRequest, "pageSizeは1から50の範囲で指定してください。")
		return
	}

	result, err := h.service.CommentsPaginated(r.Context(), postID, page, pageSize, h.maxDepth)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
