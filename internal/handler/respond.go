package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/hnlens/internal/model"
)

// errorResponse はAPIエラーレスポンスのボディ。
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError は指定メッセージのエラーレスポンスを書き込む。
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスへ写像する。
// 運用エラーは自身のステータスコードとメッセージで、それ以外は
// 500と定型メッセージで応答する。
func handleServiceError(w http.ResponseWriter, err error) {
	if ae, ok := model.AsAppError(err); ok && ae.Operational {
		writeError(w, ae.StatusCode, ae.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, model.GenericErrorMessage)
}

// queryInt はクエリパラメータを整数として読み取る。
// 未指定または数値として解釈できない場合はfallbackを返し、
// 数値だった場合はその値と明示指定フラグを返す。
func queryInt(r *http.Request, key string, fallback int) (value int, explicit bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, false
	}
	return n, true
}
