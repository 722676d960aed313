package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondOK 以 200 发送 JSON 响应；业务错误也放在响应体中。
func RespondOK(w http.ResponseWriter, payload interface{}) {
	RespondJSON(w, http.StatusOK, payload)
}

// DecodeJSON 解析请求体到 dst，限制请求体大小。
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
