package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

var (
	errBadRequestBody = errors.New("無効なリクエスト形式です。")
	errInvalidRunID   = errors.New("無効な実行 ID です。")
	errMissingAPIKey  = errors.New("API キーを指定してください")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	Message string            `json:"message"`
	Tag     string            `json:"tag,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエストの内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証に失敗しました。"
	case http.StatusNotFound:
		return "リソースが見つかりません。"
	case http.StatusUnprocessableEntity:
		return "スケジュールを計算できませんでした。"
	case http.StatusGatewayTimeout:
		return "スケジュール計算がタイムアウトしました。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}
