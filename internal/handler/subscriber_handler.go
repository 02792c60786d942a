package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/sleeplog/internal/middleware"
	"github.com/hitoshi/sleeplog/internal/model"
)

// SubscriberServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type SubscriberServiceInterface interface {
	// Register はユーザーを登録する。ユーザー名が重複する場合はConflictを返す。
	Register(ctx context.Context, username, email string) (*model.Subscriber, error)
	// Resolve はIDでユーザーを取得する。存在しない場合はNotFoundを返す。
	Resolve(ctx context.Context, id int64) (*model.Subscriber, error)
	// FindByUsername はユーザー名でユーザーを検索する。存在しない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Subscriber, error)
	// List は全ユーザーを返す。
	List(ctx context.Context) ([]*model.Subscriber, error)
}

// SubscriberHandler はユーザー管理のHTTPハンドラー。
type SubscriberHandler struct {
	service SubscriberServiceInterface
}

// NewSubscriberHandler はSubscriberHandlerを生成する。
func NewSubscriberHandler(service SubscriberServiceInterface) *SubscriberHandler {
	return &SubscriberHandler{
		service: service,
	}
}

// Create はユーザーを登録する。
// POST /api/users
func (h *SubscriberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSubscriberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := req.bind(); err != nil {
		handleServiceError(w, r, err)
		return
	}

	sub, err := h.service.Register(r.Context(), req.Username, req.Email)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusCreated, msgUserCreated, toSubscriberResponse(sub))
}

// List は全ユーザーを返す。
// GET /api/users
func (h *SubscriberHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]subscriberResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, toSubscriberResponse(s))
	}
	middleware.WriteSuccess(w, http.StatusOK, msgOK, resp)
}

// Get はIDでユーザーを取得する。
// GET /api/users/{userId}
func (h *SubscriberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userId")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	sub, err := h.service.Resolve(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, msgOK, toSubscriberResponse(sub))
}

// GetByUsername はユーザー名でユーザーを取得する。
// GET /api/users/by-username/{username}
func (h *SubscriberHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	sub, err := h.service.FindByUsername(r.Context(), username)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if sub == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewResourceNotFoundError())
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, msgOK, toSubscriberResponse(sub))
}
