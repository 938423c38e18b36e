package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrorBody - тело ответа об ошибке.
type ErrorBody struct {
	Error     string `json:"error"`
	Op        string `json:"op,omitempty"`
	Retryable bool   `json:"retryable"`
}

// LikeBody, ToggleBody и EnabledBody - тела запросов на переключение флагов.
type LikeBody struct {
	Liked bool `json:"liked"`
}

type ToggleBody struct {
	Completed bool `json:"completed"`
}

type EnabledBody struct {
	Enabled bool `json:"enabled"`
}

// === Posts ===

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	l, o := queryInt(r, "limit", 10), queryInt(r, "offset", 0)
	posts, err := s.svc.ListPosts(r.Context(), l, o)
	s.reply(w, "listPosts", http.StatusOK, posts, err)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var in domain.NewPost
	if !s.decode(w, r, "createPost", &in) {
		return
	}
	post, err := s.svc.CreatePost(r.Context(), in)
	s.reply(w, "createPost", http.StatusCreated, post, err)
}

func (s *Server) likePost(w http.ResponseWriter, r *http.Request) {
	var in LikeBody
	if !s.decode(w, r, "likePost", &in) {
		return
	}
	s.noContent(w, "likePost", s.svc.LikePost(r.Context(), chi.URLParam(r, "id"), in.Liked))
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, "deletePost", s.svc.DeletePost(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) setCommentsEnabled(w http.ResponseWriter, r *http.Request) {
	var in EnabledBody
	if !s.decode(w, r, "toggleComments", &in) {
		return
	}
	post, err := s.svc.SetCommentsEnabled(r.Context(), chi.URLParam(r, "id"), in.Enabled)
	s.reply(w, "toggleComments", http.StatusOK, post, err)
}

// === Comments ===

func (s *Server) loadComments(w http.ResponseWriter, r *http.Request) {
	req := optimistic.PageRequest{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  queryInt(r, "limit", 10),
	}
	comments, err := s.svc.LoadComments(r.Context(), chi.URLParam(r, "id"), req)
	s.reply(w, "loadComments", http.StatusOK, comments, err)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	var in domain.NewComment
	if !s.decode(w, r, "createComment", &in) {
		return
	}
	c, err := s.svc.CreateComment(r.Context(), in)
	s.reply(w, "createComment", http.StatusCreated, c, err)
}

func (s *Server) likeComment(w http.ResponseWriter, r *http.Request) {
	var in LikeBody
	if !s.decode(w, r, "likeComment", &in) {
		return
	}
	s.noContent(w, "likeComment", s.svc.LikeComment(r.Context(), chi.URLParam(r, "id"), in.Liked))
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, "deleteComment", s.svc.DeleteComment(r.Context(), chi.URLParam(r, "id")))
}

// === Todos ===

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.svc.ListTodos(r.Context())
	s.reply(w, "listTodos", http.StatusOK, todos, err)
}

func (s *Server) createTodo(w http.ResponseWriter, r *http.Request) {
	var in domain.NewTodo
	if !s.decode(w, r, "createTodo", &in) {
		return
	}
	todo, err := s.svc.CreateTodo(r.Context(), in)
	s.reply(w, "createTodo", http.StatusCreated, todo, err)
}

func (s *Server) toggleTodo(w http.ResponseWriter, r *http.Request) {
	var in ToggleBody
	if !s.decode(w, r, "toggleTodo", &in) {
		return
	}
	s.noContent(w, "toggleTodo", s.svc.ToggleTodo(r.Context(), chi.URLParam(r, "id"), in.Completed))
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, "deleteTodo", s.svc.DeleteTodo(r.Context(), chi.URLParam(r, "id")))
}

// === Items ===

func (s *Server) loadItems(w http.ResponseWriter, r *http.Request) {
	req := optimistic.PageRequest{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 20),
	}
	items, err := s.svc.LoadItems(r.Context(), req)
	s.reply(w, "loadItems", http.StatusOK, items, err)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var in domain.NewItem
	if !s.decode(w, r, "createItem", &in) {
		return
	}
	it, err := s.svc.CreateItem(r.Context(), in)
	s.reply(w, "createItem", http.StatusCreated, it, err)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var patch domain.ItemPatch
	if !s.decode(w, r, "updateItem", &patch) {
		return
	}
	it, err := s.svc.UpdateItem(r.Context(), chi.URLParam(r, "id"), patch)
	s.reply(w, "updateItem", http.StatusOK, it, err)
}

func (s *Server) likeItem(w http.ResponseWriter, r *http.Request) {
	var in LikeBody
	if !s.decode(w, r, "likeItem", &in) {
		return
	}
	s.noContent(w, "likeItem", s.svc.LikeItem(r.Context(), chi.URLParam(r, "id"), in.Liked))
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, "deleteItem", s.svc.DeleteItem(r.Context(), chi.URLParam(r, "id")))
}

// === Chat ===

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.svc.ListMessages(r.Context())
	s.reply(w, "listMessages", http.StatusOK, msgs, err)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var in domain.NewMessage
	if !s.decode(w, r, "sendMessage", &in) {
		return
	}
	ex, err := s.svc.SendMessage(r.Context(), in)
	s.reply(w, "sendMessage", http.StatusOK, ex, err)
}

// === helpers ===

func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondError(w, op, &domain.ValidationError{Field: "body", Rule: "json"})
		return false
	}
	return true
}

func (s *Server) reply(w http.ResponseWriter, op string, status int, data any, err error) {
	if err != nil {
		s.respondError(w, op, err)
		return
	}
	s.respondJSON(w, status, data)
}

func (s *Server) noContent(w http.ResponseWriter, op string, err error) {
	if err != nil {
		s.respondError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, op string, err error) {
	failed := domain.AsOperationFailed(op, err)
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Info("operation failed", zap.String("op", failed.Op), zap.Error(err))
	}
	s.respondJSON(w, status, ErrorBody{Error: failed.Message, Op: failed.Op, Retryable: failed.Retryable})
}

// StatusFor сопоставляет ошибку с HTTP-статусом: ошибки ввода и отсутствующие
// записи - 4xx, сбои операции - 503.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCommentsDisabled):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}
