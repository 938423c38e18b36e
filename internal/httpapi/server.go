// Package httpapi отдаёт симулированный backend по HTTP: REST-маршруты на chi,
// поток событий по websocket и метрики prometheus.
package httpapi

import (
	"context"
	"net/http"

	"github.com/UkralStul/optimistic-updates/internal/dataloader"
	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/metrics"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/UkralStul/optimistic-updates/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Service - операции, которые сервер выставляет наружу. Реализуется remote.Backend.
type Service interface {
	ListPosts(ctx context.Context, limit, offset int) ([]domain.Post, error)
	CreatePost(ctx context.Context, in domain.NewPost) (domain.Post, error)
	LikePost(ctx context.Context, id string, liked bool) error
	DeletePost(ctx context.Context, id string) error
	SetCommentsEnabled(ctx context.Context, postID string, enabled bool) (domain.Post, error)

	LoadComments(ctx context.Context, postID string, req optimistic.PageRequest) ([]domain.Comment, error)
	CreateComment(ctx context.Context, in domain.NewComment) (domain.Comment, error)
	LikeComment(ctx context.Context, id string, liked bool) error
	DeleteComment(ctx context.Context, id string) error

	ListTodos(ctx context.Context) ([]domain.Todo, error)
	CreateTodo(ctx context.Context, in domain.NewTodo) (domain.Todo, error)
	ToggleTodo(ctx context.Context, id string, completed bool) error
	DeleteTodo(ctx context.Context, id string) error

	LoadItems(ctx context.Context, req optimistic.PageRequest) ([]domain.Item, error)
	CreateItem(ctx context.Context, in domain.NewItem) (domain.Item, error)
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error)
	LikeItem(ctx context.Context, id string, liked bool) error
	DeleteItem(ctx context.Context, id string) error

	ListMessages(ctx context.Context) ([]domain.Message, error)
	SendMessage(ctx context.Context, in domain.NewMessage) (domain.Exchange, error)
}

// Server - корневая структура HTTP-слоя.
// Она содержит все зависимости, которые нужны для обработки запросов.
type Server struct {
	svc     Service
	store   storage.Storage
	hub     *Hub
	metrics *metrics.Collector
	origins []string
	logger  *zap.Logger
}

// Config - зависимости сервера. Store нужен дата-лоадерам; Metrics и Hub необязательны.
type Config struct {
	Service Service
	Store   storage.Storage
	Hub     *Hub
	Metrics *metrics.Collector

	// AllowedOrigins - источники для CORS; пусто означает любой.
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewServer собирает сервер из зависимостей.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Hub == nil {
		cfg.Hub = NewHub(cfg.Logger)
	}
	return &Server{
		svc:     cfg.Service,
		store:   cfg.Store,
		hub:     cfg.Hub,
		metrics: cfg.Metrics,
		origins: cfg.AllowedOrigins,
		logger:  cfg.Logger,
	}
}

// Hub отдаёт хаб событий (его же backend использует как Publisher).
func (s *Server) Hub() *Hub { return s.hub }

// Router собирает маршруты.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/events", s.hub.ServeHTTP)

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", s.listPosts)
		r.Post("/", s.createPost)
		r.Delete("/{id}", s.deletePost)
		r.Post("/{id}/like", s.likePost)
		r.Post("/{id}/comments-enabled", s.setCommentsEnabled)
		// Ответы на страницу комментариев собираются одним батчем
		r.With(dataloader.Middleware(s.store)).Get("/{id}/comments", s.loadComments)
	})

	r.Route("/comments", func(r chi.Router) {
		r.Post("/", s.createComment)
		r.Post("/{id}/like", s.likeComment)
		r.Delete("/{id}", s.deleteComment)
	})

	r.Route("/todos", func(r chi.Router) {
		r.Get("/", s.listTodos)
		r.Post("/", s.createTodo)
		r.Post("/{id}/toggle", s.toggleTodo)
		r.Delete("/{id}", s.deleteTodo)
	})

	r.Route("/items", func(r chi.Router) {
		r.Get("/", s.loadItems)
		r.Post("/", s.createItem)
		r.Patch("/{id}", s.updateItem)
		r.Post("/{id}/like", s.likeItem)
		r.Delete("/{id}", s.deleteItem)
	})

	r.Route("/messages", func(r chi.Router) {
		r.Get("/", s.listMessages)
		r.Post("/", s.sendMessage)
	})

	return r
}
