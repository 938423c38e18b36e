package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/remote"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// allResources - ключ подписки на события всех видов записей.
const allResources = "*"

const keepAlivePingInterval = 10 * time.Second

var _ remote.Publisher = (*Hub)(nil)

// Hub хранит каналы подписчиков на подтверждённые изменения.
type Hub struct {
	mu sync.RWMutex
	//          map[resource] map[subscriberID] channel
	subs map[string]map[string]chan remote.Event

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub - конструктор хаба.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs: make(map[string]map[string]chan remote.Event),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Publish рассылает событие подписчикам его вида и подписчикам на всё.
// Медленный подписчик событие пропускает, публикация не блокируется.
func (h *Hub) Publish(e remote.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, key := range []string{e.Resource, allResources} {
		for id, ch := range h.subs[key] {
			select {
			case ch <- e:
			default:
				h.logger.Debug("subscriber is lagging, event dropped",
					zap.String("subscriber", id), zap.String("resource", e.Resource))
			}
		}
	}
}

// Subscribe регистрирует подписчика до отмены ctx. Пустой resource означает все события.
func (h *Hub) Subscribe(ctx context.Context, resource string) <-chan remote.Event {
	if resource == "" {
		resource = allResources
	}
	ch := make(chan remote.Event, 16)
	subID := uuid.NewString()

	h.mu.Lock()
	if h.subs[resource] == nil {
		h.subs[resource] = make(map[string]chan remote.Event)
	}
	h.subs[resource][subID] = ch
	h.mu.Unlock()

	// Очистка при отключении клиента
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if subs, ok := h.subs[resource]; ok {
			delete(subs, subID)
			if len(subs) == 0 {
				delete(h.subs, resource)
			}
		}
		h.mu.Unlock()
	}()

	return ch
}

// Subscribers - число активных подписчиков.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.subs {
		n += len(subs)
	}
	return n
}

// ServeHTTP поднимает websocket и пишет в него события. ?resource=comment сужает поток.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	events := h.Subscribe(ctx, r.URL.Query().Get("resource"))

	// Читаем, чтобы заметить закрытие соединения клиентом
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(keepAlivePingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			if err := conn.WriteJSON(e); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
