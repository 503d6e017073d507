// Пакет watch — синхронизация открытых представлений с актуальным
// состоянием заявок. Явный реестр наблюдателей: подписка регистрируется
// при открытии представления и снимается при закрытии, никаких
// замыканий на состояние UI.
package watch

import (
	"log/slog"
	"sync"

	"github.com/arturkryukov/moldtrack/internal/domain/model"
)

// Snapshot — полный пересортированный набор заявок, публикуемый
// подписчикам при каждом изменении. Всегда полная публикация, не диффы;
// внутри снимка заявки отсортированы по start_time по убыванию.
type Snapshot []*model.Job

// FindJob возвращает заявку из снимка по идентификатору.
// Открытое представление (например, открытый журнал комментариев)
// перепривязывается к заявке по id в каждом новом снимке.
func (s Snapshot) FindJob(id string) *model.Job {
	for _, j := range s {
		if j.ID == id {
			return j
		}
	}
	return nil
}

// subscriber — один наблюдатель с буфером на один снимок.
type subscriber struct {
	ch chan Snapshot
}

// Hub — реестр подписчиков на снимки заявок.
// Медленный подписчик не задерживает публикацию: в буфере держится
// только последний снимок, устаревший вытесняется (последняя запись
// побеждает — промежуточные состояния наблюдателю не нужны).
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	logger *slog.Logger
}

// NewHub создаёт пустой реестр подписчиков.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[uint64]*subscriber),
		logger: logger.With(slog.String("component", "watch_hub")),
	}
}

// Subscribe регистрирует наблюдателя и возвращает канал снимков
// и функцию отписки. Отписку обязан вызвать владелец представления
// при его закрытии — иначе подписчик утечёт.
func (h *Hub) Subscribe() (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	sub := &subscriber{ch: make(chan Snapshot, 1)}
	h.subs[id] = sub

	h.logger.Debug("Подписчик зарегистрирован", slog.Uint64("subscriber_id", id))

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
			h.logger.Debug("Подписчик снят", slog.Uint64("subscriber_id", id))
		}
	}

	return sub.ch, unsubscribe
}

// Broadcast публикует снимок всем подписчикам.
// Непрочитанный предыдущий снимок вытесняется новым.
func (h *Hub) Broadcast(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		select {
		case sub.ch <- snap:
		default:
			// Буфер занят — забираем устаревший снимок и кладём свежий.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snap:
			default:
			}
		}
	}
}

// Subscribers возвращает число активных подписчиков.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
