// events.go — SSE-поток снимков заявок.
// Каждое изменение заявок публикуется всем открытым представлениям
// полным снимком; клиент целиком замещает своё состояние.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/arturkryukov/moldtrack/internal/api/errors"
	"github.com/arturkryukov/moldtrack/internal/watch"
)

// StreamJobs — GET /api/v1/events/jobs.
// Отдаёт начальный снимок при подключении, дальше — снимок на каждое
// изменение. Keepalive-комментарии по тикеру держат соединение живым
// через прокси. Подписка снимается при закрытии запроса.
func (h *APIHandler) StreamJobs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)

	// Подписка раньше загрузки начального снимка: мутация, совершённая
	// между чтением и регистрацией, пришла бы в никуда, и подписчик
	// застрял бы на устаревшем состоянии до следующего изменения.
	// Лишний кадр безвреден — каждый кадр несёт полный снимок.
	ch, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	// Начальный снимок: поздний подписчик не ждёт первой мутации.
	jobs, err := h.jobs.List(r.Context())
	if err != nil {
		h.logger.Error("Ошибка загрузки начального снимка", "error", err)
		apierrors.InternalError(w, "Ошибка загрузки снимка")
		return
	}
	if err := writeSnapshotEvent(w, rc, watch.Snapshot(jobs)); err != nil {
		return
	}

	h.logger.Debug("SSE-подписчик подключён", slog.String("remote", r.RemoteAddr))

	keepalive := time.NewTicker(h.sseKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("SSE-подписчик отключён", slog.String("remote", r.RemoteAddr))
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSnapshotEvent(w, rc, snap); err != nil {
				return
			}
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// writeSnapshotEvent пишет один SSE-фрейм "event: jobs" со снимком.
func writeSnapshotEvent(w http.ResponseWriter, rc *http.ResponseController, snap watch.Snapshot) error {
	payload, err := json.Marshal(mapJobs(snap))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: jobs\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return rc.Flush()
}
