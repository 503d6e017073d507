// stats.go — обработчик /api/v1/stats/dashboard.
package handlers

import (
	"net/http"

	apierrors "github.com/arturkryukov/moldtrack/internal/api/errors"
)

// GetDashboard — GET /api/v1/stats/dashboard. Сводные показатели:
// пользователи, активные заявки, простой, топ пресс-форм, приоритеты.
// Доступ: любой вошедший пользователь; отрисовка графиков — на клиенте.
func (h *APIHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("Ошибка вычисления показателей дашборда", "error", err)
		apierrors.InternalError(w, "Ошибка вычисления показателей")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
