// history.go — обработчики /api/v1/history endpoints.
// Список завершённых заявок и экспорт в CSV.
package handlers

import (
	"net/http"

	apierrors "github.com/arturkryukov/moldtrack/internal/api/errors"
	"github.com/arturkryukov/moldtrack/internal/service"
)

// GetHistory — GET /api/v1/history?q=.
// Завершённые заявки по убыванию времени завершения, фильтр по
// подстроке без учёта регистра.
// Доступ: любой вошедший пользователь.
func (h *APIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.history.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("Ошибка получения истории", "error", err)
		apierrors.InternalError(w, "Ошибка получения истории")
		return
	}

	writeJSON(w, http.StatusOK, mapJobs(jobs))
}

// ExportHistory — GET /api/v1/history/export?q=.
// CSV с тем же фильтром, что и список.
func (h *APIHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	data, err := h.history.ExportCSV(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("Ошибка экспорта истории", "error", err)
		apierrors.InternalError(w, "Ошибка экспорта истории")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.CSVFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
