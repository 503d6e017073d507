// molds.go — обработчик /api/v1/molds.
package handlers

import (
	"net/http"

	apierrors "github.com/arturkryukov/moldtrack/internal/api/errors"
)

// moldResponse — позиция каталога пресс-форм в формате API.
type moldResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ListMolds — GET /api/v1/molds. Справочный каталог для формы заявки.
// Каталог советующий: заявка принимает любое непустое имя пресс-формы.
// Доступ: любой вошедший пользователь.
func (h *APIHandler) ListMolds(w http.ResponseWriter, r *http.Request) {
	molds, err := h.users.ListMolds(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения каталога пресс-форм", "error", err)
		apierrors.InternalError(w, "Ошибка получения каталога")
		return
	}

	items := make([]moldResponse, 0, len(molds))
	for _, m := range molds {
		items = append(items, moldResponse{ID: m.ID, Name: m.Name, Type: m.Type})
	}
	writeJSON(w, http.StatusOK, items)
}
