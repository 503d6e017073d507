// users.go — обработчики /api/v1/users endpoints.
// Администрирование справочника пользователей и статистика техников.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/moldtrack/internal/api/errors"
	"github.com/arturkryukov/moldtrack/internal/api/middleware"
	"github.com/arturkryukov/moldtrack/internal/domain/roles"
	"github.com/arturkryukov/moldtrack/internal/service"
)

// ListUsers — GET /api/v1/users.
// Доступ: Administrador.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения списка пользователей", "error", err)
		apierrors.InternalError(w, "Ошибка получения пользователей")
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, mapUser(u))
	}
	writeJSON(w, http.StatusOK, items)
}

// GetUser — GET /api/v1/users/{id}.
// Доступ: Administrador.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Пользователь не найден")
			return
		}
		h.logger.Error("Ошибка получения пользователя", "user_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения пользователя")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user))
}

// userRequest — тело запросов создания и обновления учётной записи.
type userRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Password string `json:"password"`
}

// CreateUser — POST /api/v1/users.
// Пустой пароль заменяется паролем по умолчанию.
// Доступ: Administrador.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	user, err := h.users.Create(r.Context(), req.Name, req.Email,
		roles.Role(req.Role), roles.UserStatus(req.Status), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrConflict):
			apierrors.Conflict(w, "Пользователь с таким email уже существует")
		default:
			h.logger.Error("Ошибка создания пользователя", "error", err)
			apierrors.InternalError(w, "Ошибка создания пользователя")
		}
		return
	}

	writeJSON(w, http.StatusCreated, mapUser(user))
}

// UpdateUser — PUT /api/v1/users/{id}.
// Обновляет имя, email, роль и статус. Пароль меняется отдельным endpoint.
// Доступ: Administrador.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	user, err := h.users.Update(r.Context(), id, req.Name, req.Email,
		roles.Role(req.Role), roles.UserStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Пользователь не найден")
		case errors.Is(err, service.ErrConflict):
			apierrors.Conflict(w, "Пользователь с таким email уже существует")
		default:
			h.logger.Error("Ошибка обновления пользователя", "user_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка обновления пользователя")
		}
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user))
}

// ChangeUserPassword — PUT /api/v1/users/{id}/password.
// Доступ: Administrador.
func (h *APIHandler) ChangeUserPassword(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.users.ChangePassword(r.Context(), id, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Пользователь не найден")
		default:
			h.logger.Error("Ошибка смены пароля", "user_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка смены пароля")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser — DELETE /api/v1/users/{id}.
// Доступ: Administrador.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Пользователь не найден")
			return
		}
		h.logger.Error("Ошибка удаления пользователя", "user_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка удаления пользователя")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetUserStats — GET /api/v1/users/{id}/stats.
// Накопительные счётчики завершённых заявок техника.
// Доступ: Administrador.
func (h *APIHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Пользователь не найден")
			return
		}
		h.logger.Error("Ошибка получения пользователя", "user_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения пользователя")
		return
	}

	// Завершения связаны с именем-снимком, не с UUID.
	stats, err := h.stats.UserStats(r.Context(), user.Name)
	if err != nil {
		h.logger.Error("Ошибка вычисления статистики", "user_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка вычисления статистики")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// requireAdmin проверяет роль Administrador; при отказе пишет 403.
func (h *APIHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	session := middleware.SessionFromContext(r.Context())
	if session == nil || !session.Role.IsAdmin() {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль Administrador")
		return false
	}
	return true
}
