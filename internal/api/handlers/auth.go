// auth.go — обработчики /api/v1/auth endpoints.
// Вход, выход, текущая сессия и смена собственного пароля.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/arturkryukov/moldtrack/internal/api/errors"
	"github.com/arturkryukov/moldtrack/internal/api/middleware"
	"github.com/arturkryukov/moldtrack/internal/auth"
	"github.com/arturkryukov/moldtrack/internal/service"
)

// loginRequest — тело запроса входа.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse — данные текущей сессии.
type sessionResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Login — POST /api/v1/auth/login. Публичный endpoint.
// Проверяет email/пароль и выдаёт зашифрованный session cookie.
// Тексты ошибок отдаются клиенту дословно: отключённая запись и
// неверные данные различаются, неизвестный email и неверный пароль — нет.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserDisabled) || errors.Is(err, service.ErrInvalidCredentials) {
			apierrors.Unauthorized(w, err.Error())
			return
		}
		h.logger.Error("Ошибка входа", "error", err)
		apierrors.InternalError(w, "Ошибка входа")
		return
	}

	session := &auth.SessionData{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(h.sessions.TTL()).Unix(),
	}
	if err := h.sessions.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка выдачи session cookie", "error", err)
		apierrors.InternalError(w, "Ошибка создания сессии")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user))
}

// Logout — POST /api/v1/auth/logout. Сбрасывает session cookie.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me — GET /api/v1/auth/me. Возвращает данные текущей сессии.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		UserID: session.UserID,
		Name:   session.Name,
		Email:  session.Email,
		Role:   string(session.Role),
	})
}

// changePasswordRequest — тело запроса смены пароля.
type changePasswordRequest struct {
	Password string `json:"password"`
}

// ChangeOwnPassword — PUT /api/v1/auth/password.
// Меняет пароль текущего пользователя и переиздаёт session cookie.
func (h *APIHandler) ChangeOwnPassword(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if err := h.users.ChangePassword(r.Context(), session.UserID, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Пользователь не найден")
		default:
			h.logger.Error("Ошибка смены пароля", "user_id", session.UserID, "error", err)
			apierrors.InternalError(w, "Ошибка смены пароля")
		}
		return
	}

	// Сессия остаётся валидной, cookie переиздаётся с тем же сроком.
	if err := h.sessions.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка переиздания session cookie", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
