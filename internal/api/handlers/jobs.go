// jobs.go — обработчики /api/v1/jobs endpoints.
// Жизненный цикл заявок, журнал комментариев и отметки о повреждениях.
// Ролевые проверки повторяют видимость кнопок исходного интерфейса.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/moldtrack/internal/api/errors"
	"github.com/arturkryukov/moldtrack/internal/api/middleware"
	"github.com/arturkryukov/moldtrack/internal/domain/model"
	"github.com/arturkryukov/moldtrack/internal/service"
)

// ListJobs — GET /api/v1/jobs. Полный снимок заявок.
// Доступ: любой вошедший пользователь.
func (h *APIHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.List(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения списка заявок", "error", err)
		apierrors.InternalError(w, "Ошибка получения заявок")
		return
	}

	writeJSON(w, http.StatusOK, mapJobs(jobs))
}

// GetJob — GET /api/v1/jobs/{id}.
func (h *APIHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Заявка не найдена")
			return
		}
		h.logger.Error("Ошибка получения заявки", "job_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения заявки")
		return
	}

	writeJSON(w, http.StatusOK, mapJob(job))
}

// createJobRequest — тело запроса создания заявки.
type createJobRequest struct {
	Mold     string `json:"mold"`
	Priority int    `json:"priority"`
}

// CreateJob — POST /api/v1/jobs.
// Доступ: Supervisor или Administrador.
func (h *APIHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil || !session.Role.CanRequestJobs() {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль Supervisor или Administrador")
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	job, err := h.jobs.Create(r.Context(), req.Mold, req.Priority, session.Name)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка создания заявки", "error", err)
		apierrors.InternalError(w, "Ошибка создания заявки")
		return
	}

	writeJSON(w, http.StatusCreated, mapJob(job))
}

// StartJob — POST /api/v1/jobs/{id}/start. Pending → InProgress.
// Доступ: Mantenimiento или Administrador.
func (h *APIHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil || !session.Role.CanOperateJobs() {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль Mantenimiento или Administrador")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.jobs.Start(r.Context(), id); err != nil {
		h.writeJobTransitionError(w, id, err)
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("Ошибка получения заявки после запуска", "job_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения заявки")
		return
	}
	writeJSON(w, http.StatusOK, mapJob(job))
}

// completeJobRequest — тело запроса завершения с контрольным списком.
type completeJobRequest struct {
	Cleaned     bool `json:"cleaned"`
	Greased     bool `json:"greased"`
	Connections bool `json:"connections"`
	Safety      bool `json:"safety"`
}

// CompleteJob — POST /api/v1/jobs/{id}/complete. InProgress → Done.
// Доступ: Mantenimiento или Administrador. Требует полного
// подтверждения контрольного списка.
func (h *APIHandler) CompleteJob(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil || !session.Role.CanOperateJobs() {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль Mantenimiento или Administrador")
		return
	}

	var req completeJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	checklist := model.Checklist{
		Cleaned:     req.Cleaned,
		Greased:     req.Greased,
		Connections: req.Connections,
		Safety:      req.Safety,
	}

	job, err := h.jobs.Complete(r.Context(), id, checklist, session.Name)
	if err != nil {
		if errors.Is(err, service.ErrChecklistIncomplete) {
			apierrors.ValidationError(w, "Контрольный список подтверждён не полностью")
			return
		}
		h.writeJobTransitionError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, mapJob(job))
}

// DeleteJob — DELETE /api/v1/jobs/{id}. Любой статус.
// Доступ: Administrador. Подтверждение удаления — забота клиента.
func (h *APIHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil || !session.Role.IsAdmin() {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль Administrador")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.jobs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Заявка не найдена")
			return
		}
		h.logger.Error("Ошибка удаления заявки", "job_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка удаления заявки")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// postCommentRequest — тело запроса добавления комментария.
type postCommentRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// PostComment — POST /api/v1/jobs/{id}/comments.
// Доступ: любой вошедший пользователь. Автор и роль берутся из сессии
// как снимок на момент публикации.
func (h *APIHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	var req postCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	comment, err := h.jobs.PostComment(r.Context(), id, session.Name, session.Role, req.Text, req.Image)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Заявка не найдена")
		default:
			h.logger.Error("Ошибка добавления комментария", "job_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка добавления комментария")
		}
		return
	}

	writeJSON(w, http.StatusCreated, commentResponse{
		ID:     comment.ID,
		Author: comment.Author,
		Role:   string(comment.Role),
		Text:   comment.Text,
		Image:  comment.Image,
		Date:   comment.Date,
	})
}

// damageReportRequest — тело запроса отметки о повреждении.
type damageReportRequest struct {
	Description string `json:"description"`
	Image       string `json:"image"`
}

// FileDamageReport — POST /api/v1/jobs/{id}/damage-report.
// Не более одной отметки на заявку; повторная подача — 409.
// Доступ: любой вошедший пользователь.
func (h *APIHandler) FileDamageReport(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	var req damageReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	report, err := h.jobs.FileDamageReport(r.Context(), id, req.Description, req.Image, session.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Заявка не найдена")
		case errors.Is(err, service.ErrConflict):
			apierrors.Conflict(w, "Отметка о повреждении уже подана")
		default:
			h.logger.Error("Ошибка подачи отметки о повреждении", "job_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка подачи отметки")
		}
		return
	}

	writeJSON(w, http.StatusCreated, damageReportResponse{
		Text:       report.Text,
		HasImage:   report.HasImage,
		ReportedBy: report.ReportedBy,
		Date:       report.Date,
	})
}

// writeJobTransitionError переводит ошибки переходов жизненного цикла
// в HTTP-ответы: 404 для неизвестной заявки, 409 для неподходящего статуса.
func (h *APIHandler) writeJobTransitionError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Заявка не найдена")
	case errors.Is(err, service.ErrWrongStatus):
		apierrors.Conflict(w, "Недопустимый статус заявки для перехода")
	default:
		h.logger.Error("Ошибка перехода жизненного цикла", "job_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка обработки заявки")
	}
}
