// handler.go — основной обработчик API.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/arturkryukov/moldtrack/internal/auth"
	"github.com/arturkryukov/moldtrack/internal/domain/model"
	"github.com/arturkryukov/moldtrack/internal/service"
	"github.com/arturkryukov/moldtrack/internal/watch"
)

// APIHandler — основной обработчик API.
// Делегирует запросы в сервисный слой, авторизация по ролям — на его
// границе (движок жизненного цикла ролей не знает).
type APIHandler struct {
	health       *HealthHandler
	jobs         *service.JobService
	users        *service.UserService
	stats        *service.StatsService
	history      *service.HistoryService
	sessions     *auth.SessionManager
	hub          *watch.Hub
	sseKeepalive time.Duration
	logger       *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	jobs *service.JobService,
	users *service.UserService,
	stats *service.StatsService,
	history *service.HistoryService,
	sessions *auth.SessionManager,
	hub *watch.Hub,
	sseKeepalive time.Duration,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:       health,
		jobs:         jobs,
		users:        users,
		stats:        stats,
		history:      history,
		sessions:     sessions,
		hub:          hub,
		sseKeepalive: sseKeepalive,
		logger:       logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// --- API-представления доменных моделей ---

// jobResponse — заявка в формате API.
type jobResponse struct {
	ID           string                `json:"id"`
	Mold         string                `json:"mold"`
	Priority     int                   `json:"priority"`
	Status       string                `json:"status"`
	RequestedBy  string                `json:"requestedBy"`
	RequestDate  string                `json:"requestDate"`
	StartTime    int64                 `json:"startTime"`
	EndTime      *int64                `json:"endTime"`
	Duration     *int64                `json:"duration"`
	CompletedBy  *string               `json:"completedBy"`
	Comments     []commentResponse     `json:"comments"`
	DamageReport *damageReportResponse `json:"damageReport"`
}

// commentResponse — запись журнала в формате API.
type commentResponse struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Role   string `json:"role"`
	Text   string `json:"text"`
	Image  string `json:"image,omitempty"`
	Date   string `json:"date"`
}

// damageReportResponse — отметка о повреждении в формате API.
type damageReportResponse struct {
	Text       string `json:"text"`
	HasImage   bool   `json:"hasImage"`
	ReportedBy string `json:"reportedBy"`
	Date       string `json:"date"`
}

// userResponse — учётная запись в формате API. Пароль не отдаётся.
type userResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// mapJob конвертирует доменную заявку в API-представление.
func mapJob(job *model.Job) jobResponse {
	resp := jobResponse{
		ID:          job.ID,
		Mold:        job.Mold,
		Priority:    job.Priority,
		Status:      string(job.Status),
		RequestedBy: job.RequestedBy,
		RequestDate: job.RequestDate,
		StartTime:   job.StartTime,
		EndTime:     job.EndTime,
		Duration:    job.Duration,
		CompletedBy: job.CompletedBy,
		Comments:    make([]commentResponse, 0, len(job.Comments)),
	}

	for _, c := range job.Comments {
		resp.Comments = append(resp.Comments, commentResponse{
			ID:     c.ID,
			Author: c.Author,
			Role:   string(c.Role),
			Text:   c.Text,
			Image:  c.Image,
			Date:   c.Date,
		})
	}

	if job.DamageReport != nil {
		resp.DamageReport = &damageReportResponse{
			Text:       job.DamageReport.Text,
			HasImage:   job.DamageReport.HasImage,
			ReportedBy: job.DamageReport.ReportedBy,
			Date:       job.DamageReport.Date,
		}
	}

	return resp
}

// mapJobs конвертирует снимок заявок в API-представление.
func mapJobs(jobs []*model.Job) []jobResponse {
	result := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		result = append(result, mapJob(job))
	}
	return result
}

// mapUser конвертирует доменную учётную запись в API-представление.
func mapUser(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
