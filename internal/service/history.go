// history.go — история завершённых заявок и экспорт в CSV.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arturkryukov/moldtrack/internal/domain/model"
	"github.com/arturkryukov/moldtrack/internal/repository"
)

// CSVFilename — имя файла экспорта истории.
const CSVFilename = "historial_mantenimiento_honeywell.csv"

// csvHeader — заголовок экспорта, дословно как в исходной системе.
const csvHeader = "ID,Molde,Prioridad,Solicitado Por,Fecha Solicitud,Realizado Por,Duracion"

// HistoryService — история завершённых заявок.
type HistoryService struct {
	repo   repository.JobRepository
	logger *slog.Logger
}

// NewHistoryService создаёт сервис истории.
func NewHistoryService(repo repository.JobRepository, logger *slog.Logger) *HistoryService {
	return &HistoryService{
		repo:   repo,
		logger: logger.With(slog.String("component", "history_service")),
	}
}

// List возвращает завершённые заявки (EndTime по убыванию), отфильтрованные
// подстрокой query без учёта регистра по пресс-форме, исполнителю и дате
// создания. Пустой query возвращает всё.
func (s *HistoryService) List(ctx context.Context, query string) ([]*model.Job, error) {
	jobs, err := s.repo.ListCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение истории: %w", err)
	}
	return filterHistory(jobs, query), nil
}

// filterHistory оставляет заявки, подходящие под подстроку query.
func filterHistory(jobs []*model.Job, query string) []*model.Job {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return jobs
	}

	var result []*model.Job
	for _, job := range jobs {
		completedBy := ""
		if job.CompletedBy != nil {
			completedBy = *job.CompletedBy
		}
		if strings.Contains(strings.ToLower(job.Mold), query) ||
			strings.Contains(strings.ToLower(completedBy), query) ||
			strings.Contains(strings.ToLower(job.RequestDate), query) {
			result = append(result, job)
		}
	}
	return result
}

// ExportCSV строит CSV истории по тому же фильтру, что и List.
// Формат собирается вручную: исходная система писала строки дословно,
// с датой создания в кавычках (в ней есть запятая) и без экранирования
// остальных полей.
func (s *HistoryService) ExportCSV(ctx context.Context, query string) ([]byte, error) {
	jobs, err := s.List(ctx, query)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')

	for _, job := range jobs {
		completedBy := ""
		if job.CompletedBy != nil {
			completedBy = *job.CompletedBy
		}
		var duration int64
		if job.Duration != nil {
			duration = *job.Duration
		}

		fmt.Fprintf(&b, "%s,%s,%d,%s,%q,%s,%s\n",
			job.ID,
			strings.TrimSpace(job.Mold),
			job.Priority,
			strings.TrimSpace(job.RequestedBy),
			job.RequestDate,
			strings.TrimSpace(completedBy),
			FormatDuration(duration),
		)
	}

	s.logger.Info("Экспорт истории",
		slog.Int("rows", len(jobs)),
		slog.String("query", query),
	)
	return []byte(b.String()), nil
}

// FormatDuration форматирует простой в человекочитаемую строку:
// "3h 25m" при длительности от часа, иначе "25 min".
func FormatDuration(ms int64) string {
	minutes := ms / int64(time.Minute/time.Millisecond)
	hours := minutes / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	return fmt.Sprintf("%d min", minutes)
}
