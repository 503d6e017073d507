// Пакет service — бизнес-логика сервиса обслуживания пресс-форм.
// jobs.go — движок жизненного цикла заявок, журнал комментариев
// и отметки о повреждениях.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arturkryukov/moldtrack/internal/domain/model"
	"github.com/arturkryukov/moldtrack/internal/domain/roles"
	"github.com/arturkryukov/moldtrack/internal/repository"
	"github.com/arturkryukov/moldtrack/internal/watch"
)

// Префикс системного комментария-оповещения о повреждении.
const damageAlertPrefix = "⚠ REPORTE DE DAÑO: "

// JobService — движок жизненного цикла заявок.
// Валидирует входные данные, делегирует запись репозиторию и после
// каждой мутации публикует полный снимок заявок подписчикам hub.
type JobService struct {
	repo          repository.JobRepository
	hub           *watch.Hub
	maxImageBytes int
	logger        *slog.Logger
	// now — источник времени, подменяется в тестах.
	now func() time.Time
}

// NewJobService создаёт движок жизненного цикла заявок.
func NewJobService(repo repository.JobRepository, hub *watch.Hub, maxImageBytes int, logger *slog.Logger) *JobService {
	return &JobService{
		repo:          repo,
		hub:           hub,
		maxImageBytes: maxImageBytes,
		logger:        logger.With(slog.String("component", "job_service")),
		now:           time.Now,
	}
}

// List возвращает полный снимок заявок (startTime по убыванию).
func (s *JobService) List(ctx context.Context) ([]*model.Job, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка заявок: %w", err)
	}
	return jobs, nil
}

// Get возвращает заявку по идентификатору.
func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение заявки: %w", err)
	}
	return job, nil
}

// Create создаёт заявку в статусе Pending. Счётчик простоя стартует
// немедленно: StartTime — момент создания, не момент начала работ.
func (s *JobService) Create(ctx context.Context, mold string, priority int, requestedBy string) (*model.Job, error) {
	mold = strings.TrimSpace(mold)
	if mold == "" {
		return nil, fmt.Errorf("%w: наименование пресс-формы не заполнено", ErrValidation)
	}
	if priority < 1 || priority > 3 {
		return nil, fmt.Errorf("%w: приоритет вне диапазона 1..3", ErrValidation)
	}

	now := s.now()
	job := &model.Job{
		ID:          uuid.New().String(),
		Mold:        mold,
		Priority:    priority,
		Status:      model.StatusPending,
		RequestedBy: requestedBy,
		RequestDate: formatRequestDate(now),
		StartTime:   now.UnixMilli(),
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("создание заявки: %w", err)
	}

	s.logger.Info("Заявка создана",
		slog.String("job_id", job.ID),
		slog.String("mold", job.Mold),
		slog.Int("priority", job.Priority),
	)

	s.publish(ctx)
	return job, nil
}

// Start переводит заявку Pending → InProgress.
// Любой другой исходный статус — ErrWrongStatus: жизненный цикл
// движется только вперёд, повторный запуск не игнорируется.
func (s *JobService) Start(ctx context.Context, id string) error {
	if err := s.repo.MarkInProgress(ctx, id); err != nil {
		return s.transitionError("перевод заявки в работу", id, err)
	}

	s.logger.Info("Заявка взята в работу", slog.String("job_id", id))
	s.publish(ctx)
	return nil
}

// Complete переводит заявку InProgress → Done. Требует полного
// подтверждения контрольного списка; тройка (EndTime, Duration,
// CompletedBy) устанавливается атомарно одним UPDATE.
func (s *JobService) Complete(ctx context.Context, id string, cl model.Checklist, completedBy string) (*model.Job, error) {
	if !cl.Complete() {
		return nil, ErrChecklistIncomplete
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	endTime := s.now().UnixMilli()
	duration := endTime - job.StartTime

	if err := s.repo.Complete(ctx, id, endTime, duration, completedBy); err != nil {
		return nil, s.transitionError("завершение заявки", id, err)
	}

	s.logger.Info("Заявка завершена",
		slog.String("job_id", id),
		slog.String("completed_by", completedBy),
		slog.Int64("duration_ms", duration),
	)

	s.publish(ctx)
	return s.Get(ctx, id)
}

// Delete удаляет заявку вместе с журналом комментариев.
func (s *JobService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление заявки: %w", err)
	}

	s.logger.Info("Заявка удалена", slog.String("job_id", id))
	s.publish(ctx)
	return nil
}

// PostComment добавляет комментарий в журнал заявки.
// Текст обязателен; вложение — data-URL изображения ограниченного размера.
func (s *JobService) PostComment(ctx context.Context, jobID, author string, role roles.Role, text, image string) (*model.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: текст комментария пуст", ErrValidation)
	}
	if err := s.validateImage(image); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		ID:     uuid.New().String(),
		Author: author,
		Role:   role,
		Text:   text,
		Image:  image,
		Date:   formatCommentDate(s.now()),
	}

	if err := s.repo.AppendComment(ctx, jobID, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("добавление комментария: %w", err)
	}

	s.publish(ctx)
	return comment, nil
}

// FileDamageReport подаёт отметку о повреждении. Не более одной на
// заявку; вместе с отметкой в одной транзакции публикуется системный
// комментарий-оповещение (author=SISTEMA, role=Alerta).
func (s *JobService) FileDamageReport(ctx context.Context, jobID, description, image, reportedBy string) (*model.DamageReport, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: описание повреждения пусто", ErrValidation)
	}
	if err := s.validateImage(image); err != nil {
		return nil, err
	}

	now := s.now()
	report := &model.DamageReport{
		Text:       description,
		HasImage:   image != "",
		ReportedBy: reportedBy,
		Date:       formatCommentDate(now),
	}
	alert := &model.Comment{
		ID:     uuid.New().String(),
		Author: roles.SystemAuthor,
		Role:   roles.RoleAlerta,
		Text:   damageAlertPrefix + description,
		Image:  image,
		Date:   report.Date,
	}

	if err := s.repo.FileDamageReport(ctx, jobID, report, alert); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrConflict
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("подача отметки о повреждении: %w", err)
	}

	s.logger.Info("Отметка о повреждении принята",
		slog.String("job_id", jobID),
		slog.String("reported_by", reportedBy),
	)

	s.publish(ctx)
	return report, nil
}

// validateImage проверяет вложение: data-URL изображения, не больше лимита.
// Лимит применяется к исходному изображению, а не к его base64-представлению,
// которое на треть длиннее.
func (s *JobService) validateImage(image string) error {
	if image == "" {
		return nil
	}
	if !strings.HasPrefix(image, "data:image/") {
		return fmt.Errorf("%w: вложение должно быть изображением (data:image/...)", ErrValidation)
	}
	encoded := image
	if idx := strings.IndexByte(image, ','); idx >= 0 {
		encoded = image[idx+1:]
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > s.maxImageBytes {
		return fmt.Errorf("%w: изображение больше %d байт", ErrValidation, s.maxImageBytes)
	}
	return nil
}

// publish загружает актуальный снимок и рассылает его подписчикам.
// Ошибка загрузки не отменяет уже совершённую мутацию, только логируется.
func (s *JobService) publish(ctx context.Context) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Ошибка загрузки снимка для публикации", slog.String("error", err.Error()))
		return
	}
	s.hub.Broadcast(watch.Snapshot(jobs))
}

// transitionError переводит ошибки guarded UPDATE в ошибки сервисного слоя.
func (s *JobService) transitionError(op, id string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrWrongStatus):
		return ErrWrongStatus
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

// formatRequestDate форматирует дату создания заявки так, как её
// показывала исходная система (локальное время, с запятой).
func formatRequestDate(t time.Time) string {
	return t.Format("02/01/2006, 15:04")
}

// formatCommentDate форматирует отображаемую метку комментария.
func formatCommentDate(t time.Time) string {
	return t.Format("15:04 02/01/2006")
}
