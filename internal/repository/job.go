package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arturkryukov/moldtrack/internal/domain/model"
	"github.com/arturkryukov/moldtrack/internal/domain/roles"
)

// JobRepository — доступ к заявкам, их журналу комментариев и отметкам
// о повреждениях. Переходы жизненного цикла реализованы как guarded
// UPDATE (WHERE status = <ожидаемый>), поэтому конкурирующие писатели
// не могут перескочить или откатить состояние.
type JobRepository interface {
	// Create сохраняет новую заявку.
	Create(ctx context.Context, job *model.Job) error
	// GetByID возвращает заявку с журналом и отметкой о повреждении.
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// List возвращает полный снимок заявок, отсортированный по
	// start_time_ms по убыванию, с журналами и отметками.
	List(ctx context.Context) ([]*model.Job, error)
	// ListCompleted возвращает завершённые заявки по убыванию end_time_ms.
	ListCompleted(ctx context.Context) ([]*model.Job, error)
	// MarkInProgress переводит Pending → InProgress.
	MarkInProgress(ctx context.Context, id string) error
	// Complete переводит InProgress → Done, атомарно устанавливая
	// тройку (end_time_ms, duration_ms, completed_by) одним UPDATE.
	Complete(ctx context.Context, id string, endTime, duration int64, completedBy string) error
	// Delete удаляет заявку вместе с журналом (каскад).
	Delete(ctx context.Context, id string) error
	// AppendComment добавляет комментарий в журнал заявки.
	// INSERT — атомарный примитив добавления: гонка read-modify-write
	// исходной системы здесь невозможна.
	AppendComment(ctx context.Context, jobID string, c *model.Comment) error
	// FileDamageReport в одной транзакции сохраняет отметку о повреждении
	// и парный системный комментарий-оповещение. Повторная подача — ErrConflict.
	FileDamageReport(ctx context.Context, jobID string, dr *model.DamageReport, alert *model.Comment) error
}

// jobRepo — реализация JobRepository.
type jobRepo struct {
	db  DBTX
	txr *TxRunner
}

// NewJobRepository создаёт репозиторий заявок.
func NewJobRepository(pool *pgxpool.Pool) JobRepository {
	return &jobRepo{db: pool, txr: NewTxRunner(pool)}
}

const jobColumns = `id, mold, priority, status, requested_by, request_date, start_time_ms, end_time_ms, duration_ms, completed_by`

func (r *jobRepo) Create(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (id, mold, priority, status, requested_by, request_date, start_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		job.ID, job.Mold, job.Priority, job.Status,
		job.RequestedBy, job.RequestDate, job.StartTime,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1`, jobColumns)

	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки: %w", err)
	}

	if err := r.attachDetails(ctx, []*model.Job{job}); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) List(ctx context.Context) ([]*model.Job, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM jobs
		ORDER BY start_time_ms DESC`, jobColumns)

	return r.queryJobs(ctx, query)
}

func (r *jobRepo) ListCompleted(ctx context.Context) ([]*model.Job, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM jobs
		WHERE status = 'Done'
		ORDER BY end_time_ms DESC`, jobColumns)

	return r.queryJobs(ctx, query)
}

// queryJobs выполняет запрос списка заявок и догружает журналы и отметки.
func (r *jobRepo) queryJobs(ctx context.Context, query string, args ...any) ([]*model.Job, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка заявок: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachDetails(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepo) MarkInProgress(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE jobs SET status = 'InProgress' WHERE id = $1 AND status = 'Pending'`, id)
	if err != nil {
		return fmt.Errorf("ошибка перехода заявки в работу: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.statusError(ctx, id)
	}
	return nil
}

func (r *jobRepo) Complete(ctx context.Context, id string, endTime, duration int64, completedBy string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET status = 'Done', end_time_ms = $2, duration_ms = $3, completed_by = $4
		WHERE id = $1 AND status = 'InProgress'`,
		id, endTime, duration, completedBy,
	)
	if err != nil {
		return fmt.Errorf("ошибка завершения заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.statusError(ctx, id)
	}
	return nil
}

func (r *jobRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *jobRepo) AppendComment(ctx context.Context, jobID string, c *model.Comment) error {
	err := insertComment(ctx, r.db, jobID, c)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка добавления комментария: %w", err)
	}
	return nil
}

func (r *jobRepo) FileDamageReport(ctx context.Context, jobID string, dr *model.DamageReport, alert *model.Comment) error {
	err := r.txr.RunInTx(ctx, func(tx pgx.Tx) error {
		// Сначала отметка: комментарий-оповещение не должен существовать
		// без установленного damage report.
		_, err := tx.Exec(ctx, `
			INSERT INTO damage_reports (job_id, body, has_image, reported_by, reported_at)
			VALUES ($1, $2, $3, $4, $5)`,
			jobID, dr.Text, dr.HasImage, dr.ReportedBy, dr.Date,
		)
		if err != nil {
			return err
		}
		return insertComment(ctx, tx, jobID, alert)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка сохранения отметки о повреждении: %w", err)
	}
	return nil
}

// insertComment добавляет комментарий через переданный DBTX (пул или транзакция).
func insertComment(ctx context.Context, db DBTX, jobID string, c *model.Comment) error {
	_, err := db.Exec(ctx, `
		INSERT INTO comments (id, job_id, author, role, body, image, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, jobID, c.Author, c.Role, c.Text, c.Image, c.Date,
	)
	return err
}

// statusError различает отсутствующую заявку и заявку в неподходящем
// статусе после guarded UPDATE, не нашедшего строку.
func (r *jobRepo) statusError(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("ошибка проверки заявки: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrWrongStatus
}

// attachDetails догружает журналы комментариев и отметки о повреждениях
// для набора заявок двумя запросами.
func (r *jobRepo) attachDetails(ctx context.Context, jobs []*model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	ids := make([]string, len(jobs))
	byID := make(map[string]*model.Job, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
		byID[j.ID] = j
	}

	// Комментарии в порядке вставки (seq).
	rows, err := r.db.Query(ctx, `
		SELECT job_id, id, author, role, body, image, posted_at
		FROM comments
		WHERE job_id = ANY($1)
		ORDER BY seq`, ids)
	if err != nil {
		return fmt.Errorf("ошибка получения комментариев: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var jobID string
		var c model.Comment
		var role string
		if err := rows.Scan(&jobID, &c.ID, &c.Author, &role, &c.Text, &c.Image, &c.Date); err != nil {
			return fmt.Errorf("ошибка сканирования комментария: %w", err)
		}
		c.Role = roles.Role(role)
		if job := byID[jobID]; job != nil {
			job.Comments = append(job.Comments, c)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	drRows, err := r.db.Query(ctx, `
		SELECT job_id, body, has_image, reported_by, reported_at
		FROM damage_reports
		WHERE job_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("ошибка получения отметок о повреждениях: %w", err)
	}
	defer drRows.Close()

	for drRows.Next() {
		var jobID string
		dr := &model.DamageReport{}
		if err := drRows.Scan(&jobID, &dr.Text, &dr.HasImage, &dr.ReportedBy, &dr.Date); err != nil {
			return fmt.Errorf("ошибка сканирования отметки о повреждении: %w", err)
		}
		if job := byID[jobID]; job != nil {
			job.DamageReport = dr
		}
	}
	return drRows.Err()
}

// scanJob сканирует строку заявки (pgx.Row или pgx.Rows).
func scanJob(row pgx.Row) (*model.Job, error) {
	job := &model.Job{}
	var status string
	err := row.Scan(
		&job.ID, &job.Mold, &job.Priority, &status,
		&job.RequestedBy, &job.RequestDate, &job.StartTime,
		&job.EndTime, &job.Duration, &job.CompletedBy,
	)
	if err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(status)
	return job, nil
}
