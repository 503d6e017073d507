package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/arturkryukov/moldtrack/internal/config"
	"github.com/arturkryukov/moldtrack/internal/database"
	"github.com/arturkryukov/moldtrack/internal/domain/model"
	"github.com/arturkryukov/moldtrack/internal/domain/roles"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool и функцию очистки.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("moldtrack_test"),
		postgres.WithUsername("moldtrack"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("MT_DB_HOST", host)
	os.Setenv("MT_DB_PORT", port.Port())
	os.Setenv("MT_DB_NAME", "moldtrack_test")
	os.Setenv("MT_DB_USER", "moldtrack")
	os.Setenv("MT_DB_PASSWORD", "test-password")
	os.Setenv("MT_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// newJob возвращает заявку в статусе Pending для вставки в тестах.
func newJob(mold string, startTime int64) *model.Job {
	return &model.Job{
		ID:          uuid.New().String(),
		Mold:        mold,
		Priority:    2,
		Status:      model.StatusPending,
		RequestedBy: "Supervisor Turno A",
		RequestDate: "15/03/2024, 08:00",
		StartTime:   startTime,
	}
}

// --- Тесты JobRepository ---

func TestJobLifecycleTransitions(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewJobRepository(pool)

	job := newJob("M-101", 1700000000000)

	// Create + GetByID
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	got, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Status != model.StatusPending {
		t.Errorf("Status = %q, хотели %q", got.Status, model.StatusPending)
	}
	if got.EndTime != nil || got.Duration != nil || got.CompletedBy != nil {
		t.Error("Поля завершения установлены для новой заявки")
	}

	// Complete до MarkInProgress — guarded UPDATE не находит строку
	err = repo.Complete(ctx, job.ID, 1700000100000, 100000, "Técnico Mantenimiento")
	if !errors.Is(err, ErrWrongStatus) {
		t.Errorf("Complete() из Pending: ожидали ErrWrongStatus, получили %v", err)
	}

	// MarkInProgress
	if err := repo.MarkInProgress(ctx, job.ID); err != nil {
		t.Fatalf("MarkInProgress() ошибка: %v", err)
	}

	// Повторный MarkInProgress — ErrWrongStatus
	err = repo.MarkInProgress(ctx, job.ID)
	if !errors.Is(err, ErrWrongStatus) {
		t.Errorf("Повторный MarkInProgress(): ожидали ErrWrongStatus, получили %v", err)
	}

	// Complete устанавливает тройку атомарно
	if err := repo.Complete(ctx, job.ID, 1700000100000, 100000, "Técnico Mantenimiento"); err != nil {
		t.Fatalf("Complete() ошибка: %v", err)
	}
	done, _ := repo.GetByID(ctx, job.ID)
	if done.Status != model.StatusDone {
		t.Errorf("Status = %q, хотели %q", done.Status, model.StatusDone)
	}
	if done.EndTime == nil || *done.EndTime != 1700000100000 {
		t.Errorf("EndTime = %v, хотели 1700000100000", done.EndTime)
	}
	if done.Duration == nil || *done.Duration != 100000 {
		t.Errorf("Duration = %v, хотели 100000", done.Duration)
	}
	if done.CompletedBy == nil || *done.CompletedBy != "Técnico Mantenimiento" {
		t.Errorf("CompletedBy = %v", done.CompletedBy)
	}

	// Завершённую заявку нельзя завершить повторно
	err = repo.Complete(ctx, job.ID, 1700000200000, 200000, "Otro Técnico")
	if !errors.Is(err, ErrWrongStatus) {
		t.Errorf("Повторный Complete(): ожидали ErrWrongStatus, получили %v", err)
	}

	// Переходы на несуществующей заявке — ErrNotFound
	if err := repo.MarkInProgress(ctx, uuid.New().String()); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkInProgress() по несуществующему ID: ожидали ErrNotFound, получили %v", err)
	}
}

func TestJobListOrdering(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewJobRepository(pool)

	older := newJob("M-101", 1700000000000)
	newer := newJob("M-102", 1700000500000)
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("Create(older): %v", err)
	}
	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("Create(newer): %v", err)
	}

	// List — по убыванию start_time_ms
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() вернул %d записей, хотели 2", len(list))
	}
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Error("List() не отсортирован по start_time_ms DESC")
	}

	// ListCompleted — только Done, по убыванию end_time_ms
	_ = repo.MarkInProgress(ctx, older.ID)
	if err := repo.Complete(ctx, older.ID, 1700000900000, 900000, "Técnico Mantenimiento"); err != nil {
		t.Fatalf("Complete(): %v", err)
	}

	completed, err := repo.ListCompleted(ctx)
	if err != nil {
		t.Fatalf("ListCompleted() ошибка: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != older.ID {
		t.Errorf("ListCompleted() вернул %d записей", len(completed))
	}
}

func TestCommentsAppendOnlyOrder(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewJobRepository(pool)

	job := newJob("M-103", 1700000000000)
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create(): %v", err)
	}

	// Три комментария подряд; порядок чтения — порядок вставки (seq)
	texts := []string{"Primer aviso", "Segundo aviso", "Tercer aviso"}
	for _, text := range texts {
		c := &model.Comment{
			ID:     uuid.New().String(),
			Author: "Supervisor Turno A",
			Role:   roles.RoleSupervisor,
			Text:   text,
			Date:   "08:15 15/03/2024",
		}
		if err := repo.AppendComment(ctx, job.ID, c); err != nil {
			t.Fatalf("AppendComment(%q): %v", text, err)
		}
	}

	got, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if len(got.Comments) != 3 {
		t.Fatalf("Комментариев %d, хотели 3", len(got.Comments))
	}
	for i, text := range texts {
		if got.Comments[i].Text != text {
			t.Errorf("Comments[%d].Text = %q, хотели %q", i, got.Comments[i].Text, text)
		}
	}

	// Комментарий к несуществующей заявке — ErrNotFound (FK)
	orphan := &model.Comment{ID: uuid.New().String(), Author: "X", Role: roles.RoleOperador, Text: "x", Date: "x"}
	if err := repo.AppendComment(ctx, uuid.New().String(), orphan); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendComment() к несуществующей заявке: ожидали ErrNotFound, получили %v", err)
	}
}

func TestDamageReportTransactional(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewJobRepository(pool)

	job := newJob("M-104", 1700000000000)
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create(): %v", err)
	}

	dr := &model.DamageReport{
		Text:       "Grieta en cavidad",
		HasImage:   false,
		ReportedBy: "Técnico Mantenimiento",
		Date:       "09:30 15/03/2024",
	}
	alert := &model.Comment{
		ID:     uuid.New().String(),
		Author: roles.SystemAuthor,
		Role:   roles.RoleAlerta,
		Text:   "⚠ REPORTE DE DAÑO: Grieta en cavidad",
		Date:   "09:30 15/03/2024",
	}

	if err := repo.FileDamageReport(ctx, job.ID, dr, alert); err != nil {
		t.Fatalf("FileDamageReport() ошибка: %v", err)
	}

	// Отметка и парный комментарий записаны вместе
	got, _ := repo.GetByID(ctx, job.ID)
	if got.DamageReport == nil || got.DamageReport.Text != "Grieta en cavidad" {
		t.Errorf("DamageReport = %+v", got.DamageReport)
	}
	if len(got.Comments) != 1 || got.Comments[0].Role != roles.RoleAlerta {
		t.Errorf("Комментарий-оповещение не записан: %+v", got.Comments)
	}

	// Повторная подача — ErrConflict, журнал не растёт
	alert2 := &model.Comment{ID: uuid.New().String(), Author: roles.SystemAuthor, Role: roles.RoleAlerta, Text: "x", Date: "x"}
	err := repo.FileDamageReport(ctx, job.ID, dr, alert2)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Повторный FileDamageReport(): ожидали ErrConflict, получили %v", err)
	}
	got2, _ := repo.GetByID(ctx, job.ID)
	if len(got2.Comments) != 1 {
		t.Errorf("Откат транзакции не сработал: комментариев %d, хотели 1", len(got2.Comments))
	}

	// Подача на несуществующую заявку — ErrNotFound
	if err := repo.FileDamageReport(ctx, uuid.New().String(), dr, alert2); !errors.Is(err, ErrNotFound) {
		t.Errorf("FileDamageReport() к несуществующей заявке: ожидали ErrNotFound, получили %v", err)
	}
}

func TestJobDeleteCascades(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewJobRepository(pool)

	job := newJob("M-101", 1700000000000)
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create(): %v", err)
	}
	c := &model.Comment{
		ID: uuid.New().String(), Author: "Supervisor Turno A",
		Role: roles.RoleSupervisor, Text: "nota", Date: "08:00 15/03/2024",
	}
	if err := repo.AppendComment(ctx, job.ID, c); err != nil {
		t.Fatalf("AppendComment(): %v", err)
	}

	if err := repo.Delete(ctx, job.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
	if err := repo.Delete(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Повторный Delete(): ожидали ErrNotFound, получили %v", err)
	}
}

// --- Тесты UserRepository ---

func TestUserCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	// Стартовые данные миграций уже на месте
	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if count < 3 {
		t.Errorf("Count() = %d, хотели не меньше 3 (стартовые записи)", count)
	}

	u := &model.User{
		ID:       uuid.New().String(),
		Name:     "Operador Nuevo",
		Email:    "nuevo@honeywell.com",
		Role:     roles.RoleOperador,
		Status:   roles.StatusActivo,
		Password: "123",
	}

	// Create заполняет created_at/updated_at через RETURNING
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// Дублирующийся email — ErrConflict
	dup := &model.User{
		ID: uuid.New().String(), Name: "Otro", Email: "nuevo@honeywell.com",
		Role: roles.RoleOperador, Status: roles.StatusActivo, Password: "123",
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Create() с дублирующимся email: ожидали ErrConflict, получили %v", err)
	}

	// GetByEmail — путь входа
	got, err := repo.GetByEmail(ctx, "nuevo@honeywell.com")
	if err != nil {
		t.Fatalf("GetByEmail() ошибка: %v", err)
	}
	if got.ID != u.ID || got.Password != "123" {
		t.Errorf("GetByEmail() вернул %+v", got)
	}

	// Update
	u.Name = "Operador Renombrado"
	u.Status = roles.StatusInactivo
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	got2, _ := repo.GetByID(ctx, u.ID)
	if got2.Name != "Operador Renombrado" || got2.Status != roles.StatusInactivo {
		t.Errorf("После Update: Name=%q, Status=%q", got2.Name, got2.Status)
	}

	// UpdatePassword
	if err := repo.UpdatePassword(ctx, u.ID, "nueva-clave"); err != nil {
		t.Fatalf("UpdatePassword() ошибка: %v", err)
	}
	got3, _ := repo.GetByID(ctx, u.ID)
	if got3.Password != "nueva-clave" {
		t.Errorf("Password = %q, хотели %q", got3.Password, "nueva-clave")
	}

	// Delete
	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
	if err := repo.UpdatePassword(ctx, u.ID, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePassword() удалённого: ожидали ErrNotFound, получили %v", err)
	}
}

func TestListMoldsCatalog(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	molds, err := repo.ListMolds(ctx)
	if err != nil {
		t.Fatalf("ListMolds() ошибка: %v", err)
	}
	if len(molds) != 4 {
		t.Fatalf("ListMolds() вернул %d записей, хотели 4 (стартовый каталог)", len(molds))
	}
	if molds[0].ID != "M-101" || molds[0].Name != "Molde Carcasa A1" {
		t.Errorf("Первая пресс-форма: %+v", molds[0])
	}
}
