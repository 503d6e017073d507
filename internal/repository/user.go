package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/moldtrack/internal/domain/model"
	"github.com/arturkryukov/moldtrack/internal/domain/roles"
)

// UserRepository — CRUD справочника пользователей и каталога пресс-форм.
type UserRepository interface {
	// Create сохраняет новую учётную запись. Дублирующийся email — ErrConflict.
	Create(ctx context.Context, u *model.User) error
	// GetByID возвращает учётную запись по UUID.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail возвращает учётную запись по email (логин при входе).
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List возвращает все учётные записи по времени создания.
	List(ctx context.Context) ([]*model.User, error)
	// Count возвращает количество учётных записей.
	Count(ctx context.Context) (int, error)
	// Update обновляет имя, email, роль и статус.
	Update(ctx context.Context, u *model.User) error
	// UpdatePassword меняет пароль учётной записи.
	UpdatePassword(ctx context.Context, id, password string) error
	// Delete удаляет учётную запись.
	Delete(ctx context.Context, id string) error
	// ListMolds возвращает каталог пресс-форм.
	ListMolds(ctx context.Context) ([]*model.Mold, error)
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, name, email, role, status, password, created_at, updated_at`

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (id, name, email, role, status, password)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.ID, u.Name, u.Email, u.Role, u.Status, u.Password,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.getOne(ctx, query, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return r.getOne(ctx, query, email)
}

func (r *userRepo) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) List(ctx context.Context) ([]*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at`, userColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return count, nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, role = $4, status = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		u.ID, u.Name, u.Email, u.Role, u.Status,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, password string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password = $2, updated_at = now() WHERE id = $1`, id, password)
	if err != nil {
		return fmt.Errorf("ошибка смены пароля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) ListMolds(ctx context.Context) ([]*model.Mold, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, type FROM molds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения каталога пресс-форм: %w", err)
	}
	defer rows.Close()

	var result []*model.Mold
	for rows.Next() {
		m := &model.Mold{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Type); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пресс-формы: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// scanUser сканирует строку пользователя (pgx.Row или pgx.Rows).
func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var role, status string
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &role, &status, &u.Password,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = roles.Role(role)
	u.Status = roles.UserStatus(status)
	return u, nil
}
