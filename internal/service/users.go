// users.go — справочник пользователей и вход в систему.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/arturkryukov/moldtrack/internal/domain/model"
	"github.com/arturkryukov/moldtrack/internal/domain/roles"
	"github.com/arturkryukov/moldtrack/internal/repository"
)

// DefaultPassword — пароль новой учётной записи, если администратор
// не задал свой. Значение унаследовано от исходной системы.
const DefaultPassword = "123"

// UserService — справочник пользователей: вход, CRUD, каталог пресс-форм.
// Пароли хранятся и сравниваются открытым текстом; это сознательное
// воспроизведение исходной системы, не упущение.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// NewUserService создаёт сервис справочника пользователей.
func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// Login проверяет пару email/пароль. Отключённая учётная запись
// отклоняется до проверки пароля со своим сообщением; несовпадение
// пароля и неизвестный email неразличимы для клиента.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("поиск пользователя при входе: %w", err)
	}

	if !user.IsActive() {
		s.logger.Warn("Отклонён вход отключённой учётной записи", slog.String("email", user.Email))
		return nil, ErrUserDisabled
	}

	if user.Password != password {
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("Вход выполнен",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// List возвращает все учётные записи.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка пользователей: %w", err)
	}
	return users, nil
}

// Get возвращает учётную запись по идентификатору.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return user, nil
}

// Create создаёт учётную запись. Пустой пароль заменяется DefaultPassword.
func (s *UserService) Create(ctx context.Context, name, email string, role roles.Role, status roles.UserStatus, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: имя и email обязательны", ErrValidation)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: недопустимая роль %q", ErrValidation, role)
	}
	if status == "" {
		status = roles.StatusActivo
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: недопустимый статус %q", ErrValidation, status)
	}
	if password == "" {
		password = DefaultPassword
	}

	user := &model.User{
		ID:       uuid.New().String(),
		Name:     name,
		Email:    email,
		Role:     role,
		Status:   status,
		Password: password,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}

	s.logger.Info("Пользователь создан",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Update обновляет имя, email, роль и статус учётной записи.
func (s *UserService) Update(ctx context.Context, id, name, email string, role roles.Role, status roles.UserStatus) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: имя и email обязательны", ErrValidation)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: недопустимая роль %q", ErrValidation, role)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: недопустимый статус %q", ErrValidation, status)
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Email = email
	user.Role = role
	user.Status = status

	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("обновление пользователя: %w", err)
	}

	return user, nil
}

// ChangePassword меняет пароль учётной записи.
func (s *UserService) ChangePassword(ctx context.Context, id, password string) error {
	if password == "" {
		return fmt.Errorf("%w: пароль пуст", ErrValidation)
	}

	if err := s.repo.UpdatePassword(ctx, id, password); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("смена пароля: %w", err)
	}

	s.logger.Info("Пароль изменён", slog.String("user_id", id))
	return nil
}

// Delete удаляет учётную запись.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление пользователя: %w", err)
	}

	s.logger.Info("Пользователь удалён", slog.String("user_id", id))
	return nil
}

// ListMolds возвращает справочный каталог пресс-форм.
func (s *UserService) ListMolds(ctx context.Context) ([]*model.Mold, error) {
	molds, err := s.repo.ListMolds(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение каталога пресс-форм: %w", err)
	}
	return molds, nil
}
