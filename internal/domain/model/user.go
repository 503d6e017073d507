package model

import (
	"time"

	"github.com/arturkryukov/moldtrack/internal/domain/roles"
)

// User — учётная запись в справочнике пользователей.
// Хранится в таблице users, изменяется только администратором.
type User struct {
	// ID — UUID учётной записи.
	ID string
	// Name — полное имя. Денормализованно попадает в заявки
	// (RequestedBy/CompletedBy) как снимок на момент операции.
	Name string
	// Email — адрес электронной почты, логин при входе. Уникален.
	Email string
	// Role — роль пользователя.
	Role roles.Role
	// Status — Activo/Inactivo. Inactivo блокирует вход.
	Status roles.UserStatus
	// Password — пароль открытым текстом. Унаследовано от исходной
	// системы и воспроизводится как есть (вне рамок — чинить).
	Password string
	// CreatedAt — время создания записи.
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time
}

// IsActive сообщает, разрешён ли пользователю вход.
func (u *User) IsActive() bool {
	return u.Status == roles.StatusActivo
}

// Mold — позиция каталога пресс-форм. Справочный список для формы
// заявки, на допустимость значения Mold в заявке не влияет.
type Mold struct {
	// ID — код пресс-формы (например, M-101).
	ID string
	// Name — наименование.
	Name string
	// Type — тип пресс-формы (Inyección, Presión, ...).
	Type string
}
