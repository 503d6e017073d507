// Пакет roles — закрытые перечисления ролей и статусов системы.
// Роли и статусы в исходной системе сравнивались как «сырые» строки;
// здесь они оформлены как типы с исчерпывающими проверками, чтобы
// новая роль не могла молча провалить сравнение.
package roles

// Role — роль пользователя в системе обслуживания пресс-форм.
type Role string

// Роли пользователей. Значения — исторические испанские строки,
// они же хранятся в БД и участвуют в протоколе API.
const (
	RoleAdministrador Role = "Administrador"
	RoleSupervisor    Role = "Supervisor"
	RoleMantenimiento Role = "Mantenimiento"
	RoleOperador      Role = "Operador"
)

// RoleAlerta — служебная «роль» системных комментариев-оповещений
// (записи о повреждениях). Пользователю назначена быть не может,
// но хранится в журнале комментариев наравне с остальными.
const RoleAlerta Role = "Alerta"

// SystemAuthor — автор системных комментариев-оповещений.
const SystemAuthor = "SISTEMA"

// validRoles — допустимые роли пользователей (без RoleAlerta).
var validRoles = map[Role]bool{
	RoleAdministrador: true,
	RoleSupervisor:    true,
	RoleMantenimiento: true,
	RoleOperador:      true,
}

// IsValid проверяет, является ли роль допустимой ролью пользователя.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanRequestJobs — может ли роль создавать заявки на смену пресс-формы.
// В исходной системе форма заявки видна Supervisor и Administrador.
func (r Role) CanRequestJobs() bool {
	switch r {
	case RoleSupervisor, RoleAdministrador:
		return true
	case RoleMantenimiento, RoleOperador, RoleAlerta:
		return false
	}
	return false
}

// CanOperateJobs — может ли роль брать заявки в работу и завершать их
// (кнопки «Atender»/«Finalizar» очереди обслуживания).
func (r Role) CanOperateJobs() bool {
	switch r {
	case RoleMantenimiento, RoleAdministrador:
		return true
	case RoleSupervisor, RoleOperador, RoleAlerta:
		return false
	}
	return false
}

// IsAdmin — удаление заявок и управление пользователями доступны
// только администратору.
func (r Role) IsAdmin() bool {
	return r == RoleAdministrador
}

// UserStatus — статус учётной записи.
type UserStatus string

// Статусы учётных записей.
const (
	StatusActivo   UserStatus = "Activo"
	StatusInactivo UserStatus = "Inactivo"
)

// IsValid проверяет, является ли строка допустимым статусом учётной записи.
func (s UserStatus) IsValid() bool {
	return s == StatusActivo || s == StatusInactivo
}
