// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrWrongStatus — переход жизненного цикла из неподходящего статуса.
	ErrWrongStatus = errors.New("недопустимый статус заявки для перехода")
	// ErrChecklistIncomplete — контрольный список сдачи подтверждён не полностью.
	ErrChecklistIncomplete = errors.New("контрольный список подтверждён не полностью")

	// Ошибки входа. Тексты — пользовательские сообщения исходной системы,
	// отдаются клиенту дословно.

	// ErrUserDisabled — учётная запись отключена.
	ErrUserDisabled = errors.New("ID Deshabilitado. Contacte al administrador.")
	// ErrInvalidCredentials — неверная пара email/пароль. Сообщение
	// намеренно общее, без уточнения какая половина не совпала.
	ErrInvalidCredentials = errors.New("Credenciales no válidas.")
)
