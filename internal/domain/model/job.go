// Пакет model — доменные модели сервиса обслуживания пресс-форм.
package model

import "github.com/arturkryukov/moldtrack/internal/domain/roles"

// JobStatus — статус жизненного цикла заявки на смену пресс-формы.
// Переходы только вперёд: Pending → InProgress → Done.
type JobStatus string

const (
	// StatusPending — заявка создана, ожидает обслуживания. Счётчик простоя уже идёт.
	StatusPending JobStatus = "Pending"
	// StatusInProgress — техник взял заявку в работу.
	StatusInProgress JobStatus = "InProgress"
	// StatusDone — работа завершена, зафиксирована длительность простоя. Необратимо.
	StatusDone JobStatus = "Done"
)

// Job — заявка на смену/обслуживание пресс-формы, единица учёта простоя.
type Job struct {
	// ID — UUID заявки.
	ID string
	// Mold — наименование пресс-формы.
	Mold string
	// Priority — приоритет 1..3, 1 — самый срочный. Только для сортировки
	// и визуального выделения, планировщиком не является.
	Priority int
	// Status — текущий статус жизненного цикла.
	Status JobStatus
	// RequestedBy — имя заявителя на момент создания (снимок, не ссылка).
	RequestedBy string
	// RequestDate — человекочитаемая дата создания.
	RequestDate string
	// StartTime — момент создания в миллисекундах Unix.
	// Точка отсчёта простоя: часы идут с создания заявки, не с начала работ.
	StartTime int64
	// EndTime — момент завершения в миллисекундах Unix. nil до завершения.
	EndTime *int64
	// Duration — EndTime − StartTime в миллисекундах. nil до завершения.
	Duration *int64
	// CompletedBy — имя завершившего работу техника. nil до завершения.
	CompletedBy *string
	// Comments — журнал комментариев, только добавление, порядок вставки значим.
	Comments []Comment
	// DamageReport — одноразовая отметка о повреждении при приёмке. nil если не подана.
	DamageReport *DamageReport
}

// IsCompleted сообщает, завершена ли заявка. Инвариант: статус Done
// эквивалентен одновременной установке EndTime, Duration и CompletedBy.
func (j *Job) IsCompleted() bool {
	return j.Status == StatusDone
}

// Comment — запись журнала заявки: заметка пользователя или системное
// оповещение (roles.RoleAlerta). Хранятся одинаково, различаются ролью.
type Comment struct {
	// ID — UUID комментария.
	ID string
	// Author — имя автора на момент публикации.
	Author string
	// Role — роль автора на момент публикации (снимок, не живой поиск).
	Role roles.Role
	// Text — текст комментария.
	Text string
	// Image — вложение-изображение как data-URL, пустая строка если нет.
	Image string
	// Date — отображаемая метка времени публикации.
	Date string
}

// DamageReport — отметка о повреждении, принятая при приёмке пресс-формы.
// Подаётся не более одного раза на заявку; после установки неизменяема.
type DamageReport struct {
	// Text — описание дефекта.
	Text string
	// HasImage — приложено ли фото. Само изображение живёт в парном
	// комментарии-оповещении, здесь не дублируется.
	HasImage bool
	// ReportedBy — имя подавшего отметку.
	ReportedBy string
	// Date — отображаемая метка времени подачи.
	Date string
}

// Checklist — четырёхпунктовый контрольный список сдачи пресс-формы.
// Завершение заявки возможно только при всех четырёх подтверждениях.
type Checklist struct {
	// Cleaned — очистка поверхности выполнена.
	Cleaned bool
	// Greased — точки смазки проверены.
	Greased bool
	// Connections — гидравлические соединения без утечек.
	Connections bool
	// Safety — предохранительный замок снят.
	Safety bool
}

// Complete сообщает, подтверждены ли все пункты контрольного списка.
func (c Checklist) Complete() bool {
	return c.Cleaned && c.Greased && c.Connections && c.Safety
}
