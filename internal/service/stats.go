// stats.go — агрегаты производительности техников и KPI дашборда.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/arturkryukov/moldtrack/internal/domain/model"
	"github.com/arturkryukov/moldtrack/internal/repository"
)

// UserStats — количество завершённых заявок техника по накопительным
// окнам. Окна вложены: завершение сегодня учитывается во всех четырёх.
type UserStats struct {
	// Day — с начала локальных суток.
	Day int `json:"day"`
	// Week — с начала локальной недели (воскресенье 00:00).
	Week int `json:"week"`
	// Month — с начала локального месяца.
	Month int `json:"month"`
	// Total — за всё время.
	Total int `json:"total"`
}

// MoldCount — пресс-форма и число заявок по ней.
type MoldCount struct {
	Mold  string `json:"mold"`
	Count int    `json:"count"`
}

// DashboardStats — сводные показатели дашборда.
type DashboardStats struct {
	// TotalUsers — число учётных записей.
	TotalUsers int `json:"totalUsers"`
	// ActiveJobs — заявки не в статусе Done.
	ActiveJobs int `json:"activeJobs"`
	// AvgDowntimeMin — средний простой завершённой заявки, минуты.
	AvgDowntimeMin int `json:"avgDowntimeMin"`
	// TotalDowntimeMin — суммарный простой завершённых заявок, минуты.
	TotalDowntimeMin int `json:"totalDowntimeMin"`
	// TopMolds — до пяти пресс-форм по числу заявок, по убыванию.
	TopMolds []MoldCount `json:"topMolds"`
	// PriorityCounts — распределение заявок по приоритетам 1..3.
	PriorityCounts map[int]int `json:"priorityCounts"`
}

// StatsService — вычисление агрегатов по заявкам.
// Агрегаты считаются в Go по списку заявок: окна статистики зависят от
// локального времени и недельной границы, которые проще и надёжнее
// воспроизводить тут, чем в SQL.
type StatsService struct {
	jobRepo  repository.JobRepository
	userRepo repository.UserRepository
	logger   *slog.Logger
	// now — источник времени, подменяется в тестах.
	now func() time.Time
}

// NewStatsService создаёт сервис агрегатов.
func NewStatsService(jobRepo repository.JobRepository, userRepo repository.UserRepository, logger *slog.Logger) *StatsService {
	return &StatsService{
		jobRepo:  jobRepo,
		userRepo: userRepo,
		logger:   logger.With(slog.String("component", "stats_service")),
		now:      time.Now,
	}
}

// UserStats возвращает накопительные счётчики завершённых заявок техника.
// Заявка попадает в окно по моменту завершения (EndTime), не создания.
func (s *StatsService) UserStats(ctx context.Context, userName string) (*UserStats, error) {
	jobs, err := s.jobRepo.ListCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение завершённых заявок: %w", err)
	}
	return computeUserStats(jobs, userName, s.now()), nil
}

// computeUserStats считает окна относительно asOf в его локации.
func computeUserStats(jobs []*model.Job, userName string, asOf time.Time) *UserStats {
	dayStart := startOfDay(asOf)
	weekStart := startOfWeek(asOf)
	monthStart := startOfMonth(asOf)

	stats := &UserStats{}
	for _, job := range jobs {
		if job.CompletedBy == nil || *job.CompletedBy != userName || job.EndTime == nil {
			continue
		}
		end := time.UnixMilli(*job.EndTime).In(asOf.Location())

		stats.Total++
		if !end.Before(monthStart) {
			stats.Month++
		}
		if !end.Before(weekStart) {
			stats.Week++
		}
		if !end.Before(dayStart) {
			stats.Day++
		}
	}
	return stats
}

// Dashboard возвращает сводные показатели по всем заявкам.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	jobs, err := s.jobRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение заявок: %w", err)
	}
	totalUsers, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("подсчёт пользователей: %w", err)
	}

	stats := &DashboardStats{
		TotalUsers:     totalUsers,
		PriorityCounts: map[int]int{1: 0, 2: 0, 3: 0},
	}

	moldCounts := make(map[string]int)
	var completed int
	var downtimeMs int64
	for _, job := range jobs {
		moldCounts[job.Mold]++
		stats.PriorityCounts[job.Priority]++
		if job.IsCompleted() && job.Duration != nil {
			completed++
			downtimeMs += *job.Duration
		} else {
			stats.ActiveJobs++
		}
	}

	stats.TotalDowntimeMin = int(downtimeMs / int64(time.Minute/time.Millisecond))
	if completed > 0 {
		stats.AvgDowntimeMin = stats.TotalDowntimeMin / completed
	}
	stats.TopMolds = topMolds(moldCounts, 5)

	return stats, nil
}

// topMolds возвращает до limit пресс-форм по убыванию числа заявок.
// При равенстве — по имени, чтобы порядок был стабильным.
func topMolds(counts map[string]int, limit int) []MoldCount {
	result := make([]MoldCount, 0, len(counts))
	for mold, count := range counts {
		result = append(result, MoldCount{Mold: mold, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Mold < result[j].Mold
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// startOfDay — начало локальных суток момента t.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek — начало локальной недели момента t. Неделя начинается
// в воскресенье, как в исходной системе.
func startOfWeek(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}

// startOfMonth — начало локального месяца момента t.
func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
