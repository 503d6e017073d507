package service

import (
	"context"
	"sort"
	"sync"

	"github.com/arturkryukov/moldtrack/internal/domain/model"
	"github.com/arturkryukov/moldtrack/internal/repository"
)

// fakeJobRepo — потокобезопасная память вместо PostgreSQL.
// Воспроизводит контракт репозитория: сортировку списков, guarded
// переходы статусов и единственность отметки о повреждении.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*model.Job)}
}

func (f *fakeJobRepo) Create(_ context.Context, job *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[job.ID]; ok {
		return repository.ErrConflict
	}
	f.jobs[job.ID] = cloneJob(job)
	return nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneJob(job), nil
}

func (f *fakeJobRepo) List(_ context.Context) ([]*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*model.Job, 0, len(f.jobs))
	for _, job := range f.jobs {
		result = append(result, cloneJob(job))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime > result[j].StartTime
	})
	return result, nil
}

func (f *fakeJobRepo) ListCompleted(_ context.Context) ([]*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Job
	for _, job := range f.jobs {
		if job.Status == model.StatusDone {
			result = append(result, cloneJob(job))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return *result[i].EndTime > *result[j].EndTime
	})
	return result, nil
}

func (f *fakeJobRepo) MarkInProgress(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if job.Status != model.StatusPending {
		return repository.ErrWrongStatus
	}
	job.Status = model.StatusInProgress
	return nil
}

func (f *fakeJobRepo) Complete(_ context.Context, id string, endTime, duration int64, completedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if job.Status != model.StatusInProgress {
		return repository.ErrWrongStatus
	}
	job.Status = model.StatusDone
	job.EndTime = &endTime
	job.Duration = &duration
	job.CompletedBy = &completedBy
	return nil
}

func (f *fakeJobRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.jobs, id)
	return nil
}

func (f *fakeJobRepo) AppendComment(_ context.Context, jobID string, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	job.Comments = append(job.Comments, *c)
	return nil
}

func (f *fakeJobRepo) FileDamageReport(_ context.Context, jobID string, dr *model.DamageReport, alert *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	if job.DamageReport != nil {
		return repository.ErrConflict
	}
	report := *dr
	job.DamageReport = &report
	job.Comments = append(job.Comments, *alert)
	return nil
}

func cloneJob(job *model.Job) *model.Job {
	c := *job
	c.Comments = append([]model.Comment(nil), job.Comments...)
	if job.DamageReport != nil {
		dr := *job.DamageReport
		c.DamageReport = &dr
	}
	return &c
}

// fakeUserRepo — память вместо таблиц users и molds.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	molds []*model.Mold
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		clone := *u
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (f *fakeUserRepo) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range f.users {
		if id != u.ID && other.Email == u.Email {
			return repository.ErrConflict
		}
	}
	existing.Name = u.Name
	existing.Email = u.Email
	existing.Role = u.Role
	existing.Status = u.Status
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = password
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) ListMolds(_ context.Context) ([]*model.Mold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.Mold(nil), f.molds...), nil
}
