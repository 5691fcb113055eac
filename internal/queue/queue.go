package queue

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/store"
)

// Update is a partial mutation applied to a queued job. Nil fields are left
// untouched.
type Update struct {
	Status         *domain.JobStatus
	Progress       *int
	ProviderJobID  *string
	ResultLocation *string
	ErrorMessage   *string
}

// Queue tracks generation jobs in memory, newest first, and mirrors its
// non-terminal entries into the blob store so a restart resumes where the
// user left off. Completed and failed jobs are session-only.
type Queue struct {
	mu       sync.RWMutex
	jobs     []*domain.Job
	index    map[string]*domain.Job
	activeID string

	store  store.BlobStore
	logger *infra.Logger
	now    func() time.Time
}

type persistedQueue struct {
	Jobs []domain.Job `json:"jobs"`
}

func New(blobs store.BlobStore, logger *infra.Logger) *Queue {
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Queue{
		index:  make(map[string]*domain.Job),
		store:  blobs,
		logger: logger,
		now:    time.Now,
	}
}

// Add inserts a job at the head of the queue. Identity, status, progress and
// creation time are assigned here; callers only describe the work.
func (q *Queue) Add(ctx context.Context, job domain.Job) domain.Job {
	q.mu.Lock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = domain.JobStatusPending
	job.Progress = 0
	job.CreatedAt = q.now().UTC()
	job.StartedAt = nil
	job.CompletedAt = nil
	job.ResultLocation = ""
	job.ErrorMessage = ""

	stored := job
	q.jobs = append([]*domain.Job{&stored}, q.jobs...)
	q.index[stored.ID] = &stored
	q.mu.Unlock()

	q.persist(ctx)
	return job
}

// Apply mutates the job with the given id. Unknown ids are a no-op with
// ok=false. Status changes must follow the job state machine; violations
// return domain.ErrIllegalTransition and leave the job untouched.
func (q *Queue) Apply(ctx context.Context, id string, upd Update) (domain.Job, bool, error) {
	q.mu.Lock()
	job, ok := q.index[id]
	if !ok {
		q.mu.Unlock()
		return domain.Job{}, false, nil
	}

	if upd.Status != nil && !job.Status.CanTransitionTo(*upd.Status) {
		from := job.Status
		q.mu.Unlock()
		q.logger.Warn().Str("job_id", id).Str("from", string(from)).Str("to", string(*upd.Status)).Msg("queue: rejected status transition")
		return domain.Job{}, true, domain.ErrIllegalTransition
	}

	if upd.Status != nil && *upd.Status != job.Status {
		q.applyStatus(job, *upd.Status)
	}
	if upd.Progress != nil {
		q.applyProgress(job, *upd.Progress)
	}
	if upd.ProviderJobID != nil {
		job.ProviderJobID = *upd.ProviderJobID
	}
	if upd.ResultLocation != nil {
		job.ResultLocation = *upd.ResultLocation
	}
	if upd.ErrorMessage != nil {
		job.ErrorMessage = *upd.ErrorMessage
	}

	snapshot := *job
	q.mu.Unlock()

	q.persist(ctx)
	return snapshot, true, nil
}

func (q *Queue) applyStatus(job *domain.Job, next domain.JobStatus) {
	now := q.now().UTC()
	switch next {
	case domain.JobStatusProcessing:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	case domain.JobStatusCompleted:
		job.CompletedAt = &now
	case domain.JobStatusFailed:
		job.CompletedAt = &now
	case domain.JobStatusPending:
		// Retry path: the job starts over with a fresh provider handle.
		job.Progress = 0
		job.ErrorMessage = ""
		job.ResultLocation = ""
		job.ProviderJobID = ""
		job.StartedAt = nil
		job.CompletedAt = nil
	}
	job.Status = next
}

// applyProgress clamps into [0,100] and never moves backwards; the reset to
// zero happens through the pending transition, not through progress updates.
func (q *Queue) applyProgress(job *domain.Job, progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	if progress > job.Progress {
		job.Progress = progress
	}
}

// Get returns a copy of the job with the given id.
func (q *Queue) Get(id string) (domain.Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.index[id]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// Items returns a snapshot of all jobs, newest first.
func (q *Queue) Items() []domain.Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	items := make([]domain.Job, len(q.jobs))
	for i, job := range q.jobs {
		items[i] = *job
	}
	return items
}

// ByStatus returns a snapshot of jobs currently in the given status.
func (q *Queue) ByStatus(status domain.JobStatus) []domain.Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var items []domain.Job
	for _, job := range q.jobs {
		if job.Status == status {
			items = append(items, *job)
		}
	}
	return items
}

// Remove deletes the job with the given id.
func (q *Queue) Remove(ctx context.Context, id string) bool {
	q.mu.Lock()
	removed := q.removeLocked(id)
	q.mu.Unlock()
	if removed {
		q.persist(ctx)
	}
	return removed
}

// RemoveMany deletes all listed jobs and reports how many were present.
func (q *Queue) RemoveMany(ctx context.Context, ids []string) int {
	q.mu.Lock()
	removed := 0
	for _, id := range ids {
		if q.removeLocked(id) {
			removed++
		}
	}
	q.mu.Unlock()
	if removed > 0 {
		q.persist(ctx)
	}
	return removed
}

func (q *Queue) removeLocked(id string) bool {
	if _, ok := q.index[id]; !ok {
		return false
	}
	delete(q.index, id)
	for i, job := range q.jobs {
		if job.ID == id {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			break
		}
	}
	if q.activeID == id {
		q.activeID = ""
	}
	return true
}

// ClearCompleted removes all completed jobs.
func (q *Queue) ClearCompleted(ctx context.Context) int {
	return q.clearWhere(ctx, func(j *domain.Job) bool { return j.Status == domain.JobStatusCompleted })
}

// ClearFailed removes all failed jobs.
func (q *Queue) ClearFailed(ctx context.Context) int {
	return q.clearWhere(ctx, func(j *domain.Job) bool { return j.Status == domain.JobStatusFailed })
}

// ClearAll empties the queue.
func (q *Queue) ClearAll(ctx context.Context) int {
	return q.clearWhere(ctx, func(*domain.Job) bool { return true })
}

func (q *Queue) clearWhere(ctx context.Context, match func(*domain.Job) bool) int {
	q.mu.Lock()
	kept := q.jobs[:0]
	removed := 0
	for _, job := range q.jobs {
		if match(job) {
			delete(q.index, job.ID)
			if q.activeID == job.ID {
				q.activeID = ""
			}
			removed++
			continue
		}
		kept = append(kept, job)
	}
	q.jobs = kept
	q.mu.Unlock()
	if removed > 0 {
		q.persist(ctx)
	}
	return removed
}

// SetActive marks the job the UI is currently focused on. An empty id or an
// unknown id clears the marker.
func (q *Queue) SetActive(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if id == "" {
		q.activeID = ""
		return
	}
	if _, ok := q.index[id]; ok {
		q.activeID = id
	} else {
		q.activeID = ""
	}
}

// Active returns the currently focused job, if any.
func (q *Queue) Active() (domain.Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.activeID == "" {
		return domain.Job{}, false
	}
	job, ok := q.index[q.activeID]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// Restore loads the persisted snapshot. Only pending and processing jobs
// are kept; anything else in the blob is discarded.
func (q *Queue) Restore(ctx context.Context) error {
	if q.store == nil {
		return nil
	}
	blob, err := q.store.Load(ctx, store.BlobQueue)
	if err != nil {
		return err
	}
	if blob == nil {
		return nil
	}
	var state persistedQueue
	if err := json.Unmarshal(blob, &state); err != nil {
		q.logger.Warn().Err(err).Msg("queue: discarding unreadable snapshot")
		return nil
	}

	q.mu.Lock()
	q.jobs = q.jobs[:0]
	q.index = make(map[string]*domain.Job, len(state.Jobs))
	for i := range state.Jobs {
		job := state.Jobs[i]
		if job.Status != domain.JobStatusPending && job.Status != domain.JobStatusProcessing {
			continue
		}
		stored := job
		q.jobs = append(q.jobs, &stored)
		q.index[stored.ID] = &stored
	}
	restored := len(q.jobs)
	q.mu.Unlock()

	q.logger.Info().Int("jobs", restored).Msg("queue: restored snapshot")
	return nil
}

// persist writes the pending/processing subset to the blob store. Failures
// are logged rather than surfaced; the in-memory queue stays authoritative.
func (q *Queue) persist(ctx context.Context) {
	if q.store == nil {
		return
	}
	q.mu.RLock()
	state := persistedQueue{Jobs: make([]domain.Job, 0, len(q.jobs))}
	for _, job := range q.jobs {
		if job.Status == domain.JobStatusPending || job.Status == domain.JobStatusProcessing {
			state.Jobs = append(state.Jobs, *job)
		}
	}
	q.mu.RUnlock()

	blob, err := json.Marshal(state)
	if err != nil {
		q.logger.Error().Err(err).Msg("queue: marshal snapshot")
		return
	}
	if err := q.store.Save(ctx, store.BlobQueue, blob); err != nil {
		q.logger.Warn().Err(err).Msg("queue: persist snapshot")
	}
}
