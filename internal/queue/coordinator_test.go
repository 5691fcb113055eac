package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/provider"
	"genstudio/internal/store"
)

type fakeGateway struct {
	mu         sync.Mutex
	submits    []provider.VideoRequest
	submitID   string
	submitErr  error
	polls      []provider.VideoPoll
	pollErr    error
	pollCalls  int
	lastPollID string
}

func (g *fakeGateway) GenerateImages(context.Context, provider.GenerateRequest) ([]provider.ImageOutput, error) {
	return nil, domain.ErrUnsupportedOperation
}

func (g *fakeGateway) EditImage(context.Context, provider.EditRequest) ([]provider.ImageOutput, error) {
	return nil, domain.ErrUnsupportedOperation
}

func (g *fakeGateway) SubmitVideo(_ context.Context, req provider.VideoRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submits = append(g.submits, req)
	if g.submitErr != nil {
		return "", g.submitErr
	}
	if g.submitID == "" {
		return "req-1", nil
	}
	return g.submitID, nil
}

func (g *fakeGateway) VideoStatus(_ context.Context, providerJobID string) (provider.VideoPoll, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastPollID = providerJobID
	if g.pollErr != nil {
		return provider.VideoPoll{}, g.pollErr
	}
	idx := g.pollCalls
	g.pollCalls++
	if idx >= len(g.polls) {
		idx = len(g.polls) - 1
	}
	if idx < 0 {
		return provider.VideoPoll{Status: domain.JobStatusProcessing}, nil
	}
	return g.polls[idx], nil
}

func (g *fakeGateway) submitCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.submits)
}

type fakeSink struct {
	mu    sync.Mutex
	media []domain.GeneratedMedia
	err   error
}

func (s *fakeSink) Publish(_ context.Context, media domain.GeneratedMedia) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.media = append(s.media, media)
	return nil
}

func (s *fakeSink) items() []domain.GeneratedMedia {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.GeneratedMedia, len(s.media))
	copy(out, s.media)
	return out
}

// newTestCoordinator wires a coordinator whose ticker never fires, so tests
// drive polling deterministically through pollOnce.
func newTestCoordinator(t *testing.T, gw *fakeGateway, sink *fakeSink) (*Coordinator, *Queue) {
	t.Helper()
	q := New(store.NewMemoryStore(), nil)
	registry := provider.NewRegistry()
	registry.Register(provider.NameXAI, gw)
	c := NewCoordinator(CoordinatorOptions{
		Queue:    q,
		Registry: registry,
		Sink:     sink,
		Interval: time.Hour,
	})
	t.Cleanup(c.Close)
	return c, q
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSubmitMovesJobToProcessing(t *testing.T) {
	gw := &fakeGateway{submitID: "req-7"}
	c, q := newTestCoordinator(t, gw, &fakeSink{})

	job, err := c.Submit(context.Background(), SubmitRequest{
		Prompt:      "a dog running",
		Model:       "grok",
		AspectRatio: "16:9",
		Duration:    5,
		Resolution:  "720p",
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %q, want processing", job.Status)
	}
	if job.ProviderJobID != "req-7" {
		t.Fatalf("provider job id = %q, want req-7", job.ProviderJobID)
	}
	if len(q.Items()) != 1 {
		t.Fatalf("queue size = %d, want 1", len(q.Items()))
	}
	if gw.submits[0].Duration != 5 || gw.submits[0].Resolution != "720p" {
		t.Fatalf("submission dropped parameters: %+v", gw.submits[0])
	}
}

func TestSubmitMissingPrompt(t *testing.T) {
	c, q := newTestCoordinator(t, &fakeGateway{}, &fakeSink{})
	if _, err := c.Submit(context.Background(), SubmitRequest{Model: "grok"}); !errors.Is(err, domain.ErrMissingPrompt) {
		t.Fatalf("expected ErrMissingPrompt, got %v", err)
	}
	if len(q.Items()) != 0 {
		t.Fatal("invalid submission enqueued a job")
	}
}

func TestSubmitUnsupportedModel(t *testing.T) {
	c, q := newTestCoordinator(t, &fakeGateway{}, &fakeSink{})
	if _, err := c.Submit(context.Background(), SubmitRequest{Prompt: "x", Model: "dall-e"}); !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
	if len(q.Items()) != 0 {
		t.Fatal("unsupported submission enqueued a job")
	}
}

func TestSubmitProviderRejection(t *testing.T) {
	gw := &fakeGateway{submitErr: errors.New("quota exceeded")}
	c, q := newTestCoordinator(t, gw, &fakeSink{})

	job, err := c.Submit(context.Background(), SubmitRequest{Prompt: "x", Model: "grok"})
	if err == nil {
		t.Fatal("expected submission error")
	}
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %q, want failed", job.Status)
	}
	if job.ErrorMessage == "" {
		t.Fatal("expected error message on failed job")
	}
	got, ok := q.Get(job.ID)
	if !ok || got.Status != domain.JobStatusFailed {
		t.Fatal("failed job not recorded in queue")
	}
}

func TestPollingCompletesAndPublishes(t *testing.T) {
	gw := &fakeGateway{polls: []provider.VideoPoll{
		{Status: domain.JobStatusProcessing},
		{Status: domain.JobStatusProcessing},
		{Status: domain.JobStatusProcessing},
		{Status: domain.JobStatusCompleted, Location: "https://x/video.mp4"},
	}}
	sink := &fakeSink{}
	c, q := newTestCoordinator(t, gw, sink)
	ctx := context.Background()

	job, err := c.Submit(ctx, SubmitRequest{Prompt: "a dog running", Model: "grok"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if done := c.pollOnce(ctx, job.ID); done {
			t.Fatalf("poll %d finished early", i)
		}
		got, _ := q.Get(job.ID)
		want := i * progressStep
		if got.Progress != want {
			t.Fatalf("after poll %d progress = %d, want %d", i, got.Progress, want)
		}
	}

	if done := c.pollOnce(ctx, job.ID); !done {
		t.Fatal("completed poll did not finish the loop")
	}
	got, _ := q.Get(job.ID)
	if got.Status != domain.JobStatusCompleted || got.Progress != 100 {
		t.Fatalf("unexpected final job: %+v", got)
	}
	if got.ResultLocation != "https://x/video.mp4" {
		t.Fatalf("result location = %q", got.ResultLocation)
	}
	published := sink.items()
	if len(published) != 1 {
		t.Fatalf("sink entries = %d, want 1", len(published))
	}
	if published[0].ID != job.ID {
		t.Fatalf("sink id = %q, want job id %q", published[0].ID, job.ID)
	}
	if published[0].Kind != domain.MediaKindVideo {
		t.Fatalf("sink kind = %q, want video", published[0].Kind)
	}
}

func TestProgressCapsBeforeTerminalSignal(t *testing.T) {
	gw := &fakeGateway{polls: []provider.VideoPoll{{Status: domain.JobStatusProcessing}}}
	c, q := newTestCoordinator(t, gw, &fakeSink{})
	ctx := context.Background()

	job, err := c.Submit(ctx, SubmitRequest{Prompt: "x", Model: "grok"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	for i := 0; i < 30; i++ {
		if done := c.pollOnce(ctx, job.ID); done {
			t.Fatalf("poll %d finished early", i)
		}
	}
	got, _ := q.Get(job.ID)
	if got.Progress != progressCeiling {
		t.Fatalf("progress = %d, want cap %d", got.Progress, progressCeiling)
	}
	if got.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %q, want processing", got.Status)
	}
}

func TestPollFailureMarksJobFailed(t *testing.T) {
	gw := &fakeGateway{polls: []provider.VideoPoll{
		{Status: domain.JobStatusFailed, Error: "quota exceeded"},
	}}
	sink := &fakeSink{}
	c, q := newTestCoordinator(t, gw, sink)
	ctx := context.Background()

	job, err := c.Submit(ctx, SubmitRequest{Prompt: "x", Model: "grok"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if done := c.pollOnce(ctx, job.ID); !done {
		t.Fatal("failed poll did not finish the loop")
	}
	got, _ := q.Get(job.ID)
	if got.Status != domain.JobStatusFailed || got.ErrorMessage != "quota exceeded" {
		t.Fatalf("unexpected job: %+v", got)
	}
	if len(sink.items()) != 0 {
		t.Fatal("failed job reached the sink")
	}
}

func TestPollErrorKeepsCaughtMessage(t *testing.T) {
	gw := &fakeGateway{pollErr: errors.New("connection reset by peer")}
	c, q := newTestCoordinator(t, gw, &fakeSink{})
	ctx := context.Background()

	job, err := c.Submit(ctx, SubmitRequest{Prompt: "x", Model: "grok"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if done := c.pollOnce(ctx, job.ID); !done {
		t.Fatal("errored poll did not finish the loop")
	}
	got, _ := q.Get(job.ID)
	if got.Status != domain.JobStatusFailed {
		t.Fatalf("unexpected job: %+v", got)
	}
	if got.ErrorMessage != "connection reset by peer" {
		t.Fatalf("error message = %q, want the caught error's message", got.ErrorMessage)
	}
}

func TestCompletedWithoutLocationKeepsPolling(t *testing.T) {
	gw := &fakeGateway{polls: []provider.VideoPoll{
		{Status: domain.JobStatusCompleted},
		{Status: domain.JobStatusCompleted, Location: "https://x/late.mp4"},
	}}
	sink := &fakeSink{}
	c, q := newTestCoordinator(t, gw, sink)
	ctx := context.Background()

	job, err := c.Submit(ctx, SubmitRequest{Prompt: "x", Model: "grok"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if done := c.pollOnce(ctx, job.ID); done {
		t.Fatal("completed-without-url poll terminated the loop")
	}
	got, _ := q.Get(job.ID)
	if got.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %q, want processing", got.Status)
	}
	if done := c.pollOnce(ctx, job.ID); !done {
		t.Fatal("expected completion once the url arrived")
	}
	got, _ = q.Get(job.ID)
	if got.ResultLocation != "https://x/late.mp4" {
		t.Fatalf("result location = %q", got.ResultLocation)
	}
	if len(sink.items()) != 1 {
		t.Fatalf("sink entries = %d, want 1", len(sink.items()))
	}
}

func TestRetryResubmitsOriginalParameters(t *testing.T) {
	gw := &fakeGateway{submitErr: errors.New("temporarily unavailable")}
	c, q := newTestCoordinator(t, gw, &fakeSink{})
	ctx := context.Background()

	job, err := c.Submit(ctx, SubmitRequest{
		Prompt:      "a dog running",
		Model:       "grok",
		AspectRatio: "16:9",
		Duration:    5,
		Resolution:  "720p",
	})
	if err == nil {
		t.Fatal("expected initial submission failure")
	}

	gw.mu.Lock()
	gw.submitErr = nil
	gw.mu.Unlock()

	retried, err := c.Retry(ctx, job.ID)
	if err != nil {
		t.Fatalf("Retry error: %v", err)
	}
	if retried.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %q, want processing", retried.Status)
	}
	if retried.ErrorMessage != "" || retried.Progress != 0 {
		t.Fatalf("retry did not reset job: %+v", retried)
	}
	if gw.submitCount() != 2 {
		t.Fatalf("submissions = %d, want 2", gw.submitCount())
	}
	second := gw.submits[1]
	if second.Prompt != "a dog running" || second.Duration != 5 || second.Resolution != "720p" {
		t.Fatalf("retry changed parameters: %+v", second)
	}
	got, _ := q.Get(job.ID)
	if got.Status != domain.JobStatusProcessing {
		t.Fatalf("queue status = %q, want processing", got.Status)
	}
}

func TestRetryRequiresFailedJob(t *testing.T) {
	gw := &fakeGateway{}
	c, _ := newTestCoordinator(t, gw, &fakeSink{})
	ctx := context.Background()

	job, err := c.Submit(ctx, SubmitRequest{Prompt: "x", Model: "grok"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if _, err := c.Retry(ctx, job.ID); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if _, err := c.Retry(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelMidPoll(t *testing.T) {
	gw := &fakeGateway{polls: []provider.VideoPoll{{Status: domain.JobStatusProcessing}}}
	c, q := newTestCoordinator(t, gw, &fakeSink{})
	ctx := context.Background()

	job, err := c.Submit(ctx, SubmitRequest{Prompt: "x", Model: "grok"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if !c.Cancel(ctx, job.ID) {
		t.Fatal("expected cancel to remove the job")
	}
	if _, ok := q.Get(job.ID); ok {
		t.Fatal("canceled job still in queue")
	}
	// A poll resolving after removal must be a clean no-op.
	if done := c.pollOnce(ctx, job.ID); !done {
		t.Fatal("poll for removed job did not stop")
	}
	if len(q.Items()) != 0 {
		t.Fatal("canceled job resurrected")
	}
}

func TestPollLoopRunsOnTicker(t *testing.T) {
	gw := &fakeGateway{polls: []provider.VideoPoll{
		{Status: domain.JobStatusProcessing},
		{Status: domain.JobStatusProcessing},
		{Status: domain.JobStatusCompleted, Location: "https://x/video.mp4"},
	}}
	sink := &fakeSink{}
	q := New(store.NewMemoryStore(), nil)
	registry := provider.NewRegistry()
	registry.Register(provider.NameXAI, gw)
	c := NewCoordinator(CoordinatorOptions{
		Queue:    q,
		Registry: registry,
		Sink:     sink,
		Interval: 2 * time.Millisecond,
	})
	defer c.Close()

	job, err := c.Submit(context.Background(), SubmitRequest{Prompt: "x", Model: "grok"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == domain.JobStatusCompleted
	})
	if len(sink.items()) != 1 {
		t.Fatalf("sink entries = %d, want 1", len(sink.items()))
	}
}

func TestResumeRestartsProcessingJobs(t *testing.T) {
	blobs := store.NewMemoryStore()
	ctx := context.Background()

	// First session: job submitted and persisted while processing.
	firstQueue := New(blobs, nil)
	registry := provider.NewRegistry()
	gw := &fakeGateway{polls: []provider.VideoPoll{
		{Status: domain.JobStatusCompleted, Location: "https://x/video.mp4"},
	}}
	registry.Register(provider.NameXAI, gw)
	first := NewCoordinator(CoordinatorOptions{Queue: firstQueue, Registry: registry, Interval: time.Hour})
	job, err := first.Submit(ctx, SubmitRequest{Prompt: "x", Model: "grok"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	first.Close()

	// Second session: restore and resume.
	secondQueue := New(blobs, nil)
	if err := secondQueue.Restore(ctx); err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	sink := &fakeSink{}
	second := NewCoordinator(CoordinatorOptions{
		Queue:    secondQueue,
		Registry: registry,
		Sink:     sink,
		Interval: 2 * time.Millisecond,
	})
	defer second.Close()
	second.Resume(ctx)

	waitFor(t, time.Second, func() bool {
		got, ok := secondQueue.Get(job.ID)
		return ok && got.Status == domain.JobStatusCompleted
	})
	if len(sink.items()) != 1 {
		t.Fatalf("sink entries = %d, want 1", len(sink.items()))
	}
}
