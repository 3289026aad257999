package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mirelio/echodesk/internal/models"
	"github.com/mirelio/echodesk/internal/providers/respond"
	"github.com/mirelio/echodesk/internal/providers/sentiment"
	"github.com/mirelio/echodesk/internal/providers/speech"
	"github.com/mirelio/echodesk/internal/repositories/postgres"
	"github.com/mirelio/echodesk/internal/utils"
)

type memRepo struct {
	mu        sync.Mutex
	feedback  map[string]*models.Feedback
	sentiment map[string]*models.SentimentResult
	response  map[string]*models.GeneratedResponse
	audio     map[string]*models.AudioArtifact
}

func newMemRepo() *memRepo {
	return &memRepo{
		feedback:  map[string]*models.Feedback{},
		sentiment: map[string]*models.SentimentResult{},
		response:  map[string]*models.GeneratedResponse{},
		audio:     map[string]*models.AudioArtifact{},
	}
}

func (m *memRepo) Insert(_ context.Context, f *models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.feedback[f.ID] = &cp
	return nil
}

func (m *memRepo) GetWithResults(_ context.Context, id string) (*models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.feedback[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *f
	if s, ok := m.sentiment[id]; ok {
		scp := *s
		cp.Sentiment = &scp
	}
	if r, ok := m.response[id]; ok {
		rcp := *r
		cp.Response = &rcp
	}
	if a, ok := m.audio[id]; ok {
		acp := *a
		cp.Audio = &acp
	}
	return &cp, nil
}

func (m *memRepo) ListPage(context.Context, int, int, string) ([]models.Feedback, int64, error) {
	return nil, 0, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id string, status models.ProcessingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.feedback[id]
	if !ok {
		return utils.ErrNotFound
	}
	if f.ProcessingStatus == models.StatusProcessing {
		f.ProcessingStatus = status
	}
	return nil
}

func (m *memRepo) InsertSentiment(_ context.Context, r *models.SentimentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.sentiment[r.FeedbackID] = &cp
	return nil
}

func (m *memRepo) InsertResponse(_ context.Context, r *models.GeneratedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.response[r.FeedbackID] = &cp
	return nil
}

func (m *memRepo) InsertAudio(_ context.Context, a *models.AudioArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.audio[a.FeedbackID] = &cp
	return nil
}

func (m *memRepo) GetAudio(_ context.Context, audioID string) (*models.AudioArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.audio {
		if a.ID == audioID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (m *memRepo) Stats(context.Context) (*postgres.DashboardStats, error) {
	return &postgres.DashboardStats{}, nil
}

type stubSentiment struct {
	res *sentiment.Result
	err error
}

func (s *stubSentiment) Analyze(context.Context, string) (*sentiment.Result, error) {
	return s.res, s.err
}

func (s *stubSentiment) Close() error { return nil }

type stubResponder struct {
	res *respond.Response
	err error
}

func (s *stubResponder) Generate(context.Context, respond.Request) (*respond.Response, error) {
	return s.res, s.err
}

func (s *stubResponder) Close() error { return nil }

type stubSynth struct {
	clip *speech.Clip
	err  error
	last speech.Request
}

func (s *stubSynth) Synthesize(_ context.Context, req speech.Request) (*speech.Clip, error) {
	s.last = req
	return s.clip, s.err
}

func (s *stubSynth) Close() error { return nil }

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStore) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[objectName] = b
	return objectName, nil
}

func (s *memStore) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[locator]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(string(b))), nil
}

func (s *memStore) Kind() models.StorageKind { return models.StorageLocal }

type capturePublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (p *capturePublisher) Publish(ev models.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *capturePublisher) all() []models.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

type directQueue struct {
	ids []string
}

func (q *directQueue) Enqueue(_ context.Context, feedbackID string) error {
	q.ids = append(q.ids, feedbackID)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestOrchestrator() (*Orchestrator, *memRepo, *capturePublisher, *directQueue) {
	repo := newMemRepo()
	pub := &capturePublisher{}
	queue := &directQueue{}
	o := &Orchestrator{
		Repo: repo,
		Sentiment: &stubSentiment{res: &sentiment.Result{
			Label:      models.SentimentPositive,
			Confidence: 0.92,
			Source:     "analyzer",
		}},
		Responder: &stubResponder{res: &respond.Response{Text: "Thank you for the kind words!", Model: "gemini-1.5-flash"}},
		Synth:     &stubSynth{clip: &speech.Clip{Audio: []byte("mp3-bytes")}},
		Store:     &memStore{},
		Queue:     queue,
		Publisher: pub,
		Logger:    quietLogger(),
	}
	return o, repo, pub, queue
}

func TestSubmitCreatesProcessingFeedback(t *testing.T) {
	o, repo, pub, queue := newTestOrchestrator()

	fb, err := o.Submit(context.Background(), "This product is amazing!", "product")
	if err != nil {
		t.Fatal(err)
	}
	if fb.ProcessingStatus != models.StatusProcessing {
		t.Errorf("status = %s, want processing", fb.ProcessingStatus)
	}
	if fb.ID == "" {
		t.Error("missing id")
	}

	stored, err := repo.GetWithResults(context.Background(), fb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Sentiment != nil || stored.Response != nil || stored.Audio != nil {
		t.Error("sub-results attached before any processing ran")
	}
	if len(queue.ids) != 1 || queue.ids[0] != fb.ID {
		t.Errorf("queued ids = %v", queue.ids)
	}
	if len(pub.all()) != 0 {
		t.Error("submit alone published events")
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	o, _, _, queue := newTestOrchestrator()

	if _, err := o.Submit(context.Background(), "short", "product"); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("short text: err = %v", err)
	}
	if _, err := o.Submit(context.Background(), "long enough feedback text", "nonsense"); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("bad category: err = %v", err)
	}
	if len(queue.ids) != 0 {
		t.Errorf("invalid submissions queued: %v", queue.ids)
	}
}

func TestProcessHappyPath(t *testing.T) {
	o, repo, pub, _ := newTestOrchestrator()

	fb, err := o.Submit(context.Background(), "This product is amazing!", "product")
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Process(context.Background(), fb.ID); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetWithResults(context.Background(), fb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ProcessingStatus != models.StatusCompleted {
		t.Errorf("status = %s, want completed", got.ProcessingStatus)
	}
	if got.Sentiment == nil || got.Sentiment.Sentiment != models.SentimentPositive {
		t.Fatalf("sentiment = %+v", got.Sentiment)
	}
	if got.Response == nil || got.Response.ResponseText == "" {
		t.Fatalf("response = %+v", got.Response)
	}
	if got.Audio == nil {
		t.Fatal("audio artifact missing")
	}
	// 0.92 positive lands in the excited band
	if got.Audio.EmotionStyle != "excited" || got.Audio.VoiceName != "en-US-JennyNeural" {
		t.Errorf("voice profile = %s/%s", got.Audio.VoiceName, got.Audio.EmotionStyle)
	}
	if got.Audio.DurationSeconds < 1 {
		t.Errorf("duration = %f", got.Audio.DurationSeconds)
	}

	events := pub.all()
	// sentiment, response, audio, finalize
	if len(events) != 4 {
		t.Fatalf("event count = %d", len(events))
	}
	for _, ev := range events {
		if ev.Kind != models.EventFeedbackUpdate {
			t.Errorf("event kind = %s", ev.Kind)
		}
	}
	if events[0].Feedback.Sentiment == nil || events[0].Feedback.Response != nil {
		t.Error("first event should carry sentiment only")
	}
	last := events[len(events)-1].Feedback
	if last.ProcessingStatus != models.StatusCompleted || last.Audio == nil {
		t.Error("final event not a completed snapshot with audio")
	}
}

func TestProcessSentimentFailureFallsBack(t *testing.T) {
	o, repo, _, _ := newTestOrchestrator()
	o.Sentiment = &stubSentiment{err: errors.New("quota exceeded")}

	fb, _ := o.Submit(context.Background(), "I love this, it works great for my team", "product")
	if err := o.Process(context.Background(), fb.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := repo.GetWithResults(context.Background(), fb.ID)
	if got.ProcessingStatus != models.StatusCompleted {
		t.Errorf("status = %s, want completed", got.ProcessingStatus)
	}
	if got.Sentiment == nil {
		t.Fatal("fallback sentiment missing")
	}
	if got.Sentiment.Source != "fallback" {
		t.Errorf("source = %s, want fallback", got.Sentiment.Source)
	}
	if got.Sentiment.Sentiment != models.SentimentPositive {
		t.Errorf("fallback label = %s", got.Sentiment.Sentiment)
	}
}

func TestProcessResponseFailureIsTerminal(t *testing.T) {
	o, repo, pub, _ := newTestOrchestrator()
	o.Responder = &stubResponder{err: errors.New("model unavailable")}

	fb, _ := o.Submit(context.Background(), "The service was unacceptably slow today", "service")
	if err := o.Process(context.Background(), fb.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := repo.GetWithResults(context.Background(), fb.ID)
	if got.ProcessingStatus != models.StatusFailed {
		t.Errorf("status = %s, want failed", got.ProcessingStatus)
	}
	if got.Response != nil {
		t.Error("response persisted despite generation failure")
	}
	if got.Audio != nil {
		t.Error("synthesis ran after terminal response failure")
	}

	events := pub.all()
	if len(events) == 0 {
		t.Fatal("no events published")
	}
	last := events[len(events)-1].Feedback
	if last.ProcessingStatus != models.StatusFailed {
		t.Errorf("final event status = %s", last.ProcessingStatus)
	}
}

func TestProcessSynthesisFailureCompletesWithoutAudio(t *testing.T) {
	o, repo, _, _ := newTestOrchestrator()
	o.Synth = &stubSynth{err: errors.New("tts quota exceeded")}

	fb, _ := o.Submit(context.Background(), "Billing page crashed twice this morning", "billing")
	if err := o.Process(context.Background(), fb.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := repo.GetWithResults(context.Background(), fb.ID)
	if got.ProcessingStatus != models.StatusCompleted {
		t.Errorf("status = %s, want completed", got.ProcessingStatus)
	}
	if got.Response == nil {
		t.Error("response missing")
	}
	if got.Audio != nil {
		t.Error("audio artifact persisted despite synthesis failure")
	}
}

func TestProcessWithoutSynthesizerSkipsAudio(t *testing.T) {
	o, repo, _, _ := newTestOrchestrator()
	o.Synth = nil
	o.Store = nil

	fb, _ := o.Submit(context.Background(), "Support resolved my ticket in minutes", "support")
	if err := o.Process(context.Background(), fb.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := repo.GetWithResults(context.Background(), fb.ID)
	if got.ProcessingStatus != models.StatusCompleted {
		t.Errorf("status = %s, want completed", got.ProcessingStatus)
	}
	if got.Audio != nil {
		t.Error("audio artifact persisted without a synthesizer")
	}
}

func TestProcessIsIdempotentOnRedelivery(t *testing.T) {
	o, repo, pub, _ := newTestOrchestrator()

	fb, _ := o.Submit(context.Background(), "This product is amazing!", "product")
	if err := o.Process(context.Background(), fb.ID); err != nil {
		t.Fatal(err)
	}
	before := len(pub.all())

	if err := o.Process(context.Background(), fb.ID); err != nil {
		t.Fatal(err)
	}
	if got := len(pub.all()); got != before {
		t.Errorf("redelivery published %d extra events", got-before)
	}

	got, _ := repo.GetWithResults(context.Background(), fb.ID)
	if got.ProcessingStatus != models.StatusCompleted {
		t.Errorf("status = %s", got.ProcessingStatus)
	}
}

func TestProcessUnknownFeedback(t *testing.T) {
	o, _, _, _ := newTestOrchestrator()
	if err := o.Process(context.Background(), "no-such-id"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestSynthesisUsesDerivedVoiceProfile(t *testing.T) {
	o, _, _, _ := newTestOrchestrator()
	synth := &stubSynth{clip: &speech.Clip{Audio: []byte("mp3")}}
	o.Synth = synth
	o.Sentiment = &stubSentiment{res: &sentiment.Result{
		Label:      models.SentimentNegative,
		Confidence: 0.95,
		Source:     "analyzer",
	}}

	fb, _ := o.Submit(context.Background(), "Absolutely terrible experience, nothing worked", "service")
	if err := o.Process(context.Background(), fb.ID); err != nil {
		t.Fatal(err)
	}

	if synth.last.Voice != "en-US-AriaNeural" || synth.last.Style != "sad" {
		t.Errorf("synth request = %s/%s", synth.last.Voice, synth.last.Style)
	}
	if synth.last.StyleDegree != 1.3 {
		t.Errorf("style degree = %f", synth.last.StyleDegree)
	}
}
