package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/mirelio/echodesk/internal/models"
	"github.com/mirelio/echodesk/internal/providers/respond"
	"github.com/mirelio/echodesk/internal/providers/sentiment"
	"github.com/mirelio/echodesk/internal/providers/speech"
	mongorepo "github.com/mirelio/echodesk/internal/repositories/mongo"
	pgrepo "github.com/mirelio/echodesk/internal/repositories/postgres"
	"github.com/mirelio/echodesk/internal/storage"
	"github.com/mirelio/echodesk/internal/utils"
	"github.com/mirelio/echodesk/internal/validate"
)

// Publisher is the hub-facing slice of the broadcast surface.
type Publisher interface {
	Publish(ev models.DomainEvent)
}

// Enqueuer hands a created feedback id to the out-of-band worker pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, feedbackID string) error
}

// Orchestrator owns the lifecycle of one submission: durable creation,
// stage-by-stage enrichment, and one feedback_update emission per stage
// transition. Each sub-result is durably written before the event that
// announces it is published.
type Orchestrator struct {
	Repo      pgrepo.FeedbackRepository
	Traces    mongorepo.StageTraceRepository // optional
	Sentiment sentiment.Provider             // optional; Lexical fallback covers absence
	Responder respond.Provider
	Synth     speech.Provider // optional; absence skips the synthesis stage
	Store     storage.Store   // optional; required for the synthesis stage
	Queue     Enqueuer
	Publisher Publisher
	Logger    *logrus.Logger
}

// Submit validates and durably creates a Feedback in status processing, then
// queues it for enrichment. Enrichment runs out of band; errors there land on
// the row, never on this caller.
func (o *Orchestrator) Submit(ctx context.Context, text, category string) (*models.Feedback, error) {
	const op = "Orchestrator.Submit"

	text, category, err := validate.Submission(text, category)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	fb := &models.Feedback{
		ID:               uuid.NewString(),
		Text:             text,
		Category:         category,
		ProcessingStatus: models.StatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := o.Repo.Insert(ctx, fb); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist feedback", err)
	}

	if err := o.Queue.Enqueue(ctx, fb.ID); err != nil {
		// the record exists; surface the enqueue failure rather than losing it silently
		return nil, utils.E(utils.CodeUnavailable, op, "failed to queue feedback for processing", err)
	}

	o.Logger.WithFields(logrus.Fields{"feedback_id": fb.ID, "category": category}).Info("feedback submitted")
	return fb, nil
}

// Process runs the full enrichment pipeline for one feedback id. It is safe
// to call again for an already-terminal feedback (redelivery): the call is a
// no-op. The returned error covers infrastructure failures only; collaborator
// failures are absorbed into the feedback's status per stage policy.
func (o *Orchestrator) Process(ctx context.Context, feedbackID string) error {
	const op = "Orchestrator.Process"

	fb, err := o.Repo.GetWithResults(ctx, feedbackID)
	if err != nil {
		return utils.E(utils.CodeNotFound, op, "feedback not found", err)
	}
	if fb.ProcessingStatus.Terminal() {
		return nil
	}

	log := o.Logger.WithField("feedback_id", fb.ID)

	// Stage 1: sentiment, with deterministic local fallback. A best-effort
	// result must always exist because stage 3 derives the voice from it.
	res := o.analyzeSentiment(ctx, fb, log)

	// Stage 2: response generation. Failure here is terminal.
	reply, err := o.generateResponse(ctx, fb, res, log)
	if err != nil {
		if uerr := o.Repo.UpdateStatus(ctx, fb.ID, models.StatusFailed); uerr != nil {
			return utils.E(utils.CodeInternal, op, "failed to mark feedback failed", uerr)
		}
		o.emitUpdate(ctx, fb.ID)
		return nil
	}

	// Stage 3 (optional): emotion-aware synthesis. Failure degrades to "no audio".
	o.synthesizeAudio(ctx, fb, res, reply, log)

	// Stage 4: completion.
	if err := o.Repo.UpdateStatus(ctx, fb.ID, models.StatusCompleted); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to mark feedback completed", err)
	}
	o.trace(ctx, fb.ID, "finalize", "ok", "", 0)
	o.emitUpdate(ctx, fb.ID)

	log.Info("feedback processing completed")
	return nil
}

func (o *Orchestrator) analyzeSentiment(ctx context.Context, fb *models.Feedback, log *logrus.Entry) *sentiment.Result {
	start := time.Now()

	var res *sentiment.Result
	outcome := "ok"
	if o.Sentiment != nil {
		r, err := o.Sentiment.Analyze(ctx, fb.Text)
		if err != nil {
			log.WithError(err).Warn("sentiment analyzer failed, using lexical fallback")
			outcome = "fallback"
		} else {
			res = r
		}
	} else {
		outcome = "fallback"
	}
	if res == nil {
		res = sentiment.Lexical(fb.Text)
	}

	row := &models.SentimentResult{
		ID:              uuid.NewString(),
		FeedbackID:      fb.ID,
		Sentiment:       res.Label,
		ConfidenceScore: res.Confidence,
		Scores:          marshalScores(res.Scores),
		KeyPhrases:      res.KeyPhrases,
		Source:          res.Source,
		ProcessedAt:     time.Now().UTC(),
	}
	if err := o.Repo.InsertSentiment(ctx, row); err != nil {
		// a persisted result the observers cannot see must not be announced
		log.WithError(err).Error("failed to persist sentiment result")
		return res
	}

	o.trace(ctx, fb.ID, "sentiment", outcome, string(res.Label), time.Since(start).Milliseconds())
	o.emitUpdate(ctx, fb.ID)
	return res
}

func (o *Orchestrator) generateResponse(ctx context.Context, fb *models.Feedback, res *sentiment.Result, log *logrus.Entry) (*respond.Response, error) {
	start := time.Now()

	reply, err := o.Responder.Generate(ctx, respond.Request{
		Text:       fb.Text,
		Sentiment:  res.Label,
		Confidence: res.Confidence,
		KeyPhrases: res.KeyPhrases,
	})
	if err != nil {
		log.WithError(err).Error("response generation failed")
		o.trace(ctx, fb.ID, "response", "failed", err.Error(), time.Since(start).Milliseconds())
		return nil, err
	}

	row := &models.GeneratedResponse{
		ID:           uuid.NewString(),
		FeedbackID:   fb.ID,
		ResponseText: reply.Text,
		ModelUsed:    reply.Model,
		GeneratedAt:  time.Now().UTC(),
	}
	if err := o.Repo.InsertResponse(ctx, row); err != nil {
		log.WithError(err).Error("failed to persist generated response")
		return nil, err
	}

	o.trace(ctx, fb.ID, "response", "ok", reply.Model, time.Since(start).Milliseconds())
	o.emitUpdate(ctx, fb.ID)
	return reply, nil
}

func (o *Orchestrator) synthesizeAudio(ctx context.Context, fb *models.Feedback, res *sentiment.Result, reply *respond.Response, log *logrus.Entry) {
	if o.Synth == nil || o.Store == nil {
		o.trace(ctx, fb.ID, "synthesis", "skipped", "synthesizer not configured", 0)
		return
	}
	start := time.Now()

	profile := DeriveVoiceProfile(res.Label, res.Confidence)
	clip, err := o.Synth.Synthesize(ctx, speech.Request{
		Text:        reply.Text,
		Voice:       profile.Voice,
		Style:       profile.Style,
		StyleDegree: profile.StyleDegree,
	})
	if err != nil {
		log.WithError(err).Warn("speech synthesis failed, completing without audio")
		o.trace(ctx, fb.ID, "synthesis", "failed", err.Error(), time.Since(start).Milliseconds())
		return
	}

	locator, err := o.Store.Upload(ctx, fb.ID+".mp3", "audio/mpeg", bytes.NewReader(clip.Audio))
	if err != nil {
		log.WithError(err).Warn("audio upload failed, completing without audio")
		o.trace(ctx, fb.ID, "synthesis", "failed", err.Error(), time.Since(start).Milliseconds())
		return
	}

	duration := clip.DurationSeconds
	if duration == 0 {
		duration = speech.EstimateDuration(reply.Text)
	}

	row := &models.AudioArtifact{
		ID:              uuid.NewString(),
		FeedbackID:      fb.ID,
		Locator:         locator,
		StorageKind:     o.Store.Kind(),
		VoiceName:       profile.Voice,
		EmotionStyle:    profile.Style,
		DurationSeconds: duration,
		FileSize:        int64(len(clip.Audio)),
		CreatedAt:       time.Now().UTC(),
	}
	if err := o.Repo.InsertAudio(ctx, row); err != nil {
		log.WithError(err).Warn("failed to persist audio artifact, completing without audio")
		return
	}

	o.trace(ctx, fb.ID, "synthesis", "ok", profile.Style, time.Since(start).Milliseconds())
	o.emitUpdate(ctx, fb.ID)
}

// emitUpdate re-reads the feedback so the published snapshot only ever
// references durably queryable sub-results.
func (o *Orchestrator) emitUpdate(ctx context.Context, feedbackID string) {
	fb, err := o.Repo.GetWithResults(ctx, feedbackID)
	if err != nil {
		o.Logger.WithError(err).WithField("feedback_id", feedbackID).Error("failed to load feedback for event emission")
		return
	}
	o.Publisher.Publish(models.DomainEvent{
		Kind:      models.EventFeedbackUpdate,
		Feedback:  fb,
		Timestamp: time.Now().UTC(),
	})
}

func (o *Orchestrator) trace(ctx context.Context, feedbackID, stage, outcome, detail string, elapsedMS int64) {
	if o.Traces == nil {
		return
	}
	err := o.Traces.Insert(ctx, &models.StageTrace{
		FeedbackID: feedbackID,
		Stage:      stage,
		Outcome:    outcome,
		Detail:     detail,
		ElapsedMS:  elapsedMS,
		At:         time.Now().UTC(),
	})
	if err != nil {
		o.Logger.WithError(err).WithField("feedback_id", feedbackID).Debug("failed to record stage trace")
	}
}

func marshalScores(scores map[string]float64) datatypes.JSON {
	if len(scores) == 0 {
		return nil
	}
	b := &bytes.Buffer{}
	b.WriteByte('{')
	first := true
	for _, k := range []string{"positive", "negative", "neutral"} {
		v, ok := scores[k]
		if !ok {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		fmt.Fprintf(b, "%q:%g", k, v)
	}
	b.WriteByte('}')
	return datatypes.JSON(b.Bytes())
}
