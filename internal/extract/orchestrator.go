// Package extract runs the extraction pipeline stages behind the task
// queue: production extraction, shadow re-extraction and review, revision
// diffs, and cross-document conflict checks.
package extract

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ridgeline-eng/docqc/internal/accuracy"
	"github.com/ridgeline-eng/docqc/internal/conflict"
	"github.com/ridgeline-eng/docqc/internal/delta"
	"github.com/ridgeline-eng/docqc/internal/model"
	"github.com/ridgeline-eng/docqc/internal/queue"
	"github.com/ridgeline-eng/docqc/internal/resilience"
	"github.com/ridgeline-eng/docqc/internal/sampler"
	"github.com/ridgeline-eng/docqc/internal/store"
	"github.com/ridgeline-eng/docqc/pkg/extractor"
)

// Config tunes the orchestrator's calls to the extraction service.
type Config struct {
	// CallTimeout bounds a single extraction call. On expiry the task is
	// failed and retried per queue policy; it is never left claimed.
	CallTimeout time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
	// RequestsPerSecond rate-limits outbound extraction calls across all
	// workers in the process.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Retry             resilience.RetryConfig
	Circuit           resilience.CircuitBreakerConfig
}

func (c Config) withDefaults() Config {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 90 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	return c
}

// Orchestrator executes queue tasks against the extraction service and
// persists their results.
type Orchestrator struct {
	store      store.Store
	client     extractor.Client
	sampler    *sampler.Sampler
	aggregator *accuracy.Aggregator
	detector   *conflict.Detector
	cfg        Config
	breaker    *resilience.CircuitBreaker
	limiter    *rate.Limiter
}

func NewOrchestrator(st store.Store, client extractor.Client, smp *sampler.Sampler, agg *accuracy.Aggregator, det *conflict.Detector, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		store:      st,
		client:     client,
		sampler:    smp,
		aggregator: agg,
		detector:   det,
		cfg:        cfg,
		breaker:    resilience.NewCircuitBreaker(cfg.Circuit),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Register installs the orchestrator's handlers on the dispatcher.
func (o *Orchestrator) Register(d *queue.Dispatcher) {
	d.Register(model.TaskExtract, o.ProcessExtractTask)
	d.Register(model.TaskShadowReview, o.ProcessShadowReviewTask)
	d.Register(model.TaskDiff, o.ProcessDiffTask)
	d.Register(model.TaskCrossCheck, o.ProcessCrossCheckTask)
}

// ProcessExtractTask runs a production extraction for the task's document at
// the category's current routing tier.
func (o *Orchestrator) ProcessExtractTask(ctx context.Context, task *model.QueueTask) error {
	doc, err := o.store.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return eris.Wrap(err, "extract: load document")
	}
	if doc == nil {
		zap.L().Warn("extract task references missing document", zap.String("document_id", task.DocumentID))
		return nil
	}

	tier, err := o.aggregator.CurrentRouting(ctx, doc.Category)
	if err != nil {
		return err
	}

	started := time.Now().UTC()
	result, err := o.callExtractor(ctx, doc, tier)
	if err != nil {
		return o.recordFailure(ctx, doc, tier, model.RunPurposeProduction, started, err)
	}

	// The call may have taken long enough for a newer revision to land. A
	// late result for a superseded document is kept but never authoritative.
	fresh, err := o.store.GetDocument(ctx, doc.ID)
	if err != nil {
		return eris.Wrap(err, "extract: refresh document")
	}
	authoritative := fresh != nil && fresh.IsCurrent

	run := &model.ExtractionRun{
		ID:            uuid.New().String(),
		DocumentID:    doc.ID,
		Tier:          tier,
		Purpose:       model.RunPurposeProduction,
		Outcome:       model.RunSuccess,
		Authoritative: authoritative,
		Confidence:    result.Confidence,
		StartedAt:     started,
	}
	entities := toEntities(doc.ID, result)
	if err := o.store.CreateRun(ctx, run, entities); err != nil {
		return eris.Wrap(err, "extract: persist run")
	}
	zap.L().Info("extraction complete",
		zap.String("document_id", doc.ID),
		zap.String("run_id", run.ID),
		zap.Int("tier", int(tier)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("entities", len(entities)),
		zap.Bool("authoritative", authoritative),
	)

	if authoritative {
		if err := o.enqueueFollowups(ctx, doc); err != nil {
			return err
		}
	}

	if tier < model.MaxTier && o.sampler.ShouldReview(run.ID, result.Confidence) {
		err := o.store.EnqueueTask(ctx, &model.QueueTask{
			Kind:       model.TaskShadowReview,
			DocumentID: doc.ID,
			Priority:   model.PriorityLow,
			Payload:    model.AttributeMap{"production_run_id": run.ID},
		})
		if err != nil {
			return eris.Wrap(err, "extract: enqueue shadow review")
		}
	}
	return nil
}

// enqueueFollowups schedules the cross-document check and, when the
// document superseded a prior revision, the revision diff. Both run only
// after the run's entities are durably committed.
func (o *Orchestrator) enqueueFollowups(ctx context.Context, doc *model.Document) error {
	err := o.store.EnqueueTask(ctx, &model.QueueTask{
		Kind:       model.TaskCrossCheck,
		DocumentID: doc.ID,
		Priority:   model.PriorityNormal,
	})
	if err != nil {
		return eris.Wrap(err, "extract: enqueue cross check")
	}
	if doc.Supersedes == "" {
		return nil
	}
	err = o.store.EnqueueTask(ctx, &model.QueueTask{
		Kind:       model.TaskDiff,
		DocumentID: doc.ID,
		Priority:   model.PriorityNormal,
		Payload:    model.AttributeMap{"prior_document_id": doc.Supersedes},
	})
	return eris.Wrap(err, "extract: enqueue diff")
}

// ProcessShadowReviewTask re-extracts the production run's document one
// tier up, scores the production output against it, and feeds the review
// into the accuracy aggregator.
func (o *Orchestrator) ProcessShadowReviewTask(ctx context.Context, task *model.QueueTask) error {
	runID, _ := task.Payload.String("production_run_id")
	if runID == "" {
		zap.L().Warn("shadow review task missing production_run_id", zap.String("task_id", task.ID))
		return nil
	}
	prodRun, err := o.store.GetRun(ctx, runID)
	if err != nil {
		return eris.Wrap(err, "extract: load production run")
	}
	if prodRun == nil {
		zap.L().Warn("shadow review references missing run", zap.String("run_id", runID))
		return nil
	}
	doc, err := o.store.GetDocument(ctx, prodRun.DocumentID)
	if err != nil {
		return eris.Wrap(err, "extract: load document")
	}
	if doc == nil {
		return nil
	}

	shadowTier := prodRun.Tier.Next()
	if shadowTier == prodRun.Tier {
		// Already at the top tier; nothing higher to compare against.
		return nil
	}

	started := time.Now().UTC()
	result, err := o.callExtractor(ctx, doc, shadowTier)
	if err != nil {
		return o.recordFailure(ctx, doc, shadowTier, model.RunPurposeShadow, started, err)
	}

	shadowRun := &model.ExtractionRun{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Tier:       shadowTier,
		Purpose:    model.RunPurposeShadow,
		Outcome:    model.RunSuccess,
		Confidence: result.Confidence,
		StartedAt:  started,
	}
	shadowEntities := toEntities(doc.ID, result)
	if err := o.store.CreateRun(ctx, shadowRun, shadowEntities); err != nil {
		return eris.Wrap(err, "extract: persist shadow run")
	}

	prodEntities, err := o.store.RunEntities(ctx, prodRun.ID)
	if err != nil {
		return eris.Wrap(err, "extract: load production entities")
	}

	cmp := sampler.Compare(prodEntities, shadowEntities)
	review := &model.ShadowReview{
		ID:             uuid.New().String(),
		DocumentID:     doc.ID,
		ProductionRun:  prodRun.ID,
		ShadowRun:      shadowRun.ID,
		Category:       doc.Category,
		ProductionTier: prodRun.Tier,
		ShadowTier:     shadowTier,
		Matched:        cmp.Matched,
		Missed:         cmp.Missed,
		Incorrect:      cmp.Incorrect,
		FalsePositives: cmp.FalsePositives,
		Accuracy:       cmp.Accuracy(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.store.CreateShadowReview(ctx, review); err != nil {
		return eris.Wrap(err, "extract: persist shadow review")
	}
	zap.L().Info("shadow review complete",
		zap.String("document_id", doc.ID),
		zap.String("production_run", prodRun.ID),
		zap.String("shadow_run", shadowRun.ID),
		zap.Float64("accuracy", review.Accuracy),
		zap.Int("missed", review.Missed),
		zap.Int("incorrect", review.Incorrect),
	)

	return o.aggregator.OnShadowReview(ctx, review, doc.Category, prodRun.Tier)
}

// ProcessDiffTask diffs the document's authoritative entities against the
// prior revision's. When either side's extraction has not landed yet the
// task completes as a no-op; the post-extraction enqueue covers that case.
func (o *Orchestrator) ProcessDiffTask(ctx context.Context, task *model.QueueTask) error {
	doc, err := o.store.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return eris.Wrap(err, "extract: load document")
	}
	if doc == nil {
		return nil
	}
	priorID, _ := task.Payload.String("prior_document_id")
	if priorID == "" {
		priorID = doc.Supersedes
	}
	if priorID == "" {
		return nil
	}

	currentRun, err := o.store.AuthoritativeRun(ctx, doc.ID)
	if err != nil {
		return eris.Wrap(err, "extract: current run")
	}
	priorRun, err := o.store.AuthoritativeRun(ctx, priorID)
	if err != nil {
		return eris.Wrap(err, "extract: prior run")
	}
	if currentRun == nil || priorRun == nil {
		zap.L().Debug("diff deferred, extraction pending",
			zap.String("document_id", doc.ID),
			zap.String("prior_document_id", priorID),
		)
		return nil
	}

	currentEntities, err := o.store.RunEntities(ctx, currentRun.ID)
	if err != nil {
		return eris.Wrap(err, "extract: current entities")
	}
	priorEntities, err := o.store.RunEntities(ctx, priorRun.ID)
	if err != nil {
		return eris.Wrap(err, "extract: prior entities")
	}

	deltas := delta.Diff(doc.ID, priorRun.ID, currentRun.ID, priorEntities, currentEntities)
	if len(deltas) == 0 {
		return nil
	}
	if err := o.store.InsertDeltas(ctx, deltas); err != nil {
		return eris.Wrap(err, "extract: persist deltas")
	}
	zap.L().Info("revision diff complete",
		zap.String("document_id", doc.ID),
		zap.String("prior_run", priorRun.ID),
		zap.String("current_run", currentRun.ID),
		zap.Int("deltas", len(deltas)),
	)
	return nil
}

// ProcessCrossCheckTask runs the conflict detector for the task's document.
func (o *Orchestrator) ProcessCrossCheckTask(ctx context.Context, task *model.QueueTask) error {
	doc, err := o.store.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return eris.Wrap(err, "extract: load document")
	}
	if doc == nil {
		return nil
	}
	_, err = o.detector.CrossCheck(ctx, doc)
	return err
}

// callExtractor wraps the service call with the rate limiter, circuit
// breaker, per-call timeout, and transient-error retry. Malformed results
// pass through un-retried.
func (o *Orchestrator) callExtractor(ctx context.Context, doc *model.Document, tier model.Tier) (*extractor.ExtractResult, error) {
	req := extractor.ExtractRequest{
		DocumentRef: doc.ContentHash,
		Category:    doc.Category,
		Tier:        int(tier),
	}

	retryCfg := o.cfg.Retry
	if retryCfg.OnRetry == nil {
		retryCfg.OnRetry = resilience.RetryLogger("extractor", "extract")
	}

	return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*extractor.ExtractResult, error) {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return resilience.ExecuteVal(ctx, o.breaker, func(ctx context.Context) (*extractor.ExtractResult, error) {
			callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
			defer cancel()
			return o.client.Extract(callCtx, req)
		})
	})
}

// recordFailure persists the failed run so the attempt is inspectable, then
// decides whether the task retries. Malformed results complete the task:
// re-calling the service replays the same bad payload.
func (o *Orchestrator) recordFailure(ctx context.Context, doc *model.Document, tier model.Tier, purpose model.RunPurpose, started time.Time, cause error) error {
	outcome := model.RunFailure
	if eris.Is(cause, context.DeadlineExceeded) {
		outcome = model.RunTimeout
	}
	run := &model.ExtractionRun{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Tier:       tier,
		Purpose:    purpose,
		Outcome:    outcome,
		Error:      cause.Error(),
		StartedAt:  started,
	}
	if err := o.store.CreateRun(ctx, run, nil); err != nil {
		zap.L().Error("record failed run", zap.String("document_id", doc.ID), zap.Error(err))
	}

	var malformed *extractor.MalformedResultError
	if eris.As(cause, &malformed) {
		zap.L().Error("malformed extraction result",
			zap.String("document_id", doc.ID),
			zap.String("run_id", run.ID),
			zap.String("reason", malformed.Reason),
			zap.String("payload", malformed.Payload),
		)
		return nil
	}
	return eris.Wrap(cause, "extract: extraction call")
}

func toEntities(documentID string, result *extractor.ExtractResult) []model.ExtractedEntity {
	entities := make([]model.ExtractedEntity, 0, len(result.Entities))
	for _, e := range result.Entities {
		entities = append(entities, model.ExtractedEntity{
			DocumentID: documentID,
			EntityType: e.Type,
			NaturalKey: e.NaturalKey,
			Attributes: model.AttributeMap(e.Attributes),
			Confidence: result.Confidence,
		})
	}
	return entities
}
