package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"

	"visascope/internal/database"
	"visascope/internal/errcode"
	"visascope/internal/jobs"
	"visascope/internal/mailer"
	"visascope/internal/metrics"
	"visascope/internal/report"
	"visascope/internal/scoring"
	"visascope/internal/submission"
	"visascope/internal/validation"
)

// Collaborator interfaces. The concrete implementations live in their own
// packages; tests substitute fakes.
type (
	// DocumentValidator checks the uploaded files for a submission.
	DocumentValidator interface {
		Validate(ctx context.Context, form submission.Form, files []submission.File) (validation.Verdict, error)
	}

	// Scorer computes the eligibility result for a form.
	Scorer interface {
		Evaluate(form submission.Form) scoring.Result
	}

	// ResultStore persists evaluation records.
	ResultStore interface {
		Save(ctx context.Context, rec *database.Evaluation) (string, error)
		UpdateObjectKeys(ctx context.Context, id string, documentKeys []byte, reportKey string) error
		MarkEmailSent(ctx context.Context, id string) error
	}

	// ObjectStore archives uploads and rendered reports.
	ObjectStore interface {
		UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	}

	// ReportRenderer turns an evaluation into PDF bytes.
	ReportRenderer interface {
		Render(data report.Data) ([]byte, error)
	}

	// EmailSender delivers the result email.
	EmailSender interface {
		Send(ctx context.Context, msg mailer.Message) error
	}
)

// InvalidDocumentsPayload rides on the invalid_documents event.
type InvalidDocumentsPayload struct {
	Code   int                `json:"code"`
	Issues []validation.Issue `json:"issues"`
}

// ErrorPayload rides on the error event.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ScoredPayload rides on the scored event.
type ScoredPayload struct {
	Score int `json:"score"`
}

// ReportPayload rides on the pdf_generated event.
type ReportPayload struct {
	Bytes int `json:"bytes"`
}

// Runner executes evaluation pipeline runs. Each run is a detached goroutine
// that reports progress through the job's event stream; the submitting HTTP
// request returns as soon as the job id exists.
type Runner struct {
	registry  *jobs.Registry
	validator DocumentValidator
	scorer    Scorer
	store     ResultStore
	objects   ObjectStore
	renderer  ReportRenderer
	mailer    EmailSender

	gracePeriod time.Duration
	logger      *slog.Logger
}

// NewRunner wires the pipeline collaborators. A nil objects store disables
// archiving; a nil mailer skips the email stages.
func NewRunner(
	registry *jobs.Registry,
	validator DocumentValidator,
	scorer Scorer,
	store ResultStore,
	objects ObjectStore,
	renderer ReportRenderer,
	sender EmailSender,
	gracePeriod time.Duration,
	logger *slog.Logger,
) *Runner {
	if gracePeriod <= 0 {
		gracePeriod = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry:    registry,
		validator:   validator,
		scorer:      scorer,
		store:       store,
		objects:     objects,
		renderer:    renderer,
		mailer:      sender,
		gracePeriod: gracePeriod,
		logger:      logger,
	}
}

// Start launches the pipeline for a registered job and returns immediately.
// The run is deliberately detached from the submitting request's context:
// the client disconnecting must not abort the evaluation.
func (r *Runner) Start(job *jobs.Job, form submission.Form, files []submission.File) {
	go r.run(context.Background(), job, form, files)
}

func (r *Runner) run(ctx context.Context, job *jobs.Job, form submission.Form, files []submission.File) {
	metrics.JobStarted()
	metrics.SetActiveJobs(r.registry.Len())

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("pipeline run panicked",
				slog.String("job_id", job.ID),
				slog.Any("panic", rec),
			)
			job.Emit(jobs.ProgressEvent{
				Type:    jobs.StageError,
				Payload: ErrorPayload{Code: errcode.SystemError, Message: "internal error"},
			})
			r.finish(job, jobs.FinishedPayload{OK: false}, "error")
		}
	}()

	logger := r.logger.With(
		slog.String("job_id", job.ID),
		slog.String("country", form.Country),
		slog.String("visa_type", form.VisaType),
	)
	logger.Info("evaluation started", slog.Int("files", len(files)))

	job.Emit(jobs.ProgressEvent{Type: jobs.StageReceived})

	// Validation.
	stageStart := time.Now()
	verdict, err := r.validator.Validate(ctx, form, files)
	if err != nil {
		r.fail(job, logger, "validate documents", err)
		return
	}
	metrics.ObserveStage(string(jobs.StageValidated), time.Since(stageStart))
	if !verdict.OK {
		logger.Info("submission rejected", slog.Int("issues", len(verdict.Issues)))
		job.Emit(jobs.ProgressEvent{
			Type:    jobs.StageInvalidDocuments,
			Payload: InvalidDocumentsPayload{Code: errcode.InvalidDocuments, Issues: verdict.Issues},
		})
		r.finish(job, jobs.FinishedPayload{OK: false}, "invalid_documents")
		return
	}
	job.Emit(jobs.ProgressEvent{Type: jobs.StageValidated})

	// Scoring.
	job.Emit(jobs.ProgressEvent{
		Type:    jobs.StageGenerating,
		Payload: jobs.MessagePayload{Message: "Evaluating your application"},
	})
	stageStart = time.Now()
	result := r.scorer.Evaluate(form)
	metrics.ObserveStage(string(jobs.StageScored), time.Since(stageStart))
	job.Emit(jobs.ProgressEvent{Type: jobs.StageScored, Payload: ScoredPayload{Score: result.Score}})

	// Persistence.
	stageStart = time.Now()
	rec, err := r.persist(ctx, form, result)
	if err != nil {
		r.fail(job, logger, "store evaluation", err)
		return
	}
	metrics.ObserveStage(string(jobs.StageStored), time.Since(stageStart))
	logger = logger.With(slog.String("evaluation_id", rec.ID))
	logger.Info("evaluation stored", slog.Int("score", result.Score))
	job.Emit(jobs.ProgressEvent{Type: jobs.StageStored})

	r.archiveDocuments(ctx, logger, rec.ID, files)

	// Report rendering. A broken renderer is fatal: the email and the
	// result download both depend on the PDF.
	stageStart = time.Now()
	pdfBytes, err := r.renderer.Render(report.Data{
		EvaluationID:   rec.ID,
		Name:           form.Name,
		Email:          form.Email,
		Country:        form.Country,
		VisaType:       form.VisaType,
		Score:          result.Score,
		Summary:        result.Summary,
		Strengths:      result.Strengths,
		Improvements:   result.Improvements,
		Recommendation: result.Recommendation,
	})
	if err != nil {
		r.fail(job, logger, "render report", err)
		return
	}
	metrics.ObserveStage(string(jobs.StagePDFGenerated), time.Since(stageStart))
	r.archiveReport(ctx, logger, rec.ID, pdfBytes)
	job.Emit(jobs.ProgressEvent{Type: jobs.StagePDFGenerated, Payload: ReportPayload{Bytes: len(pdfBytes)}})

	// Email delivery. Failure here degrades the run, it does not fail it:
	// the evaluation is already persisted and retrievable.
	outcome := "ok"
	if r.mailer != nil {
		job.Emit(jobs.ProgressEvent{Type: jobs.StageSendingEmail})
		stageStart = time.Now()
		if err := r.mailer.Send(ctx, mailer.Message{
			To:             form.Email,
			Name:           form.Name,
			Country:        form.Country,
			VisaType:       form.VisaType,
			Score:          result.Score,
			Summary:        result.Summary,
			Recommendation: result.Recommendation,
			Strengths:      result.Strengths,
			Improvements:   result.Improvements,
			EvaluationID:   rec.ID,
			Report:         pdfBytes,
			Documents:      files,
		}); err != nil {
			logger.Warn("result email failed", slog.String("error", err.Error()))
			job.Emit(jobs.ProgressEvent{
				Type:    jobs.StageEmailFailed,
				Payload: ErrorPayload{Code: errcode.EmailFailed, Message: "Failed to send result email"},
			})
		} else {
			metrics.ObserveStage(string(jobs.StageEmailSent), time.Since(stageStart))
			if err := r.store.MarkEmailSent(ctx, rec.ID); err != nil {
				logger.Warn("mark email sent failed", slog.String("error", err.Error()))
			}
			job.Emit(jobs.ProgressEvent{Type: jobs.StageEmailSent})
		}
	}

	logger.Info("evaluation finished")
	r.finish(job, jobs.FinishedPayload{OK: true, EvaluationID: rec.ID}, outcome)
}

// persist builds and saves the evaluation record.
func (r *Runner) persist(ctx context.Context, form submission.Form, result scoring.Result) (*database.Evaluation, error) {
	strengths, err := json.Marshal(result.Strengths)
	if err != nil {
		return nil, fmt.Errorf("marshal strengths: %w", err)
	}
	improvements, err := json.Marshal(result.Improvements)
	if err != nil {
		return nil, fmt.Errorf("marshal improvements: %w", err)
	}
	documents, err := json.Marshal(form.DocsMeta)
	if err != nil {
		return nil, fmt.Errorf("marshal documents meta: %w", err)
	}

	rec := &database.Evaluation{
		Name:           form.Name,
		Email:          form.Email,
		Country:        form.Country,
		VisaType:       form.VisaType,
		Score:          result.Score,
		Summary:        result.Summary,
		Strengths:      strengths,
		Improvements:   improvements,
		Recommendation: result.Recommendation,
		Documents:      documents,
	}
	if _, err := r.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// archiveDocuments uploads the applicant's files under documents/<id>/ and
// records their object keys. Failures are logged, not fatal.
func (r *Runner) archiveDocuments(ctx context.Context, logger *slog.Logger, evaluationID string, files []submission.File) {
	if r.objects == nil || len(files) == 0 {
		return
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		key := fmt.Sprintf("documents/%s/%s", evaluationID, f.Name)
		if _, err := r.objects.UploadFile(ctx, key, bytes.NewReader(f.Content), int64(len(f.Content)), f.ContentType); err != nil {
			logger.Warn("archive document failed",
				slog.String("object_key", key),
				slog.String("error", err.Error()),
			)
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return
	}

	encoded, err := json.Marshal(keys)
	if err != nil {
		logger.Warn("encode document keys failed", slog.String("error", err.Error()))
		return
	}
	if err := r.store.UpdateObjectKeys(ctx, evaluationID, encoded, ""); err != nil {
		logger.Warn("record document keys failed", slog.String("error", err.Error()))
	}
}

// archiveReport uploads the rendered PDF under reports/<id>.pdf. Failures are
// logged, not fatal: the PDF still reaches the email attachment.
func (r *Runner) archiveReport(ctx context.Context, logger *slog.Logger, evaluationID string, pdfBytes []byte) {
	if r.objects == nil {
		return
	}

	key := fmt.Sprintf("reports/%s.pdf", evaluationID)
	if _, err := r.objects.UploadFile(ctx, key, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		logger.Warn("archive report failed",
			slog.String("object_key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := r.store.UpdateObjectKeys(ctx, evaluationID, nil, key); err != nil {
		logger.Warn("record report key failed", slog.String("error", err.Error()))
	}
}

// fail emits the error + finished pair for an unrecoverable collaborator
// failure. There are no retries; the client resubmits.
func (r *Runner) fail(job *jobs.Job, logger *slog.Logger, op string, err error) {
	logger.Error("pipeline stage failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	job.Emit(jobs.ProgressEvent{
		Type:    jobs.StageError,
		Payload: ErrorPayload{Code: errcode.SystemError, Message: "Evaluation failed, please try again"},
	})
	r.finish(job, jobs.FinishedPayload{OK: false}, "error")
}

// finish emits the terminal event and schedules the job's eviction after the
// reconnect grace window.
func (r *Runner) finish(job *jobs.Job, payload jobs.FinishedPayload, outcome string) {
	job.Emit(jobs.ProgressEvent{Type: jobs.StageFinished, Payload: payload})
	metrics.JobFinished(outcome)
	r.registry.ScheduleEviction(job.ID, r.gracePeriod)
	metrics.SetActiveJobs(r.registry.Len())
}
