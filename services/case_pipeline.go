package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"legal_marketplace_go/models"
	"legal_marketplace_go/services/ai"
	"legal_marketplace_go/services/metrics"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Processing flows
const (
	FlowManual = "manual"
	FlowChat   = "chat"
)

// ErrProcessingFailed is returned when a required pipeline stage failed and the
// case was reverted to draft.
var ErrProcessingFailed = errors.New("case processing failed")

// ProcessingJob is the unit of background work for one case
type ProcessingJob struct {
	CaseID       string
	Flow         string
	Summary      string
	Transcript   string
	Reason       string
	OriginalText string
	Files        []string
}

// JobEnqueuer hands processing jobs to the background workers
type JobEnqueuer interface {
	Enqueue(job ProcessingJob) error
}

type classificationAnswer struct {
	Title          string `json:"titulo" validate:"required"`
	Specialty      string `json:"especialidad"`
	LeadTier       string `json:"tipo_lead" validate:"required,oneof=standard premium urgent"`
	EstimatedValue string `json:"valor_estimado"`
}

func (a *classificationAnswer) Normalize() {
	a.Title = strings.TrimSpace(a.Title)
	a.Specialty = strings.TrimSpace(a.Specialty)
	a.LeadTier = strings.ToLower(strings.TrimSpace(a.LeadTier))
	a.EstimatedValue = strings.TrimSpace(a.EstimatedValue)
}

type proposalAnswer struct {
	Label    string `json:"etiqueta" validate:"required"`
	Title    string `json:"titulo" validate:"required"`
	Subtitle string `json:"subtitulo"`
}

func (a *proposalAnswer) Normalize() {
	a.Label = SanitizeText(a.Label)
	a.Title = SanitizeText(a.Title)
	a.Subtitle = SanitizeText(a.Subtitle)
}

// stage is one branch of the settle-all fan-out
type stage struct {
	name     string
	required bool
	run      func(ctx context.Context) error
	err      error
}

// settleAll runs every stage concurrently and waits for all of them. A failing
// stage never cancels its siblings; each records its own error.
func settleAll(ctx context.Context, stages []*stage) {
	var g errgroup.Group
	for _, s := range stages {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					s.err = fmt.Errorf("panic in %s: %v", s.name, r)
				}
			}()
			s.err = s.run(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// CasePipeline generates every AI artifact of a case and persists the result
type CasePipeline struct {
	db       *gorm.DB
	gen      ai.Generator
	resolver *SpecialtyResolver
	stores   Stores
	bucket   string
	notifier Notifier
}

// PipelineOptions configures a CasePipeline
type PipelineOptions struct {
	DB           *gorm.DB
	Generator    ai.Generator
	Resolver     *SpecialtyResolver
	Stores       Stores
	SourceBucket string
	Notifier     Notifier
}

// NewCasePipeline creates a pipeline. A nil notifier disables notifications.
func NewCasePipeline(opts PipelineOptions) *CasePipeline {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &CasePipeline{
		db:       opts.DB,
		gen:      opts.Generator,
		resolver: opts.Resolver,
		stores:   opts.Stores,
		bucket:   opts.SourceBucket,
		notifier: notifier,
	}
}

// JobFromCase rebuilds a job from what the latest trigger stored on the case.
// An empty flow uses the stored one. Files still pending from that trigger take
// precedence over documents copied by earlier runs.
func JobFromCase(c *models.Case, flow string) ProcessingJob {
	if flow == "" {
		flow = deref(c.Flujo)
	}
	if flow == "" {
		flow = FlowChat
		if c.TextoOriginal != nil {
			flow = FlowManual
		}
	}

	job := ProcessingJob{
		CaseID:       c.ID,
		Flow:         flow,
		Summary:      deref(c.ResumenCaso),
		Transcript:   deref(c.TranscripcionChat),
		Reason:       deref(c.MotivoConsulta),
		OriginalText: deref(c.TextoOriginal),
	}
	// A previous failure leaves its marker in the summary
	if strings.HasPrefix(job.Summary, ErrorMarkerPrefix) {
		job.Summary = ""
	}
	if len(c.AdjuntosPendientes) > 0 {
		job.Files = append(job.Files, c.AdjuntosPendientes...)
		return job
	}
	for _, a := range c.Documentos {
		job.Files = append(job.Files, a.Source)
	}
	return job
}

// Process runs one processing attempt for job.CaseID:
// pending -> generating -> finalizing -> available, or failed -> draft.
func (p *CasePipeline) Process(ctx context.Context, job ProcessingJob) error {
	started := time.Now()
	flow := job.Flow
	if flow == "" {
		flow = FlowChat
	}

	version, err := BeginProcessingRun(p.db, job.CaseID)
	if err != nil {
		metrics.ObserveRun(flow, metrics.OutcomeFailure, started)
		return err
	}

	log := zap.L().With(
		zap.String("case_id", job.CaseID),
		zap.Int("run_version", version),
		zap.String("flow", flow),
	)
	log.Info("processing run started", zap.Int("files", len(job.Files)))

	summary := p.summaryFor(job)
	caseContext := buildCaseContext(job, summary)

	var (
		guide          string
		classification Classification
		proposal       *models.Proposal
		report         TransferReport
	)

	stages := []*stage{
		{
			name:     "guide",
			required: true,
			run: func(ctx context.Context) error {
				text, err := p.gen.Run(ctx, ai.AssistantGuide, caseContext)
				if err != nil {
					return err
				}
				guide = text
				return nil
			},
		},
		{
			name:     "classification",
			required: true,
			run: func(ctx context.Context) error {
				c, err := p.classify(ctx, caseContext)
				if err != nil {
					return err
				}
				classification = *c
				return nil
			},
		},
		{
			name: "attachments",
			run: func(ctx context.Context) error {
				report = TransferAttachments(ctx, p.stores.Source, p.stores.Destination, p.bucket, job.CaseID, job.Files)
				return nil
			},
		},
	}
	if flow == FlowManual {
		stages = append(stages, &stage{
			name:     "proposal",
			required: true,
			run: func(ctx context.Context) error {
				prop, err := p.propose(ctx, caseContext)
				if err != nil {
					return err
				}
				proposal = prop
				return nil
			},
		})
	}

	settleAll(ctx, stages)

	var failures []string
	if summary == "" {
		failures = append(failures, "summary: no case summary available")
	}
	for _, s := range stages {
		if s.err == nil {
			continue
		}
		if !s.required {
			log.Warn("optional stage failed", zap.String("stage", s.name), zap.Error(s.err))
			continue
		}
		log.Error("required stage failed", zap.String("stage", s.name), zap.Error(s.err))
		failures = append(failures, fmt.Sprintf("%s: %v", s.name, s.err))
	}

	if len(failures) > 0 {
		reason := strings.Join(failures, "; ")
		if err := RevertToDraft(ctx, p.db, p.stores.Destination, job.CaseID, version, reason); err != nil {
			return p.finishWithError(log, flow, started, err)
		}
		metrics.ObserveRun(flow, metrics.OutcomeFailure, started)
		log.Warn("processing run failed, case reverted to draft", zap.String("reason", reason))
		return eris.Wrap(ErrProcessingFailed, reason)
	}

	if err := MarkFinalizing(p.db, job.CaseID, version); err != nil {
		return p.finishWithError(log, flow, started, err)
	}

	in := FinalizeInput{
		Summary:           summary,
		Guide:             guide,
		Classification:    classification,
		Proposal:          proposal,
		Attachments:       report.Attachments,
		UpdateAttachments: len(job.Files) > 0,
	}
	if err := FinalizeCase(ctx, p.db, p.stores.Destination, job.CaseID, version, in); err != nil {
		if !errors.Is(err, ErrStaleProcessingRun) {
			if revertErr := RevertToDraft(ctx, p.db, p.stores.Destination, job.CaseID, version, fmt.Sprintf("persistence: %v", err)); revertErr != nil {
				log.Error("revert after finalize failure", zap.Error(revertErr))
			}
		}
		return p.finishWithError(log, flow, started, err)
	}

	metrics.ObserveRun(flow, metrics.OutcomeSuccess, started)
	log.Info("case available",
		zap.Int("attachments", len(report.Attachments)),
		zap.Int("attachment_failures", len(report.Failures)),
		zap.Duration("elapsed", time.Since(started)),
	)

	p.notifyAvailable(job.CaseID)
	return nil
}

func (p *CasePipeline) finishWithError(log *zap.Logger, flow string, started time.Time, err error) error {
	if errors.Is(err, ErrStaleProcessingRun) {
		metrics.ObserveRun(flow, metrics.OutcomeStale, started)
		log.Info("processing run superseded by a newer run")
		return err
	}
	metrics.ObserveRun(flow, metrics.OutcomeFailure, started)
	log.Error("processing run failed", zap.Error(err))
	return err
}

// summaryFor picks the case summary for a run: the one supplied with the job,
// otherwise the stored reason for consultation.
func (p *CasePipeline) summaryFor(job ProcessingJob) string {
	if s := strings.TrimSpace(job.Summary); s != "" {
		return s
	}
	return strings.TrimSpace(job.Reason)
}

func (p *CasePipeline) classify(ctx context.Context, caseContext string) (*Classification, error) {
	answer, err := p.gen.Run(ctx, ai.AssistantClassifier, caseContext)
	if err != nil {
		return nil, err
	}

	var parsed classificationAnswer
	if err := ai.ParseJSON(answer, &parsed); err != nil {
		return nil, eris.Wrap(err, "parse classification")
	}

	specialtyID, err := p.resolver.Resolve(parsed.Specialty)
	if err != nil {
		return nil, err
	}

	return &Classification{
		Title:          parsed.Title,
		SpecialtyID:    specialtyID,
		LeadTier:       parsed.LeadTier,
		EstimatedValue: parsed.EstimatedValue,
	}, nil
}

func (p *CasePipeline) propose(ctx context.Context, caseContext string) (*models.Proposal, error) {
	answer, err := p.gen.Run(ctx, ai.AssistantProposal, caseContext)
	if err != nil {
		return nil, err
	}

	var parsed proposalAnswer
	if err := ai.ParseJSON(answer, &parsed); err != nil {
		return nil, eris.Wrap(err, "parse proposal")
	}
	return &models.Proposal{Label: parsed.Label, Title: parsed.Title, Subtitle: parsed.Subtitle}, nil
}

// notifyAvailable sends the post-publication notification without blocking the run
func (p *CasePipeline) notifyAvailable(caseID string) {
	go func() {
		c, err := GetCase(p.db, caseID)
		if err != nil {
			zap.L().Warn("load case for notification", zap.String("case_id", caseID), zap.Error(err))
			return
		}
		if err := p.notifier.CaseAvailable(context.Background(), c); err != nil {
			zap.L().Warn("case available notification failed", zap.String("case_id", caseID), zap.Error(err))
		}
	}()
}

func buildCaseContext(job ProcessingJob, summary string) string {
	var b strings.Builder
	if summary != "" {
		fmt.Fprintf(&b, "Resumen del caso:\n%s\n\n", summary)
	}
	if s := strings.TrimSpace(job.Reason); s != "" {
		fmt.Fprintf(&b, "Motivo de consulta:\n%s\n\n", s)
	}
	if s := strings.TrimSpace(job.Transcript); s != "" {
		fmt.Fprintf(&b, "Transcripción de la conversación:\n%s\n\n", s)
	}
	if s := strings.TrimSpace(job.OriginalText); s != "" {
		fmt.Fprintf(&b, "Texto original del cliente:\n%s\n", s)
	}
	return strings.TrimSpace(b.String())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
