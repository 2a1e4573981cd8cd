package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/config"
	"github.com/quotaview/crm-ingress/pkg/model"
	"github.com/quotaview/crm-ingress/pkg/refdata"
)

// SnapshotLoader writes one table's rows for one snapshot date.
type SnapshotLoader interface {
	Load(ctx context.Context, spec model.TableSpec, rows []model.Row, snapshotDate string) (int64, error)
}

// Pipeline runs the full snapshot cycle: reference data, deal fetch and
// enrichment, warehouse load, then the meetings pass.
type Pipeline struct {
	client CRMClient
	loader SnapshotLoader
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(client CRMClient, loader SnapshotLoader, cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		client: client,
		loader: loader,
		cfg:    cfg,
		logger: logger.Named("pipeline"),
	}
}

// Run executes one snapshot run. It always returns a result: failures and
// panics are contained into an error-status result rather than propagated,
// so a scheduled caller can log the outcome and stay alive for the next
// cycle.
func (p *Pipeline) Run(ctx context.Context) (result *RunResult) {
	start := time.Now().UTC()
	snapshot := NewSnapshotStamp(start)

	result = &RunResult{
		RunID:    uuid.NewString(),
		Status:   StatusError,
		Pipeline: p.cfg.TargetPipeline,
		Snapshot: snapshot,
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline run panicked", zap.Any("panic", r), zap.Stack("stack"))
			result.Status = StatusError
			result.Message = fmt.Sprintf("pipeline panicked: %v", r)
		}
		result.ExecutionTime = time.Since(start)
	}()

	logger := p.logger.With(zap.String("run_id", result.RunID))
	logger.Info("starting snapshot run",
		zap.String("target_pipeline", p.cfg.TargetPipeline),
		zap.Time("snapshot_timestamp", snapshot.Timestamp))

	fetcher := NewFetcher(p.client, p.cfg.PageSize, p.cfg.MaxRetries, p.cfg.RetryDelay, logger)

	// Reference data degrades rather than aborts: labels fall back to raw
	// ids and owner attribution to empty strings.
	pipelines, err := refdata.LoadPipelines(ctx, p.client, p.cfg.TargetPipeline, logger)
	if err != nil {
		logger.Warn("could not fetch pipelines, labels will fall back to raw ids", zap.Error(err))
		pipelines = &refdata.Pipelines{
			Labels: map[string]string{},
			Stages: map[string]refdata.StageInfo{},
		}
	}

	owners, err := refdata.LoadOwners(ctx, p.client, logger)
	if err != nil {
		logger.Warn("could not fetch owners, attribution will be empty", zap.Error(err))
		owners = refdata.Owners{}
	}

	result.Stats.PipelinesFetched = len(pipelines.Labels)
	result.Stats.OwnersFetched = len(owners)

	properties := fetcher.DealProperties(ctx)

	deals, err := fetcher.FetchAllDeals(ctx, properties, pipelines.TargetID)
	if err != nil {
		result.Message = fmt.Sprintf("deal fetch failed: %v", err)
		logger.Error("deal fetch failed, aborting run", zap.Error(err))
		return result
	}
	result.Stats.DealsExtracted = len(deals)

	if len(deals) == 0 {
		logger.Warn("no deals found in target pipeline",
			zap.String("target_pipeline", p.cfg.TargetPipeline))
		result.Status = StatusSuccess
		result.Message = fmt.Sprintf("no deals found in pipeline %s", p.cfg.TargetPipeline)
		return result
	}

	transformer := NewTransformer(p.client, pipelines, owners, p.cfg.MaxContacts, p.cfg.ContactRetries, logger)
	dealRows := transformer.TransformDeals(ctx, deals, snapshot, &result.Stats)

	for _, row := range dealRows {
		if !row.IsOpen {
			continue
		}
		result.OpenDeals++
		if row.Amount != nil {
			result.TotalPipeline += *row.Amount
		}
		if row.WeightedAmount != nil {
			result.WeightedPipeline += *row.WeightedAmount
		}
	}

	dealsLoaded, err := p.loader.Load(ctx, model.DealTableSpec(p.cfg.Warehouse.DealTable), asRows(dealRows), snapshot.Date)
	if err != nil {
		result.Message = fmt.Sprintf("deal load failed: %v", err)
		logger.Error("deal load failed, aborting run", zap.Error(err))
		return result
	}
	result.Stats.DealsLoaded = dealsLoaded

	// The meetings pass is independent of the deal pass: once deals are
	// loaded, a meetings failure downgrades to a warning.
	p.runMeetings(ctx, fetcher, transformer, snapshot, result, logger)

	result.Status = StatusSuccess
	result.Message = fmt.Sprintf("snapshot completed for %s", p.cfg.TargetPipeline)
	return result
}

func (p *Pipeline) runMeetings(ctx context.Context, fetcher *Fetcher, transformer *Transformer, snapshot SnapshotStamp, result *RunResult, logger *zap.Logger) {
	logger.Info("starting meetings pass")

	meetings, err := fetcher.FetchAllMeetings(ctx)
	if err != nil {
		logger.Warn("meeting fetch failed, skipping meetings pass", zap.Error(err))
		return
	}
	result.Stats.MeetingsExtracted = len(meetings)

	if len(meetings) == 0 {
		logger.Info("no meetings to snapshot")
		return
	}

	meetingRows := transformer.TransformMeetings(ctx, meetings, snapshot)

	loaded, err := p.loader.Load(ctx, model.MeetingTableSpec(p.cfg.Warehouse.MeetingTable), asMeetingRows(meetingRows), snapshot.Date)
	if err != nil {
		logger.Warn("meeting load failed", zap.Error(err))
		return
	}
	result.Stats.MeetingsLoaded = loaded

	logger.Info("meetings pass complete",
		zap.Int("extracted", len(meetings)),
		zap.Int64("loaded", loaded))
}

func asRows(deals []*model.DealSnapshot) []model.Row {
	rows := make([]model.Row, len(deals))
	for i, d := range deals {
		rows[i] = d
	}
	return rows
}

func asMeetingRows(meetings []*model.MeetingSnapshot) []model.Row {
	rows := make([]model.Row, len(meetings))
	for i, m := range meetings {
		rows[i] = m
	}
	return rows
}
