// pkg/refdata/pipelines.go
package refdata

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/hubspot"
)

// PipelineAPI is the slice of the CRM client needed to load pipeline
// reference data.
type PipelineAPI interface {
	ListPipelines(ctx context.Context, objectType string) (*hubspot.PipelineList, error)
}

// StageInfo is the flattened view of one pipeline stage, keyed globally by
// stage id. Stage ids are unique across pipelines, so a single map covers
// every pipeline at once.
type StageInfo struct {
	Label        string
	PipelineID   string
	DisplayOrder int
}

// Pipelines holds the pipeline and stage lookup tables for one run.
type Pipelines struct {
	// Labels maps pipeline id to pipeline label.
	Labels map[string]string

	// Stages maps stage id to its flattened stage info.
	Stages map[string]StageInfo

	// TargetID is the id of the pipeline whose label matched the
	// configured target, or "" when no pipeline matched.
	TargetID string
}

// StageLabel returns the display label for a stage id, falling back to the
// raw id when the stage is unknown.
func (p *Pipelines) StageLabel(stageID string) string {
	if info, ok := p.Stages[stageID]; ok {
		return info.Label
	}
	return stageID
}

// PipelineLabel returns the display label for a pipeline id, falling back to
// the raw id when the pipeline is unknown.
func (p *Pipelines) PipelineLabel(pipelineID string) string {
	if label, ok := p.Labels[pipelineID]; ok {
		return label
	}
	return pipelineID
}

// LoadPipelines fetches deal pipelines and builds the lookup tables. The
// target label is matched case-insensitively after trimming; when nothing
// matches, TargetID is left empty and the available labels are logged so the
// misconfiguration is visible without failing the run.
func LoadPipelines(ctx context.Context, api PipelineAPI, targetLabel string, logger *zap.Logger) (*Pipelines, error) {
	list, err := api.ListPipelines(ctx, hubspot.ObjectTypeDeals)
	if err != nil {
		return nil, err
	}

	p := &Pipelines{
		Labels: make(map[string]string, len(list.Results)),
		Stages: make(map[string]StageInfo),
	}

	want := strings.ToLower(strings.TrimSpace(targetLabel))
	available := make([]string, 0, len(list.Results))

	for _, pipeline := range list.Results {
		p.Labels[pipeline.ID] = pipeline.Label
		available = append(available, pipeline.Label)

		for _, stage := range pipeline.Stages {
			p.Stages[stage.ID] = StageInfo{
				Label:        stage.Label,
				PipelineID:   pipeline.ID,
				DisplayOrder: stage.DisplayOrder,
			}
		}

		if strings.ToLower(strings.TrimSpace(pipeline.Label)) == want {
			p.TargetID = pipeline.ID
		}
	}

	if p.TargetID == "" {
		logger.Warn("target pipeline not found, no pipeline filter will be applied",
			zap.String("target", targetLabel),
			zap.Strings("available", available))
	} else {
		logger.Info("resolved target pipeline",
			zap.String("target", targetLabel),
			zap.String("pipeline_id", p.TargetID),
			zap.Int("stages", len(p.Stages)))
	}

	return p, nil
}
