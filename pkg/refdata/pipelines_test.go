package refdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/hubspot"
)

type fakePipelineAPI struct {
	list *hubspot.PipelineList
	err  error
}

func (f *fakePipelineAPI) ListPipelines(context.Context, string) (*hubspot.PipelineList, error) {
	return f.list, f.err
}

func twoPipelines() *hubspot.PipelineList {
	return &hubspot.PipelineList{Results: []hubspot.Pipeline{
		{
			ID:    "p1",
			Label: "New Business",
			Stages: []hubspot.Stage{
				{ID: "s1", Label: "Discovery", DisplayOrder: 0},
				{ID: "s2", Label: "Closed Won", DisplayOrder: 1},
			},
		},
		{
			ID:    "p2",
			Label: "Renewals",
			Stages: []hubspot.Stage{
				{ID: "s3", Label: "Renewal Due", DisplayOrder: 0},
			},
		},
	}}
}

func TestLoadPipelinesResolvesTarget(t *testing.T) {
	api := &fakePipelineAPI{list: twoPipelines()}

	p, err := LoadPipelines(context.Background(), api, "New Business", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "p1", p.TargetID)
	assert.Equal(t, "New Business", p.PipelineLabel("p1"))
	assert.Equal(t, "Discovery", p.StageLabel("s1"))
	assert.Equal(t, "Renewal Due", p.StageLabel("s3"))
	assert.Equal(t, "p2", p.Stages["s3"].PipelineID)
}

func TestLoadPipelinesTargetMatchIsCaseInsensitive(t *testing.T) {
	api := &fakePipelineAPI{list: twoPipelines()}

	p, err := LoadPipelines(context.Background(), api, "  new business ", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "p1", p.TargetID)
}

func TestLoadPipelinesMissingTarget(t *testing.T) {
	api := &fakePipelineAPI{list: twoPipelines()}

	p, err := LoadPipelines(context.Background(), api, "Enterprise", zap.NewNop())
	require.NoError(t, err)

	// No match leaves the filter off; labels still resolve.
	assert.Empty(t, p.TargetID)
	assert.Equal(t, "Renewals", p.PipelineLabel("p2"))
}

func TestLoadPipelinesError(t *testing.T) {
	api := &fakePipelineAPI{err: errors.New("api down")}

	_, err := LoadPipelines(context.Background(), api, "New Business", zap.NewNop())
	assert.Error(t, err)
}

func TestLookupFallbacks(t *testing.T) {
	p := &Pipelines{
		Labels: map[string]string{},
		Stages: map[string]StageInfo{},
	}

	assert.Equal(t, "raw-stage", p.StageLabel("raw-stage"))
	assert.Equal(t, "raw-pipeline", p.PipelineLabel("raw-pipeline"))
}
