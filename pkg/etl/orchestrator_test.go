package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/config"
	"github.com/quotaview/crm-ingress/pkg/hubspot"
	"github.com/quotaview/crm-ingress/pkg/model"
)

// fakeLoader records Load calls and can fail on demand.
type fakeLoader struct {
	loads []loadCall
	fail  error
}

type loadCall struct {
	table        string
	rows         int
	snapshotDate string
}

func (f *fakeLoader) Load(_ context.Context, spec model.TableSpec, rows []model.Row, snapshotDate string) (int64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	f.loads = append(f.loads, loadCall{table: spec.Name, rows: len(rows), snapshotDate: snapshotDate})
	return int64(len(rows)), nil
}

func testConfig() *config.Config {
	return &config.Config{
		TargetPipeline: "New Business",
		PageSize:       100,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		MaxContacts:    10,
		ContactRetries: 2,
		Warehouse: &config.WarehouseConfig{
			Backend:      "postgres",
			Schema:       "hubspot_data",
			DealTable:    "deals_snapshot",
			MeetingTable: "meetings_snapshot",
		},
	}
}

// happyClient serves one pipeline, one owner, one deal, and one meeting.
func happyClient() *fakeClient {
	return &fakeClient{
		listPipelines: func(string) (*hubspot.PipelineList, error) {
			return &hubspot.PipelineList{Results: []hubspot.Pipeline{{
				ID:    "p1",
				Label: "New Business",
				Stages: []hubspot.Stage{
					{ID: "s1", Label: "Discovery", DisplayOrder: 0},
				},
			}}}, nil
		},
		listOwners: func(_ string, archived bool) (*hubspot.OwnerPage, error) {
			if archived {
				return &hubspot.OwnerPage{}, nil
			}
			return &hubspot.OwnerPage{Results: []hubspot.Owner{
				{ID: "o1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
			}}, nil
		},
		listPage: func(objectType string, _ []string, _ int, _ string) (*hubspot.ObjectPage, error) {
			switch objectType {
			case hubspot.ObjectTypeDeals:
				return pageFrom("", dealObject("d1", map[string]string{
					"hs_object_id":              "d1",
					"pipeline":                  "p1",
					"dealstage":                 "s1",
					"hubspot_owner_id":          "o1",
					"amount":                    "1000",
					"hs_deal_stage_probability": "0.5",
				})), nil
			case hubspot.ObjectTypeMeetings:
				return pageFrom("", hubspot.Object{ID: "m1", Properties: map[string]string{
					"hs_meeting_title": "Kickoff",
				}}), nil
			default:
				return &hubspot.ObjectPage{}, nil
			}
		},
	}
}

func TestPipelineRunHappyPath(t *testing.T) {
	loader := &fakeLoader{}
	p := NewPipeline(happyClient(), loader, testConfig(), zap.NewNop())

	result := p.Run(context.Background())

	assert.Equal(t, StatusSuccess, result.Status)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.Stats.DealsExtracted)
	assert.Equal(t, int64(1), result.Stats.DealsLoaded)
	assert.Equal(t, 1, result.Stats.MeetingsExtracted)
	assert.Equal(t, int64(1), result.Stats.MeetingsLoaded)
	assert.Equal(t, 1, result.OpenDeals)
	assert.InDelta(t, 1000.0, result.TotalPipeline, 0.001)
	assert.InDelta(t, 500.0, result.WeightedPipeline, 0.001)

	require.Len(t, loader.loads, 2)
	assert.Equal(t, "deals_snapshot", loader.loads[0].table)
	assert.Equal(t, "meetings_snapshot", loader.loads[1].table)
	assert.Equal(t, result.Snapshot.Date, loader.loads[0].snapshotDate)
}

func TestPipelineRunNoDealsIsSuccess(t *testing.T) {
	client := happyClient()
	client.listPage = func(objectType string, _ []string, _ int, _ string) (*hubspot.ObjectPage, error) {
		return &hubspot.ObjectPage{}, nil
	}

	loader := &fakeLoader{}
	p := NewPipeline(client, loader, testConfig(), zap.NewNop())

	result := p.Run(context.Background())

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Contains(t, result.Message, "no deals found")
	assert.Equal(t, 0, result.Stats.DealsExtracted)
	// Nothing loaded, existing snapshots untouched.
	assert.Empty(t, loader.loads)
}

func TestPipelineRunDealFetchFailureIsContained(t *testing.T) {
	client := happyClient()
	client.listPage = func(objectType string, _ []string, _ int, _ string) (*hubspot.ObjectPage, error) {
		return nil, &hubspot.APIError{StatusCode: 401, Method: "GET", Path: "/crm/v3/objects/deals"}
	}

	p := NewPipeline(client, &fakeLoader{}, testConfig(), zap.NewNop())

	result := p.Run(context.Background())

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "deal fetch failed")
	assert.NotZero(t, result.ExecutionTime)
}

func TestPipelineRunDealLoadFailureIsContained(t *testing.T) {
	loader := &fakeLoader{fail: errors.New("warehouse down")}
	p := NewPipeline(happyClient(), loader, testConfig(), zap.NewNop())

	result := p.Run(context.Background())

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "deal load failed")
}

func TestPipelineRunMeetingFailureDoesNotFailRun(t *testing.T) {
	client := happyClient()
	base := client.listPage
	client.listPage = func(objectType string, props []string, limit int, after string) (*hubspot.ObjectPage, error) {
		if objectType == hubspot.ObjectTypeMeetings {
			return nil, &hubspot.APIError{StatusCode: 403, Method: "GET", Path: "/crm/v3/objects/meetings"}
		}
		return base(objectType, props, limit, after)
	}

	loader := &fakeLoader{}
	p := NewPipeline(client, loader, testConfig(), zap.NewNop())

	result := p.Run(context.Background())

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, int64(1), result.Stats.DealsLoaded)
	assert.Equal(t, 0, result.Stats.MeetingsExtracted)
	assert.Equal(t, int64(0), result.Stats.MeetingsLoaded)
}

func TestPipelineRunReferenceDataFailureDegrades(t *testing.T) {
	client := happyClient()
	client.listPipelines = func(string) (*hubspot.PipelineList, error) {
		return nil, errors.New("pipelines unavailable")
	}
	client.listOwners = func(string, bool) (*hubspot.OwnerPage, error) {
		return nil, errors.New("owners unavailable")
	}

	loader := &fakeLoader{}
	p := NewPipeline(client, loader, testConfig(), zap.NewNop())

	result := p.Run(context.Background())

	// Without pipeline reference data there is no filter, but the run
	// still completes with raw ids in place of labels.
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, result.Stats.DealsExtracted)
	assert.Equal(t, 0, result.Stats.PipelinesFetched)
	assert.Equal(t, 0, result.Stats.OwnersFetched)
}
