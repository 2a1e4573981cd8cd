package etl

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/hubspot"
)

// CRMClient is the slice of the API client the pipeline depends on.
type CRMClient interface {
	ListPage(ctx context.Context, objectType string, properties []string, limit int, after string) (*hubspot.ObjectPage, error)
	GetByID(ctx context.Context, objectType, id string, properties []string) (*hubspot.Object, error)
	ListAssociations(ctx context.Context, fromType, id, toType string) (*hubspot.AssociationPage, error)
	ListPipelines(ctx context.Context, objectType string) (*hubspot.PipelineList, error)
	ListOwners(ctx context.Context, after string, archived bool) (*hubspot.OwnerPage, error)
	ListProperties(ctx context.Context, objectType string) (*hubspot.PropertyList, error)
}

// defaultDealProperties is the fallback property set used when the
// property-definition listing is unavailable.
var defaultDealProperties = []string{
	"hs_object_id", "dealname", "dealtype", "amount", "deal_currency_code",
	"hs_tcv", "hs_acv", "hs_arr", "hs_mrr", "dealstage", "pipeline",
	"hs_deal_stage_probability", "closedate", "createdate", "hs_lastmodifieddate",
	"notes_last_updated", "notes_last_contacted", "hs_date_entered_closedwon",
	"hs_date_entered_closedlost", "hubspot_owner_id", "hs_forecast_category",
	"hs_forecast_probability", "hs_manual_forecast_category", "hs_priority",
	"hs_next_step", "num_associated_contacts", "num_contacted_notes", "num_notes",
	"engagements_last_meeting_booked", "hs_latest_meeting_activity",
	"hs_sales_email_last_replied", "closed_lost_reason", "closed_won_reason",
	"description",
}

// meetingProperties is the fixed property set requested for meeting records.
var meetingProperties = []string{
	"hs_meeting_title",
	"hs_meeting_outcome",
	"hs_meeting_start_time",
	"hs_meeting_end_time",
	"hs_timestamp",
	"hs_meeting_body",
	"hs_internal_meeting_notes",
	"hs_meeting_location",
	"hs_meeting_external_url",
	"hubspot_owner_id",
	"hs_createdate",
	"hs_lastmodifieddate",
	"hs_created_by_user_id",
	"hs_meeting_source",
}

// Fetcher pulls paginated object listings from the CRM with page-level
// retry handling.
type Fetcher struct {
	client     CRMClient
	pageSize   int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client CRMClient, pageSize, maxRetries int, retryDelay time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:     client,
		pageSize:   pageSize,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger.Named("fetcher"),
	}
}

// DealProperties discovers every property defined on the deal object so new
// CRM fields flow into the snapshot's property bag without code changes.
// Falls back to the fixed default set when discovery fails.
func (f *Fetcher) DealProperties(ctx context.Context) []string {
	list, err := f.client.ListProperties(ctx, hubspot.ObjectTypeDeals)
	if err != nil {
		f.logger.Warn("could not fetch deal properties, using default set",
			zap.Int("defaults", len(defaultDealProperties)),
			zap.Error(err))
		return defaultDealProperties
	}

	properties := make([]string, 0, len(list.Results))
	for _, p := range list.Results {
		properties = append(properties, p.Name)
	}

	f.logger.Info("discovered deal properties", zap.Int("count", len(properties)))
	return properties
}

// FetchAllDeals walks the full deal listing. When targetPipelineID is
// non-empty, records from other pipelines are dropped client-side since the
// listing endpoint cannot filter server-side. A page that fails all retries
// aborts the fetch: a partial listing would silently shrink the snapshot.
func (f *Fetcher) FetchAllDeals(ctx context.Context, properties []string, targetPipelineID string) ([]hubspot.Object, error) {
	var all []hubspot.Object
	after := ""
	pageCount := 0

	f.logger.Info("starting deal fetch",
		zap.String("target_pipeline_id", targetPipelineID))

	for {
		pageCount++

		var page *hubspot.ObjectPage
		err := withRetry(ctx, f.logger, f.maxRetries, backoff.NewConstantBackOff(f.retryDelay), "fetch deals page", func() error {
			var fetchErr error
			page, fetchErr = f.client.ListPage(ctx, hubspot.ObjectTypeDeals, properties, f.pageSize, after)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}

		kept := 0
		for _, deal := range page.Results {
			if targetPipelineID != "" && deal.Property("pipeline") != targetPipelineID {
				continue
			}
			all = append(all, deal)
			kept++
		}

		f.logger.Info("fetched deals page",
			zap.Int("page", pageCount),
			zap.Int("fetched", len(page.Results)),
			zap.Int("in_target_pipeline", kept),
			zap.Int("total", len(all)))

		after = page.NextCursor()
		if after == "" {
			f.logger.Info("completed deal fetch", zap.Int("total", len(all)))
			return all, nil
		}
	}
}

// FetchAllMeetings walks the full meeting listing with the same page retry
// policy as deals.
func (f *Fetcher) FetchAllMeetings(ctx context.Context) ([]hubspot.Object, error) {
	var all []hubspot.Object
	after := ""
	pageCount := 0

	f.logger.Info("starting meeting fetch")

	for {
		pageCount++

		var page *hubspot.ObjectPage
		err := withRetry(ctx, f.logger, f.maxRetries, backoff.NewConstantBackOff(f.retryDelay), "fetch meetings page", func() error {
			var fetchErr error
			page, fetchErr = f.client.ListPage(ctx, hubspot.ObjectTypeMeetings, meetingProperties, f.pageSize, after)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}

		all = append(all, page.Results...)

		f.logger.Info("fetched meetings page",
			zap.Int("page", pageCount),
			zap.Int("fetched", len(page.Results)),
			zap.Int("total", len(all)))

		after = page.NextCursor()
		if after == "" {
			f.logger.Info("completed meeting fetch", zap.Int("total", len(all)))
			return all, nil
		}
	}
}
