package etl

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/converter"
	"github.com/quotaview/crm-ingress/pkg/hubspot"
	"github.com/quotaview/crm-ingress/pkg/model"
	"github.com/quotaview/crm-ingress/pkg/refdata"
)

// Transformer enriches raw CRM records into snapshot rows: label
// resolution, owner attribution, association enrichment, timestamp
// normalization, and the derived analytics fields.
type Transformer struct {
	normalizer   *converter.Normalizer
	stageRules   StageRules
	pipelines    *refdata.Pipelines
	owners       refdata.Owners
	associations *associationFetcher
	logger       *zap.Logger
}

// NewTransformer creates a Transformer bound to one run's reference data.
func NewTransformer(client CRMClient, pipelines *refdata.Pipelines, owners refdata.Owners, maxContacts, contactRetries int, logger *zap.Logger) *Transformer {
	return &Transformer{
		normalizer:   converter.NewNormalizer(logger),
		stageRules:   DefaultStageRules(),
		pipelines:    pipelines,
		owners:       owners,
		associations: newAssociationFetcher(client, maxContacts, contactRetries, logger),
		logger:       logger.Named("transform"),
	}
}

// TransformDeals converts raw deals into snapshot rows stamped with the
// supplied snapshot instant. Association fetching happens here, one deal at
// a time; a deal whose enrichment fails still produces a row.
func (t *Transformer) TransformDeals(ctx context.Context, deals []hubspot.Object, snapshot SnapshotStamp, stats *RunStats) []*model.DealSnapshot {
	t.logger.Info("transforming deals", zap.Int("count", len(deals)))

	rows := make([]*model.DealSnapshot, 0, len(deals))
	dealsWithContacts := 0
	totalContacts := 0

	for idx, deal := range deals {
		if idx%20 == 0 {
			t.logger.Info("processing deal",
				zap.Int("index", idx+1),
				zap.Int("total", len(deals)))
		}

		contacts := t.associations.FetchContacts(ctx, deal.ID)
		company := t.associations.FetchCompany(ctx, deal.ID)

		if len(contacts) > 0 {
			dealsWithContacts++
			totalContacts += len(contacts)
		}

		rows = append(rows, t.transformDeal(deal, contacts, company, snapshot))
	}

	stats.DealsWithContacts = dealsWithContacts
	stats.ContactsFetched = totalContacts

	t.logger.Info("deal transformation complete",
		zap.Int("rows", len(rows)),
		zap.Int("deals_with_contacts", dealsWithContacts),
		zap.Int("contacts_fetched", totalContacts))

	if len(deals) > 0 && dealsWithContacts == 0 {
		t.logger.Warn("no contacts fetched for any deal, check contact read scopes on the API token")
	}

	return rows
}

func (t *Transformer) transformDeal(deal hubspot.Object, contacts []Contact, company Company, snapshot SnapshotStamp) *model.DealSnapshot {
	dealID := deal.Property("hs_object_id")
	if dealID == "" {
		dealID = deal.ID
	}

	pipelineID := deal.Property("pipeline")
	stageID := deal.Property("dealstage")
	stageLabel := t.pipelines.StageLabel(stageID)
	pipelineLabel := t.pipelines.PipelineLabel(pipelineID)

	ownerID := deal.Property("hubspot_owner_id")
	ownerName := t.owners.Name(ownerID)
	ownerEmail := t.owners.Email(ownerID)
	if ownerID != "" && ownerName == "" {
		t.logger.Warn("owner not found in reference data",
			zap.String("deal_id", dealID),
			zap.String("owner_id", ownerID))
	}

	createDate := t.normalizer.Timestamp(deal.Property("createdate"))
	closeDate := t.normalizer.Timestamp(deal.Property("closedate"))

	var daysSinceCreated *int64
	if createDate != nil {
		d := daysBetween(*createDate, snapshot.Timestamp)
		daysSinceCreated = &d
	}

	// Stage tenure comes from the per-stage entry date property. When the
	// CRM doesn't expose it for this stage, total deal age stands in; the
	// imprecision is acceptable for traffic-light aging.
	daysInStage := daysSinceCreated
	if stageID != "" {
		if entered := t.normalizer.Timestamp(deal.Property("hs_date_entered_" + stageID)); entered != nil {
			d := daysBetween(*entered, snapshot.Timestamp)
			daysInStage = &d
		}
	}

	var daysToClose *int64
	if closeDate != nil {
		d := daysBetween(snapshot.Timestamp, *closeDate)
		daysToClose = &d
	}

	isOpen, isWon, isLost := dealOutcome(stageLabel)

	amount := converter.SafeFloat(deal.Property("amount"))
	probability := converter.SafeFloat(deal.Property("hs_deal_stage_probability"))
	var weightedAmount *float64
	if amount != nil && probability != nil {
		w := *amount * *probability
		weightedAmount = &w
	}

	primary := Contact{}
	if len(contacts) > 0 {
		primary = contacts[0]
	}

	var allContactsJSON *string
	if len(contacts) > 0 {
		if encoded, err := json.Marshal(contacts); err == nil {
			s := string(encoded)
			allContactsJSON = &s
		}
	}

	return &model.DealSnapshot{
		DealID:   dealID,
		DealName: optionalProp(deal, "dealname"),
		DealType: optionalProp(deal, "dealtype"),

		Amount:       amount,
		CurrencyCode: optionalProp(deal, "deal_currency_code"),
		TCV:          converter.SafeFloat(deal.Property("hs_tcv")),
		ACV:          converter.SafeFloat(deal.Property("hs_acv")),
		ARR:          converter.SafeFloat(deal.Property("hs_arr")),
		MRR:          converter.SafeFloat(deal.Property("hs_mrr")),

		StageID:       stageID,
		StageLabel:    stageLabel,
		PipelineID:    pipelineID,
		PipelineLabel: pipelineLabel,
		Probability:   probability,

		CloseDate:         closeDate,
		CreateDate:        createDate,
		LastModifiedDate:  t.normalizer.Timestamp(deal.Property("hs_lastmodifieddate")),
		NotesLastUpdated:  t.normalizer.Timestamp(deal.Property("notes_last_updated")),
		NotesLastContact:  t.normalizer.Timestamp(deal.Property("notes_last_contacted")),
		EnteredClosedWon:  t.normalizer.Timestamp(deal.Property("hs_date_entered_closedwon")),
		EnteredClosedLost: t.normalizer.Timestamp(deal.Property("hs_date_entered_closedlost")),

		OwnerID:    ownerID,
		OwnerName:  ownerName,
		OwnerEmail: ownerEmail,

		ForecastCategory:       optionalProp(deal, "hs_forecast_category"),
		ForecastProbability:    converter.SafeFloat(deal.Property("hs_forecast_probability")),
		ManualForecastCategory: optionalProp(deal, "hs_manual_forecast_category"),
		Priority:               optionalProp(deal, "hs_priority"),
		NextStep:               optionalProp(deal, "hs_next_step"),

		NumAssociatedContacts: converter.SafeInt(deal.Property("num_associated_contacts")),
		NumContactedNotes:     converter.SafeInt(deal.Property("num_contacted_notes")),
		NumNotes:              converter.SafeInt(deal.Property("num_notes")),
		LastMeetingBooked:     t.normalizer.Timestamp(deal.Property("engagements_last_meeting_booked")),
		LatestMeetingActivity: t.normalizer.Timestamp(deal.Property("hs_latest_meeting_activity")),
		LastEmailReplied:      t.normalizer.Timestamp(deal.Property("hs_sales_email_last_replied")),

		ClosedLostReason: optionalProp(deal, "closed_lost_reason"),
		ClosedWonReason:  optionalProp(deal, "closed_won_reason"),

		Description:       optionalProp(deal, "description"),
		AllPropertiesJSON: propertiesJSON(deal),

		ContactCount:           int64(len(contacts)),
		PrimaryContactID:       primary.ID,
		PrimaryContactName:     primary.Name,
		PrimaryContactEmail:    primary.Email,
		PrimaryContactPhone:    primary.Phone,
		PrimaryContactJobTitle: primary.JobTitle,
		PrimaryContactCompany:  primary.Company,
		AllContactsJSON:        allContactsJSON,

		CompanyID:        company.ID,
		CompanyName:      company.Name,
		CompanyDomain:    company.Domain,
		CompanyIndustry:  company.Industry,
		CompanyCountry:   company.Country,
		CompanyCity:      company.City,
		CompanyRevenue:   company.Revenue,
		CompanyEmployees: company.Employees,

		DaysInCurrentStage: daysInStage,
		DaysSinceCreated:   daysSinceCreated,
		DaysToClose:        daysToClose,
		WeightedAmount:     weightedAmount,
		IsOpen:             isOpen,
		IsWon:              isWon,
		IsLost:             isLost,
		DealAgeStatus:      t.stageRules.Classify(daysInStage, stageLabel),

		SnapshotTimestamp: snapshot.Timestamp,
		SnapshotDate:      snapshot.Date,
	}
}

// optionalProp returns a pointer to a property value, or nil when absent.
func optionalProp(obj hubspot.Object, name string) *string {
	v := obj.Property(name)
	if v == "" {
		return nil
	}
	return &v
}

// propertiesJSON serializes the non-empty properties of a record. The blob
// preserves fields the typed columns don't cover.
func propertiesJSON(obj hubspot.Object) *string {
	filtered := make(map[string]string, len(obj.Properties))
	for k, v := range obj.Properties {
		if v != "" {
			filtered[k] = v
		}
	}

	encoded, err := json.Marshal(filtered)
	if err != nil {
		return nil
	}
	s := string(encoded)
	return &s
}
