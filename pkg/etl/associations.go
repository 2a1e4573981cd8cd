package etl

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/converter"
	"github.com/quotaview/crm-ingress/pkg/hubspot"
)

// contactProperties is the property set requested for associated contacts.
var contactProperties = []string{
	"firstname",
	"lastname",
	"email",
	"phone",
	"mobilephone",
	"jobtitle",
	"company",
	"lifecyclestage",
	"hs_lead_status",
	"country",
	"city",
	"state",
	"address",
	"zip",
	"website",
	"industry",
	"annualrevenue",
	"numberofemployees",
	"createdate",
	"lastmodifieddate",
	"notes_last_contacted",
	"notes_last_updated",
	"hs_email_last_email_name",
	"hs_email_last_open_date",
	"hs_email_last_click_date",
	"hs_analytics_source",
	"hs_analytics_first_url",
	"hubspot_owner_id",
}

// companyProperties is the property set requested for the associated company.
var companyProperties = []string{
	"name", "domain", "industry", "country", "city", "annualrevenue", "numberofemployees",
}

// Contact is a resolved deal contact. The JSON tags define the layout of
// the all_contacts_json column.
type Contact struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstname"`
	LastName       string `json:"lastname"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	JobTitle       string `json:"jobtitle"`
	Company        string `json:"company"`
	LifecycleStage string `json:"lifecyclestage"`
	Country        string `json:"country"`
	City           string `json:"city"`
}

// Company is the resolved primary company for a deal.
type Company struct {
	ID        string
	Name      string
	Domain    string
	Industry  string
	Country   string
	City      string
	Revenue   *float64
	Employees *int64
}

// MeetingAssociations holds the related record ids for one meeting.
type MeetingAssociations struct {
	DealIDs    []string
	ContactIDs []string
	CompanyIDs []string
}

// associationFetcher resolves related records one deal or meeting at a
// time. Failures here degrade the record rather than the run: a deal with
// unreachable contacts still snapshots, just without contact enrichment.
type associationFetcher struct {
	client      CRMClient
	maxContacts int
	maxRetries  int
	logger      *zap.Logger
}

func newAssociationFetcher(client CRMClient, maxContacts, maxRetries int, logger *zap.Logger) *associationFetcher {
	return &associationFetcher{
		client:      client,
		maxContacts: maxContacts,
		maxRetries:  maxRetries,
		logger:      logger.Named("associations"),
	}
}

// FetchContacts resolves the contacts associated with a deal, capped at
// maxContacts. The association listing is retried on transient failures;
// permission failures are reported once and skipped. Individual contact
// lookups retry only on connection-level errors, matching the taxonomy in
// the hubspot package: an API-level rejection for one contact will reject
// again, so it is logged and skipped.
func (af *associationFetcher) FetchContacts(ctx context.Context, dealID string) []Contact {
	var page *hubspot.AssociationPage
	err := withRetry(ctx, af.logger, af.maxRetries, transientBackoff(), "fetch deal contact associations", func() error {
		var fetchErr error
		page, fetchErr = af.client.ListAssociations(ctx, hubspot.ObjectTypeDeals, dealID, hubspot.ObjectTypeContacts)
		return fetchErr
	})
	if err != nil {
		af.logger.Warn("could not fetch contact associations, continuing without contacts",
			zap.String("deal_id", dealID),
			zap.Error(err))
		return nil
	}

	contactIDs := make([]string, 0, af.maxContacts)
	for _, assoc := range page.Results {
		if len(contactIDs) >= af.maxContacts {
			break
		}
		contactIDs = append(contactIDs, strconv.FormatInt(assoc.ToObjectID, 10))
	}

	contacts := make([]Contact, 0, len(contactIDs))
	for _, contactID := range contactIDs {
		contact, ok := af.fetchContact(ctx, contactID)
		if ok {
			contacts = append(contacts, contact)
		}
	}
	return contacts
}

// fetchContact resolves one contact with bounded retries for network-level
// failures only.
func (af *associationFetcher) fetchContact(ctx context.Context, contactID string) (Contact, bool) {
	transient := transientBackoff()

	for attempt := 1; attempt <= af.maxRetries; attempt++ {
		obj, err := af.client.GetByID(ctx, hubspot.ObjectTypeContacts, contactID, contactProperties)
		if err == nil {
			return contactFromObject(contactID, obj), true
		}

		if hubspot.IsPermission(err) {
			af.logger.Error("permission error fetching contact, check contacts read scope",
				zap.String("contact_id", contactID),
				zap.Error(err))
			return Contact{}, false
		}

		var apiErr *hubspot.APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			af.logger.Warn("could not fetch contact",
				zap.String("contact_id", contactID),
				zap.Error(err))
			return Contact{}, false
		}

		if attempt == af.maxRetries {
			af.logger.Warn("failed to fetch contact after retries",
				zap.String("contact_id", contactID),
				zap.Int("attempts", af.maxRetries),
				zap.Error(err))
			return Contact{}, false
		}

		wait := transient.NextBackOff()
		af.logger.Warn("transient error fetching contact, retrying",
			zap.String("contact_id", contactID),
			zap.Duration("wait", wait),
			zap.Int("attempt", attempt))
		if sleepCtx(ctx, wait) != nil {
			return Contact{}, false
		}
	}
	return Contact{}, false
}

// FetchCompany resolves the first associated company for a deal. This is a
// best-effort enrichment: every failure path yields an empty Company.
func (af *associationFetcher) FetchCompany(ctx context.Context, dealID string) Company {
	page, err := af.client.ListAssociations(ctx, hubspot.ObjectTypeDeals, dealID, hubspot.ObjectTypeCompanies)
	if err != nil || len(page.Results) == 0 {
		if err != nil {
			af.logger.Debug("could not fetch company association",
				zap.String("deal_id", dealID),
				zap.Error(err))
		}
		return Company{}
	}

	companyID := strconv.FormatInt(page.Results[0].ToObjectID, 10)
	obj, err := af.client.GetByID(ctx, hubspot.ObjectTypeCompanies, companyID, companyProperties)
	if err != nil {
		af.logger.Debug("could not fetch company",
			zap.String("deal_id", dealID),
			zap.String("company_id", companyID),
			zap.Error(err))
		return Company{}
	}

	return Company{
		ID:        companyID,
		Name:      obj.Property("name"),
		Domain:    obj.Property("domain"),
		Industry:  obj.Property("industry"),
		Country:   obj.Property("country"),
		City:      obj.Property("city"),
		Revenue:   converter.SafeFloat(obj.Property("annualrevenue")),
		Employees: converter.SafeInt(obj.Property("numberofemployees")),
	}
}

// FetchMeetingAssociations resolves the deal, contact, and company ids
// related to a meeting. Each edge type is independent and best-effort.
func (af *associationFetcher) FetchMeetingAssociations(ctx context.Context, meetingID string) MeetingAssociations {
	return MeetingAssociations{
		DealIDs:    af.meetingEdge(ctx, meetingID, hubspot.ObjectTypeDeals),
		ContactIDs: af.meetingEdge(ctx, meetingID, hubspot.ObjectTypeContacts),
		CompanyIDs: af.meetingEdge(ctx, meetingID, hubspot.ObjectTypeCompanies),
	}
}

func (af *associationFetcher) meetingEdge(ctx context.Context, meetingID, toType string) []string {
	page, err := af.client.ListAssociations(ctx, hubspot.ObjectTypeMeetings, meetingID, toType)
	if err != nil {
		af.logger.Debug("could not fetch meeting associations",
			zap.String("meeting_id", meetingID),
			zap.String("to_type", toType),
			zap.Error(err))
		return nil
	}

	ids := make([]string, 0, len(page.Results))
	for _, assoc := range page.Results {
		ids = append(ids, strconv.FormatInt(assoc.ToObjectID, 10))
	}
	return ids
}

// contactFromObject maps raw contact properties into a Contact, preferring
// the fixed phone over mobile.
func contactFromObject(contactID string, obj *hubspot.Object) Contact {
	phone := obj.Property("phone")
	if phone == "" {
		phone = obj.Property("mobilephone")
	}

	first := obj.Property("firstname")
	last := obj.Property("lastname")

	return Contact{
		ID:             contactID,
		FirstName:      first,
		LastName:       last,
		Name:           strings.TrimSpace(first + " " + last),
		Email:          obj.Property("email"),
		Phone:          phone,
		JobTitle:       obj.Property("jobtitle"),
		Company:        obj.Property("company"),
		LifecycleStage: obj.Property("lifecyclestage"),
		Country:        obj.Property("country"),
		City:           obj.Property("city"),
	}
}

// joinIDs comma-joins an id list, returning nil for an empty list so the
// column stays NULL instead of holding an empty string.
func joinIDs(ids []string) *string {
	if len(ids) == 0 {
		return nil
	}
	joined := strings.Join(ids, ",")
	return &joined
}
