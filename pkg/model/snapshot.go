// pkg/model/snapshot.go
package model

import "time"

// DealSnapshot is one deal row in the daily snapshot table.
// Pointer fields are nullable in the warehouse; value fields are always set.
type DealSnapshot struct {
	// Core identifiers
	DealID   string
	DealName *string
	DealType *string

	// Financial
	Amount       *float64
	CurrencyCode *string
	TCV          *float64
	ACV          *float64
	ARR          *float64
	MRR          *float64

	// Pipeline & stage
	StageID       string
	StageLabel    string
	PipelineID    string
	PipelineLabel string
	Probability   *float64

	// Lifecycle dates
	CloseDate         *time.Time
	CreateDate        *time.Time
	LastModifiedDate  *time.Time
	NotesLastUpdated  *time.Time
	NotesLastContact  *time.Time
	EnteredClosedWon  *time.Time
	EnteredClosedLost *time.Time

	// Owner
	OwnerID    string
	OwnerName  string
	OwnerEmail string

	// Forecasting
	ForecastCategory       *string
	ForecastProbability    *float64
	ManualForecastCategory *string
	Priority               *string
	NextStep               *string

	// Activity & engagement
	NumAssociatedContacts *int64
	NumContactedNotes     *int64
	NumNotes              *int64
	LastMeetingBooked     *time.Time
	LatestMeetingActivity *time.Time
	LastEmailReplied      *time.Time

	// Win/loss
	ClosedLostReason *string
	ClosedWonReason  *string

	// Opaque property bag, never parsed downstream. Schema-evolution escape hatch.
	Description       *string
	AllPropertiesJSON *string

	// Associated contacts
	ContactCount           int64
	PrimaryContactID       string
	PrimaryContactName     string
	PrimaryContactEmail    string
	PrimaryContactPhone    string
	PrimaryContactJobTitle string
	PrimaryContactCompany  string
	AllContactsJSON        *string

	// Associated company
	CompanyID        string
	CompanyName      string
	CompanyDomain    string
	CompanyIndustry  string
	CompanyCountry   string
	CompanyCity      string
	CompanyRevenue   *float64
	CompanyEmployees *int64

	// Derived fields
	DaysInCurrentStage *int64
	DaysSinceCreated   *int64
	DaysToClose        *int64
	WeightedAmount     *float64
	IsOpen             bool
	IsWon              bool
	IsLost             bool
	DealAgeStatus      string

	// Snapshot metadata
	SnapshotTimestamp time.Time
	SnapshotDate      string // YYYY-MM-DD, partition key
}

// Values returns the row values in DealTableSpec column order.
func (d *DealSnapshot) Values() []interface{} {
	return []interface{}{
		d.DealID,
		d.DealName,
		d.DealType,
		d.Amount,
		d.CurrencyCode,
		d.TCV,
		d.ACV,
		d.ARR,
		d.MRR,
		d.StageID,
		d.StageLabel,
		d.PipelineID,
		d.PipelineLabel,
		d.Probability,
		d.CloseDate,
		d.CreateDate,
		d.LastModifiedDate,
		d.NotesLastUpdated,
		d.NotesLastContact,
		d.EnteredClosedWon,
		d.EnteredClosedLost,
		d.OwnerID,
		d.OwnerName,
		d.OwnerEmail,
		d.ForecastCategory,
		d.ForecastProbability,
		d.ManualForecastCategory,
		d.Priority,
		d.NextStep,
		d.NumAssociatedContacts,
		d.NumContactedNotes,
		d.NumNotes,
		d.LastMeetingBooked,
		d.LatestMeetingActivity,
		d.LastEmailReplied,
		d.ClosedLostReason,
		d.ClosedWonReason,
		d.Description,
		d.AllPropertiesJSON,
		d.ContactCount,
		d.PrimaryContactID,
		d.PrimaryContactName,
		d.PrimaryContactEmail,
		d.PrimaryContactPhone,
		d.PrimaryContactJobTitle,
		d.PrimaryContactCompany,
		d.AllContactsJSON,
		d.CompanyID,
		d.CompanyName,
		d.CompanyDomain,
		d.CompanyIndustry,
		d.CompanyCountry,
		d.CompanyCity,
		d.CompanyRevenue,
		d.CompanyEmployees,
		d.DaysInCurrentStage,
		d.DaysSinceCreated,
		d.DaysToClose,
		d.WeightedAmount,
		d.IsOpen,
		d.IsWon,
		d.IsLost,
		d.DealAgeStatus,
		d.SnapshotTimestamp,
		d.SnapshotDate,
	}
}

// MeetingSnapshot is one meeting row in the daily snapshot table.
type MeetingSnapshot struct {
	MeetingID      string
	Title          string
	MeetingType    string
	Outcome        string
	StartTime      *time.Time
	EndTime        *time.Time
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
	DurationMins   *int64
	OwnerID        string
	OwnerName      string
	OwnerEmail     string
	CreatedByID    string
	CreatedByName  string
	CreatedByEmail string
	MeetingSource  string

	// Comma-joined association id lists, nil when no associations resolved.
	AssociatedDealIDs    *string
	AssociatedContactIDs *string
	AssociatedCompanyIDs *string

	Body          string
	InternalNotes string
	Location      string
	MeetingLink   string

	SnapshotTimestamp time.Time
	SnapshotDate      string
}

// Values returns the row values in MeetingTableSpec column order.
func (m *MeetingSnapshot) Values() []interface{} {
	return []interface{}{
		m.MeetingID,
		m.Title,
		m.MeetingType,
		m.Outcome,
		m.StartTime,
		m.EndTime,
		m.CreatedAt,
		m.UpdatedAt,
		m.DurationMins,
		m.OwnerID,
		m.OwnerName,
		m.OwnerEmail,
		m.CreatedByID,
		m.CreatedByName,
		m.CreatedByEmail,
		m.MeetingSource,
		m.AssociatedDealIDs,
		m.AssociatedContactIDs,
		m.AssociatedCompanyIDs,
		m.Body,
		m.InternalNotes,
		m.Location,
		m.MeetingLink,
		m.SnapshotTimestamp,
		m.SnapshotDate,
	}
}

// Row is any snapshot row that can be flattened for a bulk load.
type Row interface {
	Values() []interface{}
}
