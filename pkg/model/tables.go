// pkg/model/tables.go
package model

// ColumnType is a backend-neutral column type. Warehouse connectors map
// these to their native DDL types.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeFloat
	TypeInteger
	TypeBool
	TypeTimestamp
	TypeDate
)

// Column describes one column of a snapshot table.
type Column struct {
	Name     string
	Type     ColumnType
	Required bool
}

// TableSpec describes a snapshot table: its columns, the day-partition
// column, and the clustering hints for frequently-filtered columns.
type TableSpec struct {
	Name            string
	Columns         []Column
	PartitionColumn string
	ClusterColumns  []string
}

// ColumnNames returns the column names in declaration order.
func (t TableSpec) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// DealTableSpec returns the deal snapshot table definition. Column order
// must match DealSnapshot.Values.
func DealTableSpec(name string) TableSpec {
	return TableSpec{
		Name:            name,
		PartitionColumn: "snapshot_date",
		ClusterColumns:  []string{"pipeline_label", "owner_name", "is_open"},
		Columns: []Column{
			{Name: "hs_object_id", Type: TypeString, Required: true},
			{Name: "dealname", Type: TypeString},
			{Name: "dealtype", Type: TypeString},
			{Name: "amount", Type: TypeFloat},
			{Name: "deal_currency_code", Type: TypeString},
			{Name: "hs_tcv", Type: TypeFloat},
			{Name: "hs_acv", Type: TypeFloat},
			{Name: "hs_arr", Type: TypeFloat},
			{Name: "hs_mrr", Type: TypeFloat},
			{Name: "dealstage", Type: TypeString},
			{Name: "dealstage_label", Type: TypeString},
			{Name: "pipeline", Type: TypeString},
			{Name: "pipeline_label", Type: TypeString},
			{Name: "hs_deal_stage_probability", Type: TypeFloat},
			{Name: "closedate", Type: TypeTimestamp},
			{Name: "createdate", Type: TypeTimestamp},
			{Name: "hs_lastmodifieddate", Type: TypeTimestamp},
			{Name: "notes_last_updated", Type: TypeTimestamp},
			{Name: "notes_last_contacted", Type: TypeTimestamp},
			{Name: "hs_date_entered_closedwon", Type: TypeTimestamp},
			{Name: "hs_date_entered_closedlost", Type: TypeTimestamp},
			{Name: "hubspot_owner_id", Type: TypeString},
			{Name: "owner_name", Type: TypeString},
			{Name: "owner_email", Type: TypeString},
			{Name: "hs_forecast_category", Type: TypeString},
			{Name: "hs_forecast_probability", Type: TypeFloat},
			{Name: "hs_manual_forecast_category", Type: TypeString},
			{Name: "hs_priority", Type: TypeString},
			{Name: "hs_next_step", Type: TypeString},
			{Name: "num_associated_contacts", Type: TypeInteger},
			{Name: "num_contacted_notes", Type: TypeInteger},
			{Name: "num_notes", Type: TypeInteger},
			{Name: "engagements_last_meeting_booked", Type: TypeTimestamp},
			{Name: "hs_latest_meeting_activity", Type: TypeTimestamp},
			{Name: "hs_sales_email_last_replied", Type: TypeTimestamp},
			{Name: "closed_lost_reason", Type: TypeString},
			{Name: "closed_won_reason", Type: TypeString},
			{Name: "description", Type: TypeString},
			{Name: "all_properties_json", Type: TypeString},
			{Name: "contact_count", Type: TypeInteger},
			{Name: "primary_contact_id", Type: TypeString},
			{Name: "primary_contact_name", Type: TypeString},
			{Name: "primary_contact_email", Type: TypeString},
			{Name: "primary_contact_phone", Type: TypeString},
			{Name: "primary_contact_jobtitle", Type: TypeString},
			{Name: "primary_contact_company", Type: TypeString},
			{Name: "all_contacts_json", Type: TypeString},
			{Name: "company_id", Type: TypeString},
			{Name: "company_name", Type: TypeString},
			{Name: "company_domain", Type: TypeString},
			{Name: "company_industry", Type: TypeString},
			{Name: "company_country", Type: TypeString},
			{Name: "company_city", Type: TypeString},
			{Name: "company_revenue", Type: TypeFloat},
			{Name: "company_employees", Type: TypeInteger},
			{Name: "days_in_current_stage", Type: TypeInteger},
			{Name: "days_since_created", Type: TypeInteger},
			{Name: "days_to_close", Type: TypeInteger},
			{Name: "weighted_amount", Type: TypeFloat},
			{Name: "is_open", Type: TypeBool},
			{Name: "is_won", Type: TypeBool},
			{Name: "is_lost", Type: TypeBool},
			{Name: "deal_age_status", Type: TypeString},
			{Name: "snapshot_timestamp", Type: TypeTimestamp, Required: true},
			{Name: "snapshot_date", Type: TypeDate, Required: true},
		},
	}
}

// MeetingTableSpec returns the meeting snapshot table definition. Column
// order must match MeetingSnapshot.Values.
func MeetingTableSpec(name string) TableSpec {
	return TableSpec{
		Name:            name,
		PartitionColumn: "snapshot_date",
		ClusterColumns:  []string{"owner_name", "meeting_outcome"},
		Columns: []Column{
			{Name: "meeting_id", Type: TypeString, Required: true},
			{Name: "title", Type: TypeString},
			{Name: "meeting_type", Type: TypeString},
			{Name: "meeting_outcome", Type: TypeString},
			{Name: "start_time", Type: TypeTimestamp},
			{Name: "end_time", Type: TypeTimestamp},
			{Name: "created_at", Type: TypeTimestamp},
			{Name: "updated_at", Type: TypeTimestamp},
			{Name: "duration_minutes", Type: TypeInteger},
			{Name: "owner_id", Type: TypeString},
			{Name: "owner_name", Type: TypeString},
			{Name: "owner_email", Type: TypeString},
			{Name: "created_by_user_id", Type: TypeString},
			{Name: "created_by_name", Type: TypeString},
			{Name: "created_by_email", Type: TypeString},
			{Name: "meeting_source", Type: TypeString},
			{Name: "associated_deal_ids", Type: TypeString},
			{Name: "associated_contact_ids", Type: TypeString},
			{Name: "associated_company_ids", Type: TypeString},
			{Name: "body", Type: TypeString},
			{Name: "internal_notes", Type: TypeString},
			{Name: "location", Type: TypeString},
			{Name: "meeting_link", Type: TypeString},
			{Name: "snapshot_timestamp", Type: TypeTimestamp, Required: true},
			{Name: "snapshot_date", Type: TypeDate, Required: true},
		},
	}
}
