package etl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/hubspot"
	"github.com/quotaview/crm-ingress/pkg/model"
)

// TransformMeetings converts raw meeting records into snapshot rows,
// resolving owner attribution and the records each meeting relates to.
func (t *Transformer) TransformMeetings(ctx context.Context, meetings []hubspot.Object, snapshot SnapshotStamp) []*model.MeetingSnapshot {
	t.logger.Info("transforming meetings", zap.Int("count", len(meetings)))

	rows := make([]*model.MeetingSnapshot, 0, len(meetings))
	for idx, meeting := range meetings {
		if idx > 0 && idx%50 == 0 {
			t.logger.Info("processing meeting",
				zap.Int("index", idx),
				zap.Int("total", len(meetings)))
		}

		assoc := t.associations.FetchMeetingAssociations(ctx, meeting.ID)
		rows = append(rows, t.transformMeeting(meeting, assoc, snapshot))
	}

	t.logger.Info("meeting transformation complete", zap.Int("rows", len(rows)))
	return rows
}

func (t *Transformer) transformMeeting(meeting hubspot.Object, assoc MeetingAssociations, snapshot SnapshotStamp) *model.MeetingSnapshot {
	startTime := t.normalizer.Timestamp(meeting.Property("hs_meeting_start_time"))
	endTime := t.normalizer.Timestamp(meeting.Property("hs_meeting_end_time"))

	var durationMins *int64
	if startTime != nil && endTime != nil {
		d := int64(endTime.Sub(*startTime) / time.Minute)
		durationMins = &d
	}

	ownerID := meeting.Property("hubspot_owner_id")

	// The creating user is tracked separately from the owner: for booked
	// meetings it identifies who actually scheduled the meeting.
	createdByID := meeting.Property("hs_created_by_user_id")

	return &model.MeetingSnapshot{
		MeetingID:   meeting.ID,
		Title:       meeting.Property("hs_meeting_title"),
		MeetingType: "MEETING",
		Outcome:     meeting.Property("hs_meeting_outcome"),

		StartTime:    startTime,
		EndTime:      endTime,
		CreatedAt:    t.normalizer.Timestamp(meeting.Property("hs_createdate")),
		UpdatedAt:    t.normalizer.Timestamp(meeting.Property("hs_lastmodifieddate")),
		DurationMins: durationMins,

		OwnerID:    ownerID,
		OwnerName:  t.owners.Name(ownerID),
		OwnerEmail: t.owners.Email(ownerID),

		CreatedByID:    createdByID,
		CreatedByName:  t.owners.Name(createdByID),
		CreatedByEmail: t.owners.Email(createdByID),
		MeetingSource:  meeting.Property("hs_meeting_source"),

		AssociatedDealIDs:    joinIDs(assoc.DealIDs),
		AssociatedContactIDs: joinIDs(assoc.ContactIDs),
		AssociatedCompanyIDs: joinIDs(assoc.CompanyIDs),

		Body:          meeting.Property("hs_meeting_body"),
		InternalNotes: meeting.Property("hs_internal_meeting_notes"),
		Location:      meeting.Property("hs_meeting_location"),
		MeetingLink:   meeting.Property("hs_meeting_external_url"),

		SnapshotTimestamp: snapshot.Timestamp,
		SnapshotDate:      snapshot.Date,
	}
}
