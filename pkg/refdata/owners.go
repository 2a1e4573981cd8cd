// pkg/refdata/owners.go
package refdata

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/hubspot"
)

// OwnerAPI is the slice of the CRM client needed to load owner reference
// data.
type OwnerAPI interface {
	ListOwners(ctx context.Context, after string, archived bool) (*hubspot.OwnerPage, error)
}

// OwnerInfo is the resolved display identity for one owner id.
type OwnerInfo struct {
	Name  string
	Email string
}

// Owners maps owner id to resolved identity. Archived owners carry an
// " (Archived)" suffix on the name so historical attribution stays legible.
type Owners map[string]OwnerInfo

// Name resolves an owner id to a display name, or "" for unknown ids.
func (o Owners) Name(ownerID string) string {
	return o[ownerID].Name
}

// Email resolves an owner id to an email, or "" for unknown ids.
func (o Owners) Email(ownerID string) string {
	return o[ownerID].Email
}

// LoadOwners fetches active owners, then merges in archived owners for ids
// not already present. Active identities always win; an archived listing
// failure degrades to active-only data with a warning rather than failing
// the run.
func LoadOwners(ctx context.Context, api OwnerAPI, logger *zap.Logger) (Owners, error) {
	owners := make(Owners)

	if err := collectOwners(ctx, api, false, func(o hubspot.Owner) {
		owners[o.ID] = OwnerInfo{
			Name:  ownerName(o, ""),
			Email: o.Email,
		}
	}); err != nil {
		return nil, err
	}

	activeCount := len(owners)

	archivedErr := collectOwners(ctx, api, true, func(o hubspot.Owner) {
		if _, exists := owners[o.ID]; exists {
			return
		}
		owners[o.ID] = OwnerInfo{
			Name:  ownerName(o, " (Archived)"),
			Email: o.Email,
		}
	})
	if archivedErr != nil {
		logger.Warn("failed to fetch archived owners, continuing with active owners only",
			zap.Error(archivedErr))
	}

	logger.Info("loaded owners",
		zap.Int("active", activeCount),
		zap.Int("archived", len(owners)-activeCount))

	return owners, nil
}

// collectOwners walks all pages of one owner partition.
func collectOwners(ctx context.Context, api OwnerAPI, archived bool, visit func(hubspot.Owner)) error {
	after := ""
	for {
		page, err := api.ListOwners(ctx, after, archived)
		if err != nil {
			return err
		}

		for _, owner := range page.Results {
			visit(owner)
		}

		after = page.NextCursor()
		if after == "" {
			return nil
		}
	}
}

// ownerName builds a display name from the owner record, preferring the full
// name, then the email, then a fixed placeholder.
func ownerName(o hubspot.Owner, suffix string) string {
	name := strings.TrimSpace(strings.TrimSpace(o.FirstName) + " " + strings.TrimSpace(o.LastName))
	if name == "" {
		name = o.Email
	}
	if name == "" {
		name = "Unknown"
	}
	return name + suffix
}
