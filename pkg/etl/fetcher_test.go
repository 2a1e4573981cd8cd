package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/hubspot"
)

func newTestFetcher(client CRMClient) *Fetcher {
	return NewFetcher(client, 100, 3, time.Millisecond, zap.NewNop())
}

func TestFetchAllDealsPaginates(t *testing.T) {
	var cursors []string
	client := &fakeClient{
		listPage: func(objectType string, _ []string, _ int, after string) (*hubspot.ObjectPage, error) {
			require.Equal(t, hubspot.ObjectTypeDeals, objectType)
			cursors = append(cursors, after)
			switch after {
			case "":
				return pageFrom("cursor-1", dealObject("1", nil), dealObject("2", nil)), nil
			case "cursor-1":
				return pageFrom("cursor-2", dealObject("3", nil)), nil
			case "cursor-2":
				return pageFrom("", dealObject("4", nil)), nil
			default:
				t.Fatalf("unexpected cursor %q", after)
				return nil, nil
			}
		},
	}

	deals, err := newTestFetcher(client).FetchAllDeals(context.Background(), nil, "")
	require.NoError(t, err)

	assert.Len(t, deals, 4)
	assert.Equal(t, []string{"", "cursor-1", "cursor-2"}, cursors)
}

func TestFetchAllDealsFiltersByPipeline(t *testing.T) {
	client := &fakeClient{
		listPage: func(_ string, _ []string, _ int, _ string) (*hubspot.ObjectPage, error) {
			return pageFrom("",
				dealObject("1", map[string]string{"pipeline": "p-target"}),
				dealObject("2", map[string]string{"pipeline": "p-other"}),
				dealObject("3", map[string]string{"pipeline": "p-target"}),
				dealObject("4", nil),
			), nil
		},
	}

	deals, err := newTestFetcher(client).FetchAllDeals(context.Background(), nil, "p-target")
	require.NoError(t, err)

	require.Len(t, deals, 2)
	assert.Equal(t, "1", deals[0].ID)
	assert.Equal(t, "3", deals[1].ID)
}

func TestFetchAllDealsRetriesTransientErrors(t *testing.T) {
	calls := 0
	client := &fakeClient{
		listPage: func(_ string, _ []string, _ int, _ string) (*hubspot.ObjectPage, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("connection reset")
			}
			return pageFrom("", dealObject("1", nil)), nil
		},
	}

	deals, err := newTestFetcher(client).FetchAllDeals(context.Background(), nil, "")
	require.NoError(t, err)

	assert.Len(t, deals, 1)
	assert.Equal(t, 3, calls)
}

func TestFetchAllDealsExhaustedRetriesFail(t *testing.T) {
	calls := 0
	client := &fakeClient{
		listPage: func(_ string, _ []string, _ int, _ string) (*hubspot.ObjectPage, error) {
			calls++
			return nil, &hubspot.APIError{StatusCode: 503, Method: "GET", Path: "/crm/v3/objects/deals"}
		},
	}

	_, err := newTestFetcher(client).FetchAllDeals(context.Background(), nil, "")
	require.Error(t, err)

	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestFetchAllDealsPermissionErrorIsTerminal(t *testing.T) {
	calls := 0
	client := &fakeClient{
		listPage: func(_ string, _ []string, _ int, _ string) (*hubspot.ObjectPage, error) {
			calls++
			return nil, &hubspot.APIError{StatusCode: 403, Method: "GET", Path: "/crm/v3/objects/deals"}
		},
	}

	_, err := newTestFetcher(client).FetchAllDeals(context.Background(), nil, "")
	require.Error(t, err)

	// No retry: the token will not grow scopes between attempts.
	assert.Equal(t, 1, calls)
	assert.True(t, hubspot.IsPermission(err))
}

func TestDealPropertiesFallsBackOnError(t *testing.T) {
	client := &fakeClient{
		listProperties: func(string) (*hubspot.PropertyList, error) {
			return nil, errors.New("boom")
		},
	}

	props := newTestFetcher(client).DealProperties(context.Background())
	assert.Equal(t, defaultDealProperties, props)
}

func TestDealPropertiesUsesDiscoveredSet(t *testing.T) {
	client := &fakeClient{
		listProperties: func(string) (*hubspot.PropertyList, error) {
			return &hubspot.PropertyList{Results: []hubspot.PropertyDefinition{
				{Name: "dealname"}, {Name: "custom_field"},
			}}, nil
		},
	}

	props := newTestFetcher(client).DealProperties(context.Background())
	assert.Equal(t, []string{"dealname", "custom_field"}, props)
}

func TestRateLimitBackoffSchedule(t *testing.T) {
	b := rateLimitBackoff()

	assert.Equal(t, 20*time.Second, b.NextBackOff())
	assert.Equal(t, 40*time.Second, b.NextBackOff())
	assert.Equal(t, 60*time.Second, b.NextBackOff())
	// Capped from here on.
	assert.Equal(t, 60*time.Second, b.NextBackOff())
}
