// pkg/hubspot/client_test.go
package hubspot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&config.HubSpotConfig{
		AccessToken:       "test-token",
		BaseURL:           srv.URL,
		RequestTimeout:    5 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             1000,
	}, zap.NewNop())
}

func TestListPageRequestShape(t *testing.T) {
	var gotAuth, gotPath string
	var gotQuery map[string][]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"results":[{"id":"42","properties":{"dealname":"Acme"}}],"paging":{"next":{"after":"cursor-2"}}}`))
	})

	page, err := client.ListPage(context.Background(), ObjectTypeDeals, []string{"dealname", "amount"}, 100, "cursor-1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "/crm/v3/objects/deals", gotPath)
	assert.Equal(t, []string{"100"}, gotQuery["limit"])
	assert.Equal(t, []string{"dealname,amount"}, gotQuery["properties"])
	assert.Equal(t, []string{"cursor-1"}, gotQuery["after"])

	require.Len(t, page.Results, 1)
	assert.Equal(t, "42", page.Results[0].ID)
	assert.Equal(t, "Acme", page.Results[0].Property("dealname"))
	assert.Equal(t, "cursor-2", page.NextCursor())
}

func TestListPageLastPageHasNoCursor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	})

	page, err := client.ListPage(context.Background(), ObjectTypeDeals, nil, 50, "")
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.Empty(t, page.NextCursor())
}

func TestGetByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v3/objects/contacts/301", r.URL.Path)
		assert.Equal(t, "email,firstname", r.URL.Query().Get("properties"))
		w.Write([]byte(`{"id":"301","properties":{"email":"jo@acme.test"}}`))
	})

	obj, err := client.GetByID(context.Background(), ObjectTypeContacts, "301", []string{"email", "firstname"})
	require.NoError(t, err)
	assert.Equal(t, "301", obj.ID)
	assert.Equal(t, "jo@acme.test", obj.Property("email"))
}

func TestListAssociations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v4/objects/deals/17/associations/contacts", r.URL.Path)
		w.Write([]byte(`{"results":[{"toObjectId":301},{"toObjectId":302}]}`))
	})

	page, err := client.ListAssociations(context.Background(), ObjectTypeDeals, "17", ObjectTypeContacts)
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, int64(301), page.Results[0].ToObjectID)
	assert.Equal(t, int64(302), page.Results[1].ToObjectID)
}

func TestListOwnersArchivedQuery(t *testing.T) {
	var archived []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		archived = append(archived, r.URL.Query().Get("archived"))
		w.Write([]byte(`{"results":[{"id":"9","firstName":"Ada","lastName":"Lovelace","email":"ada@acme.test"}]}`))
	})

	ctx := context.Background()
	_, err := client.ListOwners(ctx, "", false)
	require.NoError(t, err)
	page, err := client.ListOwners(ctx, "", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "true"}, archived)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Ada", page.Results[0].FirstName)
}

func TestNonSuccessStatusReturnsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"secondly limit reached"}`))
	})

	_, err := client.ListPage(context.Background(), ObjectTypeDeals, nil, 100, "")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "/crm/v3/objects/deals", apiErr.Path)
	assert.Contains(t, apiErr.Body, "secondly limit reached")
}

func TestErrorClassification(t *testing.T) {
	status := func(code int) error {
		return &APIError{StatusCode: code, Method: "GET", Path: "/x"}
	}

	assert.True(t, IsRateLimit(status(429)))
	assert.False(t, IsRateLimit(status(500)))

	assert.True(t, IsPermission(status(401)))
	assert.True(t, IsPermission(status(403)))
	assert.False(t, IsPermission(status(404)))

	assert.True(t, IsTransient(status(429)))
	assert.True(t, IsTransient(status(500)))
	assert.True(t, IsTransient(status(503)))
	assert.False(t, IsTransient(status(401)))
	assert.False(t, IsTransient(status(404)))

	// Connection-level failures never carry a status and stay retryable.
	assert.True(t, IsTransient(errors.New("connection reset by peer")))
	assert.False(t, IsTransient(nil))
}
