// pkg/warehouse/loader_test.go
package warehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/model"
)

// fakeWarehouse records each operation in call order and keeps a per-date
// row count so a load followed by a reload behaves like a real backend.
type fakeWarehouse struct {
	ops        []string
	stored     map[string]int64
	insertDate string

	ensureErr error
	deleteErr error
	insertErr error
	countErr  error
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{stored: make(map[string]int64)}
}

func (f *fakeWarehouse) EnsureTable(context.Context, model.TableSpec) error {
	f.ops = append(f.ops, "ensure")
	return f.ensureErr
}

func (f *fakeWarehouse) DeleteSnapshot(_ context.Context, _ model.TableSpec, snapshotDate string) (int64, error) {
	f.ops = append(f.ops, "delete")
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	deleted := f.stored[snapshotDate]
	delete(f.stored, snapshotDate)
	return deleted, nil
}

func (f *fakeWarehouse) InsertRows(_ context.Context, _ model.TableSpec, rows []model.Row) (int64, error) {
	f.ops = append(f.ops, "insert")
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.stored[f.insertDate] += int64(len(rows))
	return int64(len(rows)), nil
}

func (f *fakeWarehouse) CountSnapshot(_ context.Context, _ model.TableSpec, snapshotDate string) (int64, error) {
	f.ops = append(f.ops, "count")
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.stored[snapshotDate], nil
}

func (f *fakeWarehouse) Validate() error { return nil }
func (f *fakeWarehouse) Close() error    { return nil }

var _ Warehouse = (*fakeWarehouse)(nil)

func sampleRows(n int) []model.Row {
	rows := make([]model.Row, n)
	for i := range rows {
		rows[i] = &model.DealSnapshot{DealID: "d"}
	}
	return rows
}

func TestLoaderDeletesThenInserts(t *testing.T) {
	wh := newFakeWarehouse()
	wh.insertDate = "2024-06-15"
	wh.stored["2024-06-15"] = 3 // leftovers from an earlier run of the same day

	loader := NewLoader(wh, zap.NewNop())
	inserted, err := loader.Load(context.Background(), model.DealTableSpec("deals_snapshot"), sampleRows(5), "2024-06-15")

	require.NoError(t, err)
	assert.Equal(t, int64(5), inserted)
	assert.Equal(t, []string{"ensure", "delete", "insert", "count"}, wh.ops)
	assert.Equal(t, int64(5), wh.stored["2024-06-15"])
}

func TestLoaderEmptyRowsIsNoOp(t *testing.T) {
	wh := newFakeWarehouse()
	wh.stored["2024-06-15"] = 40

	loader := NewLoader(wh, zap.NewNop())
	inserted, err := loader.Load(context.Background(), model.DealTableSpec("deals_snapshot"), nil, "2024-06-15")

	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Empty(t, wh.ops, "no warehouse calls expected")
	assert.Equal(t, int64(40), wh.stored["2024-06-15"], "existing rows must survive")
}

func TestLoaderErrorPropagation(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		prepare func(*fakeWarehouse)
		wantOps []string
	}{
		{"ensure", func(f *fakeWarehouse) { f.ensureErr = boom }, []string{"ensure"}},
		{"delete", func(f *fakeWarehouse) { f.deleteErr = boom }, []string{"ensure", "delete"}},
		{"insert", func(f *fakeWarehouse) { f.insertErr = boom }, []string{"ensure", "delete", "insert"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := newFakeWarehouse()
			tt.prepare(wh)

			loader := NewLoader(wh, zap.NewNop())
			_, err := loader.Load(context.Background(), model.DealTableSpec("deals_snapshot"), sampleRows(2), "2024-06-15")

			require.ErrorIs(t, err, boom)
			assert.Equal(t, tt.wantOps, wh.ops, "load must stop at the failing step")
		})
	}
}

func TestLoaderCountErrorIsNonFatal(t *testing.T) {
	wh := newFakeWarehouse()
	wh.insertDate = "2024-06-15"
	wh.countErr = errors.New("count unavailable")

	loader := NewLoader(wh, zap.NewNop())
	inserted, err := loader.Load(context.Background(), model.DealTableSpec("deals_snapshot"), sampleRows(2), "2024-06-15")

	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)
}
