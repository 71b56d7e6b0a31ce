package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportworks/report-be/internal/api/domain"
	"github.com/reportworks/report-be/internal/api/model"
	"github.com/reportworks/report-be/internal/cache"
)

// mockStore is a hand-written in-memory ReportStore
type mockStore struct {
	reports      map[string]*model.Report
	details      map[string][]model.ReportDetail
	createErr    error
	updateErr    error
	statusWrites []string
}

func newMockStore() *mockStore {
	return &mockStore{
		reports: make(map[string]*model.Report),
		details: make(map[string][]model.ReportDetail),
	}
}

func (m *mockStore) CreateReport(ctx context.Context, report *model.Report) error {
	if m.createErr != nil {
		return m.createErr
	}
	copied := *report
	m.reports[report.ReportID] = &copied
	return nil
}

func (m *mockStore) GetReportByID(ctx context.Context, reportID string) (*model.Report, error) {
	report, ok := m.reports[reportID]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	copied := *report
	return &copied, nil
}

func (m *mockStore) ListReports(ctx context.Context) ([]model.Report, error) {
	var out []model.Report
	for _, report := range m.reports {
		out = append(out, *report)
	}
	return out, nil
}

func (m *mockStore) UpdateStatus(ctx context.Context, reportID, status string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	report, ok := m.reports[reportID]
	if !ok {
		return domain.ErrReportNotFound
	}
	report.Status = status
	m.statusWrites = append(m.statusWrites, status)
	return nil
}

func (m *mockStore) AppendDetailRows(ctx context.Context, reportID string, rows []model.ReportDetail) error {
	if _, ok := m.reports[reportID]; !ok {
		return domain.ErrReportNotFound
	}
	m.details[reportID] = append(m.details[reportID], rows...)
	return nil
}

func (m *mockStore) GetDetailRows(ctx context.Context, reportID string) ([]model.ReportDetail, error) {
	return m.details[reportID], nil
}

func (m *mockStore) DeleteReport(ctx context.Context, reportID string) error {
	if _, ok := m.reports[reportID]; !ok {
		return domain.ErrReportNotFound
	}
	delete(m.reports, reportID)
	delete(m.details, reportID)
	return nil
}

// mockCache is a hand-written in-memory ResultCache
type mockCache struct {
	payloads map[string]*cache.ReportPayload
	getErr   error
	delErr   error
}

func newMockCache() *mockCache {
	return &mockCache{payloads: make(map[string]*cache.ReportPayload)}
}

func (m *mockCache) GetReport(ctx context.Context, reportID string) (*cache.ReportPayload, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	payload, ok := m.payloads[reportID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return payload, nil
}

func (m *mockCache) DeleteReport(ctx context.Context, reportID string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.payloads, reportID)
	return nil
}

// mockPublisher records published report requests
type mockPublisher struct {
	publishErr  error
	routingKeys []string
	bodies      [][]byte
}

func (m *mockPublisher) PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.routingKeys = append(m.routingKeys, routingKey)
	m.bodies = append(m.bodies, body)
	return nil
}

func newTestService() (*ReportService, *mockStore, *mockCache, *mockPublisher) {
	store := newMockStore()
	resultCache := newMockCache()
	publisher := &mockPublisher{}
	svc := NewReportService(store, resultCache, publisher, slog.Default())
	return svc, store, resultCache, publisher
}

func TestCreateReport(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and enqueues", func(t *testing.T) {
		svc, store, _, publisher := newTestService()

		report, err := svc.CreateReport(ctx, domain.ReportKindGeneral, "")
		require.NoError(t, err)

		assert.Equal(t, domain.ReportStatusPreparing, report.Status)
		assert.NotEmpty(t, report.ReportID)
		require.Contains(t, store.reports, report.ReportID)
		require.Len(t, publisher.routingKeys, 1)
		assert.Equal(t, "report.request."+report.ReportID, publisher.routingKeys[0])
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		svc, store, _, _ := newTestService()

		_, err := svc.CreateReport(ctx, "WEEKLY", "")
		var bizErr *domain.BusinessError
		require.ErrorAs(t, err, &bizErr)
		assert.Equal(t, domain.CodeInvalidKind, bizErr.Code)
		assert.Empty(t, store.reports)
	})

	t.Run("publish failure keeps the row and surfaces a business error", func(t *testing.T) {
		svc, store, _, publisher := newTestService()
		publisher.publishErr = errors.New("broker unavailable")

		_, err := svc.CreateReport(ctx, domain.ReportKindLocationBased, `{"filters":["Istanbul"]}`)
		var bizErr *domain.BusinessError
		require.ErrorAs(t, err, &bizErr)
		assert.Equal(t, domain.CodeEnqueueFailed, bizErr.Code)

		// The inserted row is deliberately left behind for manual retry
		require.Len(t, store.reports, 1)
		for _, report := range store.reports {
			assert.Equal(t, domain.ReportStatusPreparing, report.Status)
		}
	})
}

func seedReport(store *mockStore, status string) *model.Report {
	report := &model.Report{
		ReportID:    "0198c0de-0000-7000-8000-000000000001",
		Kind:        domain.ReportKindLocationBased,
		Parameters:  `{"filters":["Istanbul","Ankara"]}`,
		Summary:     `{"totalPersonCount":500}`,
		Status:      status,
		RequestedAt: time.Now().UTC().Add(-time.Minute),
		UpdatedAt:   time.Now().UTC(),
	}
	store.reports[report.ReportID] = report
	return report
}

func TestGetReportByID_Tiers(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		svc, _, _, _ := newTestService()

		_, err := svc.GetReportByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrReportNotFound)
	})

	t.Run("preparing report returns empty details and message", func(t *testing.T) {
		svc, store, _, _ := newTestService()
		report := seedReport(store, domain.ReportStatusPreparing)

		resp, err := svc.GetReportByID(ctx, report.ReportID)
		require.NoError(t, err)

		assert.Equal(t, domain.ReportStatusPreparing, resp.Status)
		assert.Empty(t, resp.Details)
		assert.Equal(t, domain.DataSourceNone, resp.DataSource)
		assert.Contains(t, resp.Message, "still being prepared")
	})

	t.Run("failed report instructs retry", func(t *testing.T) {
		svc, store, _, _ := newTestService()
		report := seedReport(store, domain.ReportStatusFailed)

		resp, err := svc.GetReportByID(ctx, report.ReportID)
		require.NoError(t, err)

		assert.Equal(t, domain.DataSourceNone, resp.DataSource)
		assert.Contains(t, resp.Message, "Retry")
	})

	t.Run("cache hit wins even when durable rows exist", func(t *testing.T) {
		svc, store, resultCache, _ := newTestService()
		report := seedReport(store, domain.ReportStatusCompleted)

		store.details[report.ReportID] = []model.ReportDetail{
			{DetailID: "d1", ReportID: report.ReportID, GroupKey: "Stale", PersonCount: 1},
		}

		createdAt := time.Now().UTC().Add(-time.Hour)
		resultCache.payloads[report.ReportID] = &cache.ReportPayload{
			ReportID: report.ReportID,
			Kind:     report.Kind,
			Summary:  `{"totalPersonCount":500}`,
			Details: []cache.DetailRow{
				{Group: "Istanbul", PersonCount: 300, SecondaryCount: 200, TertiaryCount: 150},
				{Group: "Ankara", PersonCount: 200, SecondaryCount: 100, TertiaryCount: 90},
			},
			CreatedAt: createdAt,
			ExpiresAt: createdAt.Add(24 * time.Hour),
		}

		resp, err := svc.GetReportByID(ctx, report.ReportID)
		require.NoError(t, err)

		assert.Equal(t, domain.DataSourceCache, resp.DataSource)
		require.Len(t, resp.Details, 2)
		assert.Equal(t, "Istanbul", resp.Details[0].Group)
		assert.Equal(t, 300, resp.Details[0].PersonCount)
		require.NotNil(t, resp.CacheCreatedAt)
		require.NotNil(t, resp.CacheExpiresAt)
		assert.True(t, resp.CacheExpiresAt.After(*resp.CacheCreatedAt))
	})

	t.Run("cache miss falls back to durable rows", func(t *testing.T) {
		svc, store, _, _ := newTestService()
		report := seedReport(store, domain.ReportStatusCompleted)

		store.details[report.ReportID] = []model.ReportDetail{
			{DetailID: "d1", ReportID: report.ReportID, GroupKey: "Istanbul", PersonCount: 300, SecondaryCount: 200, TertiaryCount: 150},
		}

		resp, err := svc.GetReportByID(ctx, report.ReportID)
		require.NoError(t, err)

		assert.Equal(t, domain.DataSourceDatabase, resp.DataSource)
		require.Len(t, resp.Details, 1)
		assert.Equal(t, "d1", resp.Details[0].DetailID)
		assert.Nil(t, resp.CacheCreatedAt)
	})

	t.Run("completed with no cache and no rows returns metadata only", func(t *testing.T) {
		svc, store, _, _ := newTestService()
		report := seedReport(store, domain.ReportStatusCompleted)

		resp, err := svc.GetReportByID(ctx, report.ReportID)
		require.NoError(t, err)

		assert.Equal(t, domain.DataSourceNone, resp.DataSource)
		assert.Empty(t, resp.Details)
		assert.Equal(t, report.Summary, resp.Summary)
		assert.Contains(t, resp.Message, "expired")
	})

	t.Run("cache outage falls back to durable rows", func(t *testing.T) {
		svc, store, resultCache, _ := newTestService()
		report := seedReport(store, domain.ReportStatusCompleted)
		resultCache.getErr = errors.New("redis connection refused")

		store.details[report.ReportID] = []model.ReportDetail{
			{DetailID: "d1", ReportID: report.ReportID, GroupKey: "Istanbul", PersonCount: 1},
		}

		resp, err := svc.GetReportByID(ctx, report.ReportID)
		require.NoError(t, err)
		assert.Equal(t, domain.DataSourceDatabase, resp.DataSource)
	})
}

func TestRetryReport(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected unless failed", func(t *testing.T) {
		for _, status := range []string{domain.ReportStatusPreparing, domain.ReportStatusCompleted} {
			t.Run(status, func(t *testing.T) {
				svc, store, _, publisher := newTestService()
				report := seedReport(store, status)

				err := svc.RetryReport(ctx, report.ReportID)
				var bizErr *domain.BusinessError
				require.ErrorAs(t, err, &bizErr)
				assert.Equal(t, domain.CodeRetryInvalidState, bizErr.Code)
				assert.Empty(t, publisher.routingKeys)
				assert.Equal(t, status, store.reports[report.ReportID].Status)
			})
		}
	})

	t.Run("failed report is re-enqueued as preparing", func(t *testing.T) {
		svc, store, _, publisher := newTestService()
		report := seedReport(store, domain.ReportStatusFailed)

		require.NoError(t, svc.RetryReport(ctx, report.ReportID))

		assert.Equal(t, domain.ReportStatusPreparing, store.reports[report.ReportID].Status)
		require.Len(t, publisher.routingKeys, 1)
		assert.Equal(t, "report.request."+report.ReportID, publisher.routingKeys[0])
	})

	t.Run("republish failure rolls status back to failed", func(t *testing.T) {
		svc, store, _, publisher := newTestService()
		report := seedReport(store, domain.ReportStatusFailed)
		publisher.publishErr = errors.New("broker unavailable")

		err := svc.RetryReport(ctx, report.ReportID)
		var bizErr *domain.BusinessError
		require.ErrorAs(t, err, &bizErr)
		assert.Equal(t, domain.CodeEnqueueFailed, bizErr.Code)

		// Never left PREPARING with no in-flight message
		assert.Equal(t, domain.ReportStatusFailed, store.reports[report.ReportID].Status)
		assert.Equal(t, []string{domain.ReportStatusPreparing, domain.ReportStatusFailed}, store.statusWrites)
	})

	t.Run("unknown report", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		assert.ErrorIs(t, svc.RetryReport(ctx, "missing"), domain.ErrReportNotFound)
	})
}

func TestSaveReportPermanently(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips cache rows into durable rows and clears the cache", func(t *testing.T) {
		svc, store, resultCache, _ := newTestService()
		report := seedReport(store, domain.ReportStatusCompleted)

		resultCache.payloads[report.ReportID] = &cache.ReportPayload{
			ReportID: report.ReportID,
			Details: []cache.DetailRow{
				{Group: "Istanbul", PersonCount: 300, SecondaryCount: 200, TertiaryCount: 150},
				{Group: "Ankara", PersonCount: 200, SecondaryCount: 100, TertiaryCount: 90},
			},
		}

		require.NoError(t, svc.SaveReportPermanently(ctx, report.ReportID))

		rows := store.details[report.ReportID]
		require.Len(t, rows, 2)
		assert.Equal(t, "Istanbul", rows[0].GroupKey)
		assert.Equal(t, 300, rows[0].PersonCount)
		assert.Equal(t, 200, rows[0].SecondaryCount)
		assert.Equal(t, 150, rows[0].TertiaryCount)
		assert.NotEmpty(t, rows[0].DetailID)
		assert.NotEqual(t, rows[0].DetailID, rows[1].DetailID)

		// The cache entry must be gone afterwards
		_, err := resultCache.GetReport(ctx, report.ReportID)
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("missing cache entry is a not-found error, not a no-op", func(t *testing.T) {
		svc, store, _, _ := newTestService()
		report := seedReport(store, domain.ReportStatusCompleted)

		err := svc.SaveReportPermanently(ctx, report.ReportID)
		assert.ErrorIs(t, err, domain.ErrCacheEntryNotFound)
		assert.Empty(t, store.details[report.ReportID])
	})

	t.Run("unknown report", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		assert.ErrorIs(t, svc.SaveReportPermanently(ctx, "missing"), domain.ErrReportNotFound)
	})
}

func TestDeleteReport(t *testing.T) {
	ctx := context.Background()

	t.Run("removes report, durable rows, and cache entry", func(t *testing.T) {
		svc, store, resultCache, _ := newTestService()
		report := seedReport(store, domain.ReportStatusCompleted)
		store.details[report.ReportID] = []model.ReportDetail{{DetailID: "d1"}}
		resultCache.payloads[report.ReportID] = &cache.ReportPayload{ReportID: report.ReportID}

		require.NoError(t, svc.DeleteReport(ctx, report.ReportID))

		assert.Empty(t, store.reports)
		assert.Empty(t, store.details)
		assert.Empty(t, resultCache.payloads)
	})

	t.Run("cache delete failure is best-effort", func(t *testing.T) {
		svc, store, resultCache, _ := newTestService()
		report := seedReport(store, domain.ReportStatusCompleted)
		resultCache.delErr = errors.New("redis connection refused")

		require.NoError(t, svc.DeleteReport(ctx, report.ReportID))
		assert.Empty(t, store.reports)
	})

	t.Run("unknown report", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		assert.ErrorIs(t, svc.DeleteReport(ctx, "missing"), domain.ErrReportNotFound)
	})
}

func TestListReports(t *testing.T) {
	svc, store, _, _ := newTestService()
	seedReport(store, domain.ReportStatusCompleted)

	items, err := svc.ListReports(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ReportKindLocationBased, items[0].Kind)
	assert.Equal(t, domain.ReportStatusCompleted, items[0].Status)
}
