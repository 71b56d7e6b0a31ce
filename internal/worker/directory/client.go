package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reportworks/report-be/internal/worker/domain"
)

// endpoint paths per report kind
var kindEndpoints = map[string]string{
	domain.ReportKindLocationBased: "location",
	domain.ReportKindCompanyBased:  "company",
	domain.ReportKindGeneral:       "general",
}

// GroupStat is one aggregated row from the directory service
type GroupStat struct {
	Group          string `json:"group"`
	PersonCount    int    `json:"personCount"`
	SecondaryCount int    `json:"secondaryCount"`
	TertiaryCount  int    `json:"tertiaryCount"`
}

// SummaryData is the aggregation result the directory service returns
type SummaryData struct {
	TotalPersonCount    int         `json:"totalPersonCount"`
	TotalSecondaryCount int         `json:"totalSecondaryCount"`
	TotalTertiaryCount  int         `json:"totalTertiaryCount"`
	TotalGroupCount     int         `json:"totalGroupCount"`
	TopGroups           []string    `json:"topGroups"`
	Details             []GroupStat `json:"details"`
}

// Client calls the directory service to aggregate report data
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a directory service client
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchReportData requests the aggregation for the given kind. Filters narrow
// the aggregation to the given location or company names; they are ignored
// for GENERAL reports, which always cover the whole directory.
func (c *Client) FetchReportData(ctx context.Context, kind string, filters []string) (*SummaryData, error) {
	endpoint, ok := kindEndpoints[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported report kind: %s", kind)
	}

	reqURL := fmt.Sprintf("%s/report-data/%s", c.baseURL, endpoint)
	if kind != domain.ReportKindGeneral && len(filters) > 0 {
		reqURL = reqURL + "?filter=" + url.QueryEscape(strings.Join(filters, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Calling directory service",
		slog.String("url", reqURL),
		slog.String("kind", kind),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("directory service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data SummaryData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}

	return &data, nil
}
