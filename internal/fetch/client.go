package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rstenmark/fiscaldata/internal/auction"
	apperrors "github.com/rstenmark/fiscaldata/pkg/errors"
	"github.com/rstenmark/fiscaldata/pkg/logger"
)

const (
	// DefaultBaseURL is the Fiscal Data service root.
	DefaultBaseURL = "https://api.fiscaldata.treasury.gov/services/api/fiscal_service"

	auctionsPath = "/v1/accounting/od/auctions_query"

	filterDateLayout = "2006-01-02"

	// nullSentinel is how the upstream API encodes a missing numeric value.
	nullSentinel = "null"
)

// Declared row schema. Every field must be present and a JSON string; numeric
// fields additionally must parse as floats unless they carry the sentinel.
var (
	stringFields  = []string{"issue_date", "cusip", "security_term"}
	numericFields = []string{"price_per100", "bid_to_cover_ratio"}
)

// Config carries fetcher options.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client retrieves auction history from the Fiscal Data REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient constructs a Client, falling back to the public endpoint and the
// transport's default timeout when unset.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.WithComponent("fetch"),
	}
}

// FetchAuctions issues one GET for the given term and returns the normalised
// records sorted ascending by issue date. Rows whose numeric fields carry the
// "null" sentinel are dropped whole; any other malformed row aborts the fetch.
func (c *Client) FetchAuctions(ctx context.Context, term auction.Term, securityType string, issuedSince time.Time) ([]auction.Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := auction.ParseTerm(term.String()); err != nil {
		return nil, apperrors.ErrUnknownTerm.WithInternal(err)
	}

	endpoint, err := c.buildURL(term, securityType, issuedSince)
	if err != nil {
		return nil, apperrors.ErrTransport.WithInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.ErrTransport.WithInternal(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ErrTransport.WithInternal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, apperrors.ErrTransport.WithInternal(fmt.Errorf("unexpected status %s", resp.Status))
	}

	var body struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.ErrSchema.WithInternal(fmt.Errorf("decode response body: %w", err))
	}

	records := make([]auction.Record, 0, len(body.Data))
	dropped := 0
	for i, row := range body.Data {
		record, keep, err := normaliseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if !keep {
			dropped++
			continue
		}
		records = append(records, record)
	}

	auction.SortByIssueDate(records)

	c.log.Debug("fetched auction history",
		zap.String("term", term.String()),
		zap.Int("records", len(records)),
		zap.Int("dropped", dropped))

	return records, nil
}

func (c *Client) buildURL(term auction.Term, securityType string, issuedSince time.Time) (string, error) {
	u, err := url.Parse(c.baseURL + auctionsPath)
	if err != nil {
		return "", err
	}

	filter := strings.Join([]string{
		"security_term:eq:" + term.String(),
		"security_type:eq:" + securityType,
		"issue_date:gte:" + issuedSince.Format(filterDateLayout),
	}, ",")

	q := u.Query()
	q.Set("filter", filter)
	q.Set("sort", "-issue_date")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// normaliseRow type-checks one response row and materialises it. The second
// return value is false when the row carried a sentinel and must be dropped.
func normaliseRow(row map[string]any) (auction.Record, bool, error) {
	labels := make(map[string]string, len(stringFields))
	for _, field := range stringFields {
		value, err := stringField(row, field)
		if err != nil {
			return auction.Record{}, false, err
		}
		labels[field] = value
	}

	numbers := make(map[string]float64, len(numericFields))
	for _, field := range numericFields {
		raw, err := stringField(row, field)
		if err != nil {
			return auction.Record{}, false, err
		}
		if raw == nullSentinel {
			return auction.Record{}, false, nil
		}

		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return auction.Record{}, false, apperrors.ErrBadValue.WithInternal(fmt.Errorf("field %q value %q: %w", field, raw, err))
		}
		numbers[field] = parsed
	}

	issued, err := time.ParseInLocation(filterDateLayout, labels["issue_date"], time.UTC)
	if err != nil {
		return auction.Record{}, false, apperrors.ErrBadValue.WithInternal(fmt.Errorf("field %q value %q: %w", "issue_date", labels["issue_date"], err))
	}

	return auction.Record{
		IssueDate:       issued,
		CUSIP:           labels["cusip"],
		SecurityTerm:    labels["security_term"],
		PricePer100:     numbers["price_per100"],
		BidToCoverRatio: numbers["bid_to_cover_ratio"],
	}, true, nil
}

func stringField(row map[string]any, field string) (string, error) {
	value, ok := row[field]
	if !ok {
		return "", apperrors.ErrSchema.WithInternal(fmt.Errorf("field %q missing", field))
	}

	s, ok := value.(string)
	if !ok {
		return "", apperrors.ErrSchema.WithInternal(fmt.Errorf("field %q is %T, want string", field, value))
	}

	return s, nil
}
