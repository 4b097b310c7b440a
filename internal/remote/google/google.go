// Package google stores ledger documents in a Google Sheets tab, one row per
// owner: owner, version, last updated, then the JSON blob split over as many
// cells as it needs.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"carpool/internal/cache"
	"carpool/internal/log"
	"carpool/internal/remote"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab used when none is configured.
const DefaultSheetName = "Ledgers"

const readCacheSize = 64

type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// ReadCacheTTL keeps fetched rows for this long so frequent polls do not
	// each cost a Sheets read. Zero disables the cache.
	ReadCacheTTL time.Duration
}

// cachedRow is a fetch result; doc is nil when the owner has no row yet.
type cachedRow struct {
	doc *remote.Document
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	rows          *cache.LRU[cachedRow]
	now           func() time.Time
	logger        *log.Logger
}

var _ remote.Endpoint = (*Client)(nil)

// New creates a Sheets-backed endpoint authenticated with a service account.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	c := &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheet:         sheet,
		now:           time.Now,
		logger:        logger,
	}
	if opts.ReadCacheTTL > 0 {
		c.rows = cache.NewLRU[cachedRow](readCacheSize, opts.ReadCacheTTL)
	}
	return c, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over a file; GOOGLE_APPLICATION_CREDENTIALS is the last resort.
func newSheetsService(ctx context.Context, opts Options, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(opts.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(opts.CredentialsFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(credentialsJSON))
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:%s", c.sheet, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", remote.ErrUnavailable, rng, err)
	}
	return resp.Values, nil
}

// Fetch implements remote.Endpoint.
func (c *Client) Fetch(ctx context.Context, owner string) (*remote.Document, error) {
	if c.rows != nil {
		if row, ok := c.rows.Get(owner); ok {
			return copyDoc(row.doc), nil
		}
	}

	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	_, doc, found, err := findRow(values, owner)
	if err != nil {
		return nil, err
	}
	var out *remote.Document
	if found {
		out = &doc
	}
	c.remember(owner, out)
	return copyDoc(out), nil
}

func (c *Client) remember(owner string, doc *remote.Document) {
	if c.rows != nil {
		c.rows.Set(owner, cachedRow{doc: copyDoc(doc)})
	}
}

func copyDoc(doc *remote.Document) *remote.Document {
	if doc == nil {
		return nil
	}
	d := *doc
	return &d
}

// Save implements remote.Endpoint. It always reads the sheet itself, never
// the fetch cache.
//
// Sheets offers no compare-and-set, so the version check and the write are two
// calls; a writer racing in between is only caught on its next fetch.
func (c *Client) Save(ctx context.Context, owner string, doc remote.Document) error {
	if c.rows != nil {
		c.rows.Delete(owner)
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	idx, cur, found, err := findRow(values, owner)
	if err != nil {
		return err
	}
	if cur.Version != doc.Version {
		return remote.ErrVersionConflict
	}

	if doc.LastUpdated.IsZero() {
		doc.LastUpdated = c.now()
	}
	doc.Version = cur.Version + 1
	row, err := encodeRow(owner, doc)
	if err != nil {
		return err
	}

	// Data rows start at sheet row 2.
	rowNum := len(values) + 2
	if found {
		rowNum = idx + 2
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheet, rowNum, lastColumn, rowNum)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", remote.ErrUnavailable, rng, err)
	}
	c.remember(owner, &doc)

	c.logger.InfoContext(ctx, "Ledger saved to sheet",
		log.FieldOwner, owner,
		log.FieldVersion, doc.Version,
		"range", rng)
	return nil
}
