// Package device implements the client side of the reMarkable USB web
// interface: the listing protocol, the remote document tree crawler, and the
// stateful upload transport.
//
// The interface is minimal and stateful. GET /documents/{id} lists one folder
// level and, as a side effect, sets the server-side "current directory" that
// the next POST /upload writes into. There is no endpoint for deleting or
// updating documents and no way to create folders.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"remsync/internal/faults"
	"remsync/internal/logging"
)

const (
	defaultListingTimeout = 10 * time.Second
	defaultUploadTimeout  = 120 * time.Second
	defaultProbeTimeout   = 2 * time.Second
)

// Client talks to one device address. It is safe for concurrent read-only
// listings; uploads must never overlap because navigation state is global on
// the server.
type Client struct {
	address        string
	httpClient     *http.Client
	listingTimeout time.Duration
	uploadTimeout  time.Duration
	probeTimeout   time.Duration
	logger         *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "device")
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeouts overrides the listing, upload, and probe budgets. Zero values
// keep the defaults.
func WithTimeouts(listing, upload, probe time.Duration) Option {
	return func(c *Client) {
		if listing > 0 {
			c.listingTimeout = listing
		}
		if upload > 0 {
			c.uploadTimeout = upload
		}
		if probe > 0 {
			c.probeTimeout = probe
		}
	}
}

// NewClient constructs a client for the given device address.
func NewClient(address string, opts ...Option) *Client {
	client := &Client{
		address:        address,
		httpClient:     &http.Client{},
		listingTimeout: defaultListingTimeout,
		uploadTimeout:  defaultUploadTimeout,
		probeTimeout:   defaultProbeTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Address returns the device address the client targets.
func (c *Client) Address() string { return c.address }

func (c *Client) baseURL() string {
	return "http://" + c.address
}

// FetchListing issues one metadata request and returns the raw entries for
// that folder level. An empty folder id denotes the root.
func (c *Client) FetchListing(ctx context.Context, folderID string) ([]Entry, error) {
	data, err := c.listing(ctx, folderID, c.listingTimeout)
	if err != nil {
		return nil, err
	}
	entries, err := parseListing(data)
	if err != nil {
		return nil, faults.Wrap(faults.ErrProtocol, "device", "fetch listing",
			fmt.Sprintf("folder=%q: unexpected response shape", folderID), err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ParentID < entries[j].ParentID
	})
	return entries, nil
}

// IsReachable performs a short-timeout root listing and reports presence.
// Any failure means "absent"; it never propagates an error.
func (c *Client) IsReachable(ctx context.Context) bool {
	if _, err := c.listing(ctx, "", c.probeTimeout); err != nil {
		c.logger.Debug("device unreachable",
			logging.String("address", c.address),
			logging.Error(err))
		return false
	}
	return true
}

// Navigate issues a listing request against the target folder purely to set
// the server-side current directory; the listing result is discarded.
// Failure is logged and treated as non-fatal.
func (c *Client) Navigate(ctx context.Context, folderID string) {
	if _, err := c.listing(ctx, folderID, c.listingTimeout); err != nil {
		c.logger.Warn("pre-upload navigation failed",
			logging.String("folder_id", folderID),
			logging.String("address", c.address),
			logging.Error(err))
	}
}

// Delete reports the device interface's missing delete capability. The web
// interface only supports GET and POST; surfacing this as an explicit failure
// keeps local bookkeeping in step with the device.
func (c *Client) Delete(ctx context.Context, names ...string) error {
	detail := "the USB web interface cannot delete documents; remove them on the device"
	if len(names) > 0 {
		detail = fmt.Sprintf("%s: %v", detail, names)
	}
	return faults.Wrap(faults.ErrCapability, "device", "delete", detail, nil)
}

func (c *Client) listing(ctx context.Context, folderID string, budget time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	url := c.baseURL() + "/documents/" + folderID
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, faults.Wrap(faults.ErrProtocol, "device", "fetch listing", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("charset", "ISO-8859-1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr("fetch listing", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := readErrorExcerpt(resp.Body)
		return nil, faults.Wrap(faults.ErrProtocol, "device", "fetch listing",
			fmt.Sprintf("HTTP %d for %s: %s", resp.StatusCode, url, excerpt), nil)
	}
	return readAllBounded(resp.Body)
}

func classifyTransportErr(operation, target string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return faults.Wrap(faults.ErrTimeout, "device", operation, target, err)
	}
	return faults.Wrap(faults.ErrConnectivity, "device", operation, target, err)
}
