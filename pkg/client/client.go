package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thingful/sensebox/pkg/logger"
	"github.com/thingful/sensebox/pkg/version"
)

var (
	duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sensebox",
			Name:      "client_request_duration_seconds",
			Help:      "A histogram of outgoing request latencies partitioned by host, method and response status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method", "host"},
	)
)

func init() {
	prometheus.MustRegister(duration)
}

// Client is our custom client type that ensures a timeout is used, and adds a
// user agent header to be polite. The timeout also bounds how long we wait for
// a peer to close the connection after sending its response.
type Client struct {
	Client    *http.Client
	userAgent string
	verbose   bool
}

// NewClient returns a new client instance initialized with a user agent string
// and timeout in seconds.
func NewClient(timeout int, verbose bool) *Client {
	c := &http.Client{
		Timeout:   time.Duration(timeout) * time.Second,
		Transport: InstrumentRoundTripperDuration(duration, http.DefaultTransport),
	}

	return &Client{
		Client:    c,
		userAgent: fmt.Sprintf("%s/%s", version.BinaryName, version.Version),
		verbose:   verbose,
	}
}

// Get attempts to fetch the given URL, returning the body of the response.
func (c *Client) Get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request object")
	}

	return c.do(ctx, req)
}

// Post sends the given JSON body to the URL. The authorization value is sent
// verbatim in the Authorization header when it is non-empty.
func (c *Client) Post(ctx context.Context, requestURL, authorization string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request object")
	}

	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	log := logger.FromContext(ctx)

	if c.verbose {
		log.Log(
			"msg", "sending request",
			"method", req.Method,
			"url", req.URL.String(),
		)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.Client.Do(req.WithContext(ctx))
	if err != nil {
		if uerr, ok := err.(*url.Error); ok && uerr.Timeout() {
			return nil, TimeoutError
		}

		log.Log("msg", "request failed", "url", req.URL.String(), "err", err)
		return nil, UnexpectedError
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Log("msg", "unexpected response code", "code", resp.StatusCode)

		// drain so the connection can be closed cleanly by the peer
		io.Copy(ioutil.Discard, resp.Body)

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, UnauthorizedError
		case http.StatusNotFound:
			return nil, NotFoundError
		default:
			return nil, errors.Errorf("Unexpected response: %s", resp.Status)
		}
	}

	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		if uerr, ok := err.(*url.Error); ok && uerr.Timeout() {
			return b, TimeoutError
		}
		return b, errors.Wrap(err, "failed to read response body")
	}

	return b, nil
}
