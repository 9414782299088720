package es

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/cenkalti/backoff"
)

const serviceName = "es"

const requestTimeout = 30 * time.Second

var (
	defaultRandomizationFactor = 0.5
	defaultRetryInterval       = 250 * time.Millisecond
)

var newHTTPClientFunc = func() *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &http.Client{Transport: t}
}

// Client issues SigV4-signed requests against the search domain HTTP API.
type Client interface {
	ListIndices(ctx context.Context) ([]string, error)
	DeleteIndices(ctx context.Context, names []string) error
}

type DefaultClient struct {
	endpoint      string
	region        string
	signer        *v4.Signer
	httpClient    *http.Client
	retryInterval time.Duration
	name          string
}

// NewClient builds a client for the given domain host, signing every
// request with the default AWS credential chain.
func NewClient(host, region string) (*DefaultClient, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session, err: %v", err)
	}
	endpoint := host
	if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
		endpoint = "https://" + endpoint
	}
	return &DefaultClient{
		name:          "ESClient",
		endpoint:      strings.TrimSuffix(endpoint, "/"),
		region:        region,
		signer:        v4.NewSigner(sess.Config.Credentials),
		httpClient:    newHTTPClientFunc(),
		retryInterval: defaultRetryInterval,
	}, nil
}

type catIndex struct {
	Index string `json:"index"`
}

func (c *DefaultClient) ListIndices(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, "/_cat/indices?format=json&h=index")
	if err != nil {
		return nil, fmt.Errorf("failed to list indices, err: %v", err)
	}
	var rows []catIndex
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse index listing, err: %v", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Index)
	}
	return names, nil
}

func (c *DefaultClient) DeleteIndices(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := c.do(ctx, http.MethodDelete, "/"+strings.Join(names, ",")); err != nil {
		return fmt.Errorf("failed to delete indices, err: %v", err)
	}
	return nil
}

// do retries until success or the context is done; the search domain
// throttles bursty management calls, so every request goes through the
// same capped exponential backoff.
func (c *DefaultClient) do(ctx context.Context, method, path string) ([]byte, error) {
	var body []byte
	err := doWithExpBackoffC(ctx, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		var err error
		body, err = c.makeSignedRequest(reqCtx, method, path)
		return err
	}, c.retryInterval)
	return body, err
}

func doWithExpBackoffC(ctx context.Context, f func() error, initialInterval time.Duration) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.RandomizationFactor = defaultRandomizationFactor
	expBackoff.InitialInterval = initialInterval
	b := backoff.WithContext(expBackoff, ctx)
	return backoff.Retry(f, b)
}

func (c *DefaultClient) makeSignedRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create http %s request: %s, err: %v", method, c.endpoint+path, err)
	}
	req.Close = true
	req.Header.Add("Content-Type", "application/json")
	if _, err := c.signer.Sign(req, nil, serviceName, c.region, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to sign request, err: %v", err)
	}
	return c.sendWithCaringResponseCode(req)
}

func (c *DefaultClient) sendWithCaringResponseCode(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s response body read failed, err: %v", c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := string(bodyBytes)
		if body != "" {
			return nil, fmt.Errorf("%s returned unexpected status code: %v response: %s", c.name, resp.StatusCode, body)
		}
		return nil, fmt.Errorf("%s returned unexpected status code: %v", c.name, resp.StatusCode)
	}

	return bodyBytes, nil
}
