package metrics

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultEndpoint receives anonymized solution metrics.
const DefaultEndpoint = "https://metrics.awssolutionsbuilder.com/generic"

const requestTimeout = 10 * time.Second

// timeStampLayout matches the metrics API contract: UTC wall clock with a
// single fractional digit.
const timeStampLayout = "2006-01-02 15:04:05.0"

// envelope is the wire shape the metrics API expects; field names are part
// of the contract.
type envelope struct {
	Solution  string `json:"Solution"`
	UUID      string `json:"UUID"`
	TimeStamp string `json:"TimeStamp"`
	Data      any    `json:"Data"`
}

// TransformerData reports the serialized size of one delivered batch.
type TransformerData struct {
	DataSize int `json:"DataSize"`
}

// LaunchData describes one stack lifecycle event.
type LaunchData struct {
	Version      string `json:"Version,omitempty"`
	Stack        string `json:"Stack,omitempty"`
	Region       string `json:"Region,omitempty"`
	Architecture string `json:"Architecture,omitempty"`
	RequestType  string `json:"RequestType,omitempty"`
}

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

// Reporter posts anonymized metrics. Sends are single-shot: callers treat a
// returned error as log-and-continue, never as a reason to retry or fail.
type Reporter struct {
	endpoint   string
	solutionID string
	uuid       string
	httpClient *http.Client
	name       string
}

func NewReporter(endpoint, solutionID, uuid string) *Reporter {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Reporter{
		name:       "MetricsReporter",
		endpoint:   endpoint,
		solutionID: solutionID,
		uuid:       uuid,
		httpClient: newHTTPClientFunc(),
	}
}

// Send posts one metric envelope.
func (r *Reporter) Send(ctx context.Context, data any) error {
	body, err := json.Marshal(envelope{
		Solution:  r.solutionID,
		UUID:      r.uuid,
		TimeStamp: time.Now().UTC().Format(timeStampLayout),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal metric payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create http post request: %s, err: %v", r.endpoint, err)
	}
	req.Close = true
	req.Header.Add("Content-Type", "application/json")
	return r.sendWithCaringResponseCode(req)
}

func (r *Reporter) sendWithCaringResponseCode(req *http.Request) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s response body read failed, err: %v", r.name, err)
		}
		body := string(bodyBytes)
		if body != "" {
			return fmt.Errorf("%s returned unexpected status code: %v response: %s", r.name, resp.StatusCode, body)
		}
		return fmt.Errorf("%s returned unexpected status code: %v", r.name, resp.StatusCode)
	}

	return nil
}
