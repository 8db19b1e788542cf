package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ScanOrderRequest is the payload the imaging service expects for a new
// scan request.
type ScanOrderRequest struct {
	ExternalReference string `json:"externalReference"`
	Subject           string `json:"subject"`
	ScanType          string `json:"scanType"`
	BodyPart          string `json:"bodyPart,omitempty"`
	Priority          string `json:"priority"`
}

// ScanSubmission is the normalized outcome of a scan request. Exactly one of
// Body and RequestID is set: Body streams an immediately available artifact,
// RequestID tracks an accepted-pending request that must be polled.
type ScanSubmission struct {
	RequestID    string
	Body         io.ReadCloser
	FilenameHint string
}

// ScanClient talks to the external imaging/DICOM service.
type ScanClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewScanClient(baseURL, apiKey string) *ScanClient {
	return &ScanClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: remoteCallTimeout},
	}
}

// Submit sends a scan request. A 200 response carries the artifact itself
// (synchronous path); a 202 response carries a tracking id for polling.
// A 202 without a tracking id is an error.
func (c *ScanClient) Submit(ctx context.Context, order ScanOrderRequest) (*ScanSubmission, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encoding scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scan-request", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imaging service unreachable: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// Caller owns the body and must close it after streaming.
		return &ScanSubmission{
			Body:         resp.Body,
			FilenameHint: filenameFromHeader(resp.Header),
		}, nil

	case http.StatusAccepted:
		defer resp.Body.Close()
		var accepted struct {
			RequestID string `json:"requestId"`
			ID        string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
			return nil, fmt.Errorf("decoding scan acceptance: %w", err)
		}
		trackingID := accepted.RequestID
		if trackingID == "" {
			trackingID = accepted.ID
		}
		if trackingID == "" {
			return nil, fmt.Errorf("imaging service accepted the request but returned no tracking id")
		}
		return &ScanSubmission{RequestID: trackingID}, nil

	default:
		defer resp.Body.Close()
		return nil, &RemoteError{Service: "imaging", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
}

// RequestStatus polls an accepted scan request. The scan id is only present
// once the request has been attended to.
func (c *ScanClient) RequestStatus(ctx context.Context, requestID string) (status, scanID string, err error) {
	ctx, cancel := context.WithTimeout(ctx, statusCallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/request-status/"+requestID, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("imaging service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", &RemoteError{Service: "imaging", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var remote struct {
		Status string `json:"status"`
		ScanID string `json:"scan_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return "", "", fmt.Errorf("decoding scan status: %w", err)
	}
	return remote.Status, remote.ScanID, nil
}

// CheckComplete implements StatusChecker. A scan request is complete once the
// remote marks it attended or completed and a scan id is available.
func (c *ScanClient) CheckComplete(ctx context.Context, requestID string) (bool, string, error) {
	status, scanID, err := c.RequestStatus(ctx, requestID)
	if err != nil {
		return false, "", err
	}
	if (status == "attended" || status == "completed") && scanID != "" {
		return true, scanID, nil
	}
	return false, "", nil
}

// FetchArtifact implements ArtifactFetcher, streaming a completed scan.
func (c *ScanClient) FetchArtifact(ctx context.Context, scanID string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scans/download/"+scanID, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("imaging service unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", &RemoteError{Service: "imaging", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
	return resp.Body, filenameFromHeader(resp.Header), nil
}
