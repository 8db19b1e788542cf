package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiKeyHeader = "X-API-Key"

// remoteCallTimeout bounds submissions and artifact downloads;
// statusCallTimeout bounds the lighter status lookups.
const (
	remoteCallTimeout = 30 * time.Second
	statusCallTimeout = 15 * time.Second
)

// LabOrderRequest is the payload the laboratory service expects for a new
// order.
type LabOrderRequest struct {
	ExternalReference string   `json:"externalReference"`
	Priority          string   `json:"priority"`
	Subject           string   `json:"subject"`
	Clinician         string   `json:"clinician,omitempty"`
	Tests             []string `json:"tests"`
	Specimen          string   `json:"specimen,omitempty"`
	ClinicalNotes     string   `json:"clinicalNotes,omitempty"`
}

// LabClient talks to the external laboratory-order service.
type LabClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewLabClient(baseURL, apiKey string) *LabClient {
	return &LabClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: remoteCallTimeout},
	}
}

// Submit places a lab order. The remote assigns the order id; anything other
// than 201 is a rejection.
func (c *LabClient) Submit(ctx context.Context, order LabOrderRequest) (string, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("encoding lab order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("lab service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", &RemoteError{Service: "lab", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var created struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decoding lab order response: %w", err)
	}
	if created.OrderID == "" {
		return "", fmt.Errorf("lab service accepted the order but returned no order id")
	}
	return created.OrderID, nil
}

// Status fetches the remote order state, normalized per department.
func (c *LabClient) Status(ctx context.Context, orderID string) (*StatusSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, statusCallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/"+orderID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lab service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Service: "lab", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var remote struct {
		PerDepartment []DepartmentStatus `json:"perDepartment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, fmt.Errorf("decoding lab status response: %w", err)
	}

	summary := &StatusSummary{
		OrderID:       orderID,
		Status:        PollPending,
		PerDepartment: remote.PerDepartment,
	}
	if labOrderComplete(remote.PerDepartment) {
		summary.Status = PollCompleted
	}
	return summary, nil
}

// CheckComplete implements StatusChecker. A lab order is complete when any
// department's portion is completed with results on hand.
func (c *LabClient) CheckComplete(ctx context.Context, orderID string) (bool, string, error) {
	summary, err := c.Status(ctx, orderID)
	if err != nil {
		return false, "", err
	}
	if summary.Status == PollCompleted {
		return true, orderID, nil
	}
	return false, "", nil
}

// FetchArtifact implements ArtifactFetcher. The lab report artifact is the
// full order payload with results, streamed as JSON.
func (c *LabClient) FetchArtifact(ctx context.Context, orderID string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/"+orderID, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("lab service unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", &RemoteError{Service: "lab", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
	return resp.Body, filenameFromHeader(resp.Header), nil
}

func labOrderComplete(departments []DepartmentStatus) bool {
	for _, d := range departments {
		if d.Status == "completed" && len(d.Results) > 0 {
			return true
		}
	}
	return false
}

// readErrorBody captures a bounded slice of a failure response for error
// messages.
func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
