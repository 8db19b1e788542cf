package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLabClient_SubmitSuccess(t *testing.T) {
	var gotPayload LabOrderRequest
	var gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("X-API-Key")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"orderId": "ORD-42"})
	}))
	defer srv.Close()

	client := NewLabClient(srv.URL, "secret-key")
	orderID, err := client.Submit(context.Background(), LabOrderRequest{
		ExternalReference: "EXT_UHID-1_100",
		Priority:          PriorityRoutine,
		Subject:           "UHID-1",
		Tests:             []string{"GLU", "UREA"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if orderID != "ORD-42" {
		t.Fatalf("orderID = %q, want ORD-42", orderID)
	}
	if gotKey != "secret-key" {
		t.Fatalf("api key = %q", gotKey)
	}
	if gotPayload.ExternalReference != "EXT_UHID-1_100" {
		t.Fatalf("externalReference = %q", gotPayload.ExternalReference)
	}
}

func TestLabClient_SubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "specimen type unsupported", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewLabClient(srv.URL, "k")
	_, err := client.Submit(context.Background(), LabOrderRequest{Subject: "UHID-1", Tests: []string{"GLU"}})

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if re.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", re.Status)
	}
}

func TestLabClient_SubmitTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewLabClient(srv.URL, "k")
	if _, err := client.Submit(context.Background(), LabOrderRequest{Subject: "UHID-1", Tests: []string{"GLU"}}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestLabClient_StatusAndCompletion(t *testing.T) {
	completed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/ORD-42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		status := "in_progress"
		var results []string
		if completed {
			status = "completed"
			results = []string{"GLU: 92 mg/dL"}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"perDepartment": []map[string]interface{}{
				{"department": "biochemistry", "status": status, "results": results},
			},
		})
	}))
	defer srv.Close()

	client := NewLabClient(srv.URL, "k")

	summary, err := client.Status(context.Background(), "ORD-42")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if summary.Status != PollPending {
		t.Fatalf("status = %q, want pending", summary.Status)
	}

	completed = true
	done, artifactID, err := client.CheckComplete(context.Background(), "ORD-42")
	if err != nil || !done {
		t.Fatalf("CheckComplete = %v, %v; want done", done, err)
	}
	if artifactID != "ORD-42" {
		t.Fatalf("artifactID = %q", artifactID)
	}
}

func TestLabClient_CompletedWithoutResultsIsNotDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"perDepartment": []map[string]interface{}{
				{"department": "biochemistry", "status": "completed", "results": []string{}},
			},
		})
	}))
	defer srv.Close()

	client := NewLabClient(srv.URL, "k")
	done, _, err := client.CheckComplete(context.Background(), "ORD-42")
	if err != nil {
		t.Fatalf("CheckComplete: %v", err)
	}
	if done {
		t.Fatal("completed status with empty results must not count as done")
	}
}

func TestScanClient_SubmitImmediateArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="study.dcm"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("DICM-BYTES"))
	}))
	defer srv.Close()

	client := NewScanClient(srv.URL, "k")
	sub, err := client.Submit(context.Background(), ScanOrderRequest{Subject: "UHID-1", ScanType: "OCT"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Body == nil {
		t.Fatal("expected immediate artifact body")
	}
	defer sub.Body.Close()

	if sub.FilenameHint != "study.dcm" {
		t.Fatalf("hint = %q", sub.FilenameHint)
	}
	data, _ := io.ReadAll(sub.Body)
	if string(data) != "DICM-BYTES" {
		t.Fatalf("body = %q", data)
	}
}

func TestScanClient_SubmitAcceptedPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"id": "REQ-9"})
	}))
	defer srv.Close()

	client := NewScanClient(srv.URL, "k")
	sub, err := client.Submit(context.Background(), ScanOrderRequest{Subject: "UHID-1", ScanType: "OCT"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Body != nil {
		t.Fatal("pending response must not carry a body")
	}
	if sub.RequestID != "REQ-9" {
		t.Fatalf("requestID = %q, want REQ-9", sub.RequestID)
	}
}

func TestScanClient_AcceptedWithoutTrackingIDIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	client := NewScanClient(srv.URL, "k")
	if _, err := client.Submit(context.Background(), ScanOrderRequest{Subject: "UHID-1", ScanType: "OCT"}); err == nil {
		t.Fatal("expected error for 202 without tracking id")
	}
}

func TestScanClient_CheckComplete(t *testing.T) {
	status := "queued"
	scanID := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/request-status/REQ-9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status, "scan_id": scanID})
	}))
	defer srv.Close()

	client := NewScanClient(srv.URL, "k")

	done, _, err := client.CheckComplete(context.Background(), "REQ-9")
	if err != nil || done {
		t.Fatalf("queued request reported done=%v err=%v", done, err)
	}

	status, scanID = "attended", "SCAN-7"
	done, gotID, err := client.CheckComplete(context.Background(), "REQ-9")
	if err != nil || !done {
		t.Fatalf("attended request reported done=%v err=%v", done, err)
	}
	if gotID != "SCAN-7" {
		t.Fatalf("scanID = %q", gotID)
	}
}
