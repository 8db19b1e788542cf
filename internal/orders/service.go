package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LabGateway is the lab-service surface the order workflow depends on.
type LabGateway interface {
	Submit(ctx context.Context, order LabOrderRequest) (string, error)
	Status(ctx context.Context, orderID string) (*StatusSummary, error)
	StatusChecker
	ArtifactFetcher
}

// ScanGateway is the imaging-service surface the order workflow depends on.
type ScanGateway interface {
	Submit(ctx context.Context, order ScanOrderRequest) (*ScanSubmission, error)
	StatusChecker
	ArtifactFetcher
}

// Service orchestrates the order lifecycle: submission to the external
// services, ledger bookkeeping, polling for completion, artifact retrieval,
// and department-scoped access to results.
type Service struct {
	history   HistoryStore
	lab       LabGateway
	scan      ScanGateway
	retriever *Retriever
	poller    *Poller
	guard     *Guard
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(history HistoryStore, lab LabGateway, scan ScanGateway, retriever *Retriever, poller *Poller, logger zerolog.Logger) *Service {
	return &Service{
		history:   history,
		lab:       lab,
		scan:      scan,
		retriever: retriever,
		poller:    poller,
		guard:     NewGuard(history),
		logger:    logger,
		now:       time.Now,
	}
}

// SubmitLabOrderInput carries everything needed to place a lab order.
type SubmitLabOrderInput struct {
	Department string   `json:"department"`
	SubjectID  string   `json:"subject_id"`
	Clinician  string   `json:"clinician"`
	Tests      []string `json:"tests"`
	Priority   string   `json:"priority"`
	Specimen   string   `json:"specimen"`
	Notes      string   `json:"notes"`
}

// SubmitScanInput carries everything needed to request a scan.
type SubmitScanInput struct {
	Department string `json:"department"`
	SubjectID  string `json:"subject_id"`
	ScanType   string `json:"scan_type"`
	BodyPart   string `json:"body_part"`
	Priority   string `json:"priority"`
}

// SubmitLabOrder validates the request, places it with the lab service, and
// records the accepted order in the ledger. The remote call is attempted at
// most once; retries are the caller's responsibility.
func (s *Service) SubmitLabOrder(ctx context.Context, in SubmitLabOrderInput) (string, error) {
	if in.Department == "" {
		return "", &ValidationError{Field: "department", Reason: "required"}
	}
	if in.SubjectID == "" {
		return "", &ValidationError{Field: "subject_id", Reason: "required"}
	}
	if len(in.Tests) == 0 {
		return "", &ValidationError{Field: "tests", Reason: "at least one test is required"}
	}
	if in.Priority == "" {
		in.Priority = PriorityRoutine
	}
	if !ValidPriority(in.Priority) {
		return "", &ValidationError{Field: "priority", Reason: "must be routine, urgent, or stat"}
	}

	ref := s.externalReference(in.SubjectID)
	orderID, err := s.lab.Submit(ctx, LabOrderRequest{
		ExternalReference: ref,
		Priority:          in.Priority,
		Subject:           in.SubjectID,
		Clinician:         in.Clinician,
		Tests:             in.Tests,
		Specimen:          in.Specimen,
		ClinicalNotes:     in.Notes,
	})
	if err != nil {
		return "", err
	}

	rec := OrderRecord{
		OrderID:           orderID,
		ExternalReference: ref,
		SubjectID:         in.SubjectID,
		Department:        in.Department,
		Priority:          in.Priority,
		RequestedItems:    in.Tests,
		Specimen:          in.Specimen,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.history.Append(rec); err != nil {
		// The remote accepted the order; the ledger write failed.
		// Surface the failure so it is not silently lost.
		return "", fmt.Errorf("order %s accepted but not recorded: %w", orderID, err)
	}

	s.logger.Info().
		Str("order_id", orderID).
		Str("department", in.Department).
		Str("subject_id", in.SubjectID).
		Msg("lab order placed")
	return orderID, nil
}

// SubmitScan validates the request and sends it to the imaging service. A
// synchronous 200 response is streamed straight to disk; an accepted-pending
// response is polled until the scan is ready, then downloaded. Returns the
// stored artifact filename.
func (s *Service) SubmitScan(ctx context.Context, in SubmitScanInput) (string, error) {
	if in.Department == "" {
		return "", &ValidationError{Field: "department", Reason: "required"}
	}
	if in.SubjectID == "" {
		return "", &ValidationError{Field: "subject_id", Reason: "required"}
	}
	if in.ScanType == "" {
		return "", &ValidationError{Field: "scan_type", Reason: "required"}
	}
	if in.Priority == "" {
		in.Priority = PriorityRoutine
	}
	if !ValidPriority(in.Priority) {
		return "", &ValidationError{Field: "priority", Reason: "must be routine, urgent, or stat"}
	}

	ref := s.externalReference(in.SubjectID)
	sub, err := s.scan.Submit(ctx, ScanOrderRequest{
		ExternalReference: ref,
		Subject:           in.SubjectID,
		ScanType:          in.ScanType,
		BodyPart:          in.BodyPart,
		Priority:          in.Priority,
	})
	if err != nil {
		return "", err
	}

	// Synchronous path: the response body is the artifact.
	if sub.Body != nil {
		defer sub.Body.Close()
		filename, err := s.retriever.Save(sub.Body, sub.FilenameHint, in.SubjectID, ref, ".dcm")
		if err != nil {
			return "", err
		}
		if err := s.appendScanRecord(ref, ref, filename, in); err != nil {
			return "", err
		}
		return filename, nil
	}

	// Pending path: record the accepted request, then wait for completion.
	if err := s.appendScanRecord(sub.RequestID, ref, "", in); err != nil {
		return "", err
	}

	scanID, err := s.poller.Wait(ctx, s.scan, sub.RequestID)
	if err != nil {
		return "", err
	}

	filename, err := s.retriever.Retrieve(ctx, s.scan, scanID, in.SubjectID, ".dcm")
	if err != nil {
		return "", err
	}

	// Later downloads look the order up by its ledger id, so the ledger
	// must learn which file the retrieval produced.
	if err := s.history.SetArtifact(sub.RequestID, filename); err != nil {
		s.logger.Warn().Err(err).
			Str("request_id", sub.RequestID).
			Str("filename", filename).
			Msg("artifact name not recorded in ledger")
	}

	s.logger.Info().
		Str("request_id", sub.RequestID).
		Str("scan_id", scanID).
		Str("filename", filename).
		Msg("scan artifact retrieved")
	return filename, nil
}

func (s *Service) appendScanRecord(orderID, ref, artifactName string, in SubmitScanInput) error {
	rec := OrderRecord{
		OrderID:           orderID,
		ExternalReference: ref,
		SubjectID:         in.SubjectID,
		Department:        in.Department,
		Priority:          in.Priority,
		RequestedItems:    []string{in.ScanType},
		ScanType:          in.ScanType,
		BodyPart:          in.BodyPart,
		ArtifactName:      artifactName,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.history.Append(rec); err != nil {
		return fmt.Errorf("scan request %s accepted but not recorded: %w", orderID, err)
	}
	return nil
}

// OrderStatus reports the remote state of an order the caller's department
// placed. Transport problems surface as status "unknown" rather than an
// error, so an ad hoc status check never fails just because the remote
// blipped.
func (s *Service) OrderStatus(ctx context.Context, callerDepartment, orderID string) (*StatusSummary, error) {
	switch s.guard.Authorize(callerDepartment, orderID) {
	case NotFound:
		return nil, ErrNotFound
	case Forbidden:
		return nil, ErrForbidden
	}

	summary, err := s.lab.Status(ctx, orderID)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID).Msg("status check failed")
		return &StatusSummary{OrderID: orderID, Status: "unknown"}, nil
	}
	return summary, nil
}

// AwaitLabResults blocks until the order completes, then downloads the
// report. The caller's request stays outstanding for up to the poll budget.
func (s *Service) AwaitLabResults(ctx context.Context, callerDepartment, orderID string) (string, error) {
	rec, ok := s.history.Find(orderID)
	if !ok {
		return "", ErrNotFound
	}
	if s.guard.Authorize(callerDepartment, orderID) == Forbidden {
		return "", ErrForbidden
	}

	if _, err := s.poller.Wait(ctx, s.lab, orderID); err != nil {
		return "", err
	}
	name, err := s.retriever.Retrieve(ctx, s.lab, orderID, rec.SubjectID, ".json")
	if err != nil {
		return "", err
	}
	if err := s.history.SetArtifact(orderID, name); err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID).Msg("artifact name not recorded in ledger")
	}
	return name, nil
}

// DownloadArtifact releases a stored artifact to the caller after the access
// check. A lab report that has not been downloaded yet is fetched on the
// spot; a scan that has not finished retrieval is reported unavailable.
func (s *Service) DownloadArtifact(ctx context.Context, callerDepartment, orderID string) (string, error) {
	switch s.guard.Authorize(callerDepartment, orderID) {
	case NotFound:
		return "", ErrNotFound
	case Forbidden:
		return "", ErrForbidden
	}

	rec, _ := s.history.Find(orderID)

	// The ledger knows the stored filename once retrieval has completed.
	// This covers async scans, whose ledger id is the remote request id
	// while the file on disk is named after the scan id.
	if rec.ArtifactName != "" {
		return s.retriever.Path(rec.ArtifactName), nil
	}

	if name := s.retriever.FindStored(orderID); name != "" {
		return s.retriever.Path(name), nil
	}

	if rec.ScanType != "" {
		return "", ErrArtifactUnavailable
	}

	name, err := s.retriever.Retrieve(ctx, s.lab, orderID, rec.SubjectID, ".json")
	if err != nil {
		return "", err
	}
	if err := s.history.SetArtifact(orderID, name); err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID).Msg("artifact name not recorded in ledger")
	}
	return s.retriever.Path(name), nil
}

// Authorize exposes the access decision for an order.
func (s *Service) Authorize(callerDepartment, orderID string) Decision {
	return s.guard.Authorize(callerDepartment, orderID)
}

// ListHistory returns the ledger newest-first, optionally filtered to one
// department (exact, case-sensitive match).
func (s *Service) ListHistory(department string) []OrderRecord {
	return s.history.List(department)
}

// externalReference generates the correlation id embedded in every outbound
// request, for idempotency and traceability on the remote side.
func (s *Service) externalReference(subjectID string) string {
	return fmt.Sprintf("EXT_%s_%d", subjectID, s.now().Unix())
}
