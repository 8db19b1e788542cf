package orders

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// HistoryStore is the append-only ledger of orders placed against the
// external services.
type HistoryStore interface {
	// Append adds a record at the head of the ledger and persists it
	// durably before returning.
	Append(rec OrderRecord) error

	// List returns all records newest-first. A non-empty department
	// restricts the result to records whose department tag matches
	// exactly (case-sensitive).
	List(department string) []OrderRecord

	// Find looks up a record by its order id.
	Find(orderID string) (OrderRecord, bool)

	// SetArtifact records the filename under which the order's result
	// was stored. It is the one permitted mutation of a ledger entry.
	SetArtifact(orderID, name string) error
}

// FileHistoryStore keeps the ledger as a JSON array on disk, newest first.
// Writes replace the file atomically so a failed write never truncates
// existing history. Read problems (missing or corrupt file) degrade to an
// empty ledger so history pages stay available.
type FileHistoryStore struct {
	mu      sync.Mutex
	path    string
	records []OrderRecord
	logger  zerolog.Logger
}

func NewFileHistoryStore(path string, logger zerolog.Logger) *FileHistoryStore {
	s := &FileHistoryStore{path: path, logger: logger}
	s.records = s.load()
	return s
}

func (s *FileHistoryStore) load() []OrderRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("order history unreadable, starting empty")
		}
		return nil
	}
	var records []OrderRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("order history corrupt, starting empty")
		return nil
	}
	return records
}

// Append implements HistoryStore. The in-memory view is only updated once
// the new ledger is safely on disk.
func (s *FileHistoryStore) Append(rec OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]OrderRecord, 0, len(s.records)+1)
	updated = append(updated, rec)
	updated = append(updated, s.records...)

	if err := s.persist(updated); err != nil {
		return fmt.Errorf("persisting order history: %w", err)
	}
	s.records = updated
	return nil
}

// persist writes the full ledger to a temp file in the same directory and
// renames it over the target, so readers never observe a partial file.
func (s *FileHistoryStore) persist(records []OrderRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// List implements HistoryStore.
func (s *FileHistoryStore) List(department string) []OrderRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]OrderRecord, 0, len(s.records))
	for _, rec := range s.records {
		if department != "" && rec.Department != department {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// SetArtifact implements HistoryStore. As with Append, the in-memory view
// only changes once the updated ledger is safely on disk.
func (s *FileHistoryStore) SetArtifact(orderID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]OrderRecord, len(s.records))
	copy(updated, s.records)

	found := false
	for i := range updated {
		if updated[i].OrderID == orderID {
			updated[i].ArtifactName = name
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("order %s not in ledger", orderID)
	}

	if err := s.persist(updated); err != nil {
		return fmt.Errorf("persisting order history: %w", err)
	}
	s.records = updated
	return nil
}

// Find implements HistoryStore.
func (s *FileHistoryStore) Find(orderID string) (OrderRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.OrderID == orderID {
			return rec, true
		}
	}
	return OrderRecord{}, false
}
