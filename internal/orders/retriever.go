package orders

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// artifactChunkSize bounds how much of an artifact is held in memory while
// streaming to disk. Scan images can be large.
const artifactChunkSize = 8192

// ArtifactFetcher opens a streaming download for a remote artifact. The hint
// is the remote's suggested filename, empty when the response carried none.
type ArtifactFetcher interface {
	FetchArtifact(ctx context.Context, id string) (body io.ReadCloser, hint string, err error)
}

// Retriever streams completed artifacts from a remote service into a local
// directory.
type Retriever struct {
	dir string
	now func() time.Time
}

func NewRetriever(dir string) *Retriever {
	return &Retriever{dir: dir, now: time.Now}
}

// Retrieve fetches the artifact with the given id and persists it. Remote
// failures (non-success status, transport error) yield ErrArtifactUnavailable
// so callers can report "not ready" instead of a hard failure; local write
// failures are returned as-is.
func (r *Retriever) Retrieve(ctx context.Context, fetcher ArtifactFetcher, id, subjectHint, ext string) (string, error) {
	body, hint, err := fetcher.FetchArtifact(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}
	defer body.Close()

	return r.Save(body, hint, subjectHint, id, ext)
}

// Save streams an already-open artifact body to disk and returns the stored
// filename. The name comes from the remote hint when present, otherwise from
// the subject, remote id, and a timestamp. An existing file is never
// overwritten; colliding names get a numeric suffix instead.
func (r *Retriever) Save(body io.Reader, hint, subjectHint, id, ext string) (string, error) {
	name := sanitizeFilename(hint)
	if name == "" {
		name = fmt.Sprintf("%s_%s_%d%s", subjectHint, id, r.now().Unix(), ext)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}

	name, f, err := r.createUnique(name)
	if err != nil {
		return "", fmt.Errorf("creating artifact file: %w", err)
	}
	dest := filepath.Join(r.dir, name)

	buf := make([]byte, artifactChunkSize)
	if _, err := io.CopyBuffer(f, body, buf); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("closing artifact file: %w", err)
	}
	return name, nil
}

// createUnique opens a fresh file for the given name, inserting _1, _2, ...
// before the extension when the name is already taken. Remote hints repeat
// (two scans can both suggest "oct.dcm") and must not clobber each other.
func (r *Retriever) createUnique(name string) (string, *os.File, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 0; ; i++ {
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(r.dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return candidate, f, nil
		}
		if !os.IsExist(err) || i >= 1000 {
			return "", nil, err
		}
	}
}

// FindStored returns the name of a previously retrieved artifact whose name
// embeds the given id as a whole underscore-delimited segment, or "" when
// none exists. The delimiter check keeps ORD-4 from matching ORD-42.
func (r *Retriever) FindStored(id string) string {
	if id == "" {
		return ""
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if nameEmbedsID(entry.Name(), id) {
			return entry.Name()
		}
	}
	return ""
}

// nameEmbedsID reports whether id occurs in name bounded by the start or end
// of the name, an underscore, or the extension dot.
func nameEmbedsID(name, id string) bool {
	for from := 0; ; {
		i := strings.Index(name[from:], id)
		if i < 0 {
			return false
		}
		i += from
		startOK := i == 0 || name[i-1] == '_'
		end := i + len(id)
		endOK := end == len(name) || name[end] == '_' || name[end] == '.'
		if startOK && endOK {
			return true
		}
		from = i + 1
	}
}

// Path resolves a stored artifact name to its absolute location.
func (r *Retriever) Path(name string) string {
	return filepath.Join(r.dir, name)
}

// filenameFromHeader extracts the filename from a Content-Disposition header,
// if any.
func filenameFromHeader(h http.Header) string {
	cd := h.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	return sanitizeFilename(params["filename"])
}

// sanitizeFilename strips any path components from a remote-supplied name so
// it cannot escape the artifact directory.
func sanitizeFilename(name string) string {
	if name == "" {
		return ""
	}
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
