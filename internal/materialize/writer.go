package materialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/brensch/electionjson/internal/aggregate"
	"github.com/brensch/electionjson/internal/hierarchy"
	"github.com/brensch/electionjson/internal/ordered"
)

const indexFile = "index.json"

// SerializationError reports a value that could not be encoded as JSON.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// WriteError reports an output path that could not be created or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer writes compact JSON documents below Root.
type Writer struct {
	Root    string
	logger  *slog.Logger
	written int
}

// NewWriter returns a Writer rooted at root.
func NewWriter(root string, logger *slog.Logger) *Writer {
	return &Writer{Root: root, logger: logger}
}

// Written is the number of files written so far.
func (w *Writer) Written() int {
	return w.written
}

// Marshal encodes v as compact JSON without HTML escaping or a trailing
// newline. Non-ASCII text is emitted as UTF-8.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteJSON writes v to Root/rel, creating parent directories as needed.
func (w *Writer) WriteJSON(rel string, v any) error {
	path := filepath.Join(w.Root, rel)
	data, err := Marshal(v)
	if err != nil {
		return &SerializationError{Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	w.written++
	w.logger.Debug("Wrote document.", slog.String("path", path), slog.Int("bytes", len(data)))
	return nil
}

// LevelPath is where the document of key at level l goes under prefix. The
// category's own sentinel record sits at the category root.
func LevelPath(prefix string, l hierarchy.Level, key string) string {
	if key == l.Category() {
		return filepath.Join(prefix, l.Category(), indexFile)
	}
	return filepath.Join(prefix, l.Category(), key, indexFile)
}

// IndexPath is the path of a standalone index document.
func IndexPath(parts ...string) string {
	return filepath.Join(append(parts, indexFile)...)
}

func writeLevels[R any, D any](w *Writer, prefix string, levels func(hierarchy.Level) *ordered.Map[string, R], convert func(R) D) error {
	for _, l := range hierarchy.Levels() {
		records := levels(l)
		for _, key := range records.SortedKeys() {
			r, _ := records.Get(key)
			if err := w.WriteJSON(LevelPath(prefix, l, key), convert(r)); err != nil {
				return err
			}
		}
		w.logger.Info("Wrote level documents.", slog.String("prefix", prefix), slog.String("category", l.Category()), slog.Int("count", records.Len()))
	}
	return nil
}

// WriteSingle writes every record of one election under <electionID>/.
func (w *Writer) WriteSingle(s *aggregate.Single) error {
	return writeLevels(w, s.ElectionID(), s.Records, ElectionDocument)
}

// WriteCombined writes every cross-election record under prefix.
func (w *Writer) WriteCombined(prefix string, c *aggregate.Combined) error {
	return writeLevels(w, prefix, c.Records, CombinedDocument)
}
