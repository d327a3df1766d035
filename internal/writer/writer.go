package writer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-scripts/research/pkg/common"
)

// TimestampLayout formats the timestamp embedded in output file names
const TimestampLayout = "20060102-150405"

// Timestamp formats t for use in file names
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FileWriter handles writing research output to files
type FileWriter struct {
	outputDir string
	mu        sync.Mutex
}

// New creates a new FileWriter instance
func New(outputDir string) (*FileWriter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileWriter{outputDir: outputDir}, nil
}

// Dir returns the output directory
func (w *FileWriter) Dir() string {
	return w.outputDir
}

// WriteDataset writes the research records as an indented JSON array to
// business_niche_data_<timestamp>.json and returns its path
func (w *FileWriter) WriteDataset(records []common.WebsiteRecord, at time.Time) (string, error) {
	if records == nil {
		records = []common.WebsiteRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode dataset: %w", err)
	}
	path, err := w.create("business_niche_data_"+Timestamp(at), ".json", data)
	if err != nil {
		return "", fmt.Errorf("failed to write dataset: %w", err)
	}
	return path, nil
}

// WriteScreenshot writes PNG bytes to screenshot_<timestamp>.png and returns its path
func (w *FileWriter) WriteScreenshot(png []byte, at time.Time) (string, error) {
	path, err := w.create("screenshot_"+Timestamp(at), ".png", png)
	if err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

// WriteText writes text to <prefix>_<timestamp><ext> and returns its path
func (w *FileWriter) WriteText(prefix, ext, text string, at time.Time) (string, error) {
	path, err := w.create(sanitizeFilename(prefix)+"_"+Timestamp(at), ext, []byte(text))
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", prefix, err)
	}
	return path, nil
}

// create writes data to a new file named base+ext, appending _2, _3, ...
// to base when the name is taken
func (w *FileWriter) create(base, ext string, data []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for n := 1; ; n++ {
		name := base + ext
		if n > 1 {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(w.outputDir, name)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := file.Write(data); err != nil {
			file.Close()
			return "", err
		}
		if err := file.Close(); err != nil {
			return "", err
		}
		return path, nil
	}
}

// sanitizeFilename makes s safe to use as part of a file name
func sanitizeFilename(s string) string {
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "www.")

	unsafe := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	for _, char := range unsafe {
		s = strings.ReplaceAll(s, char, "_")
	}
	return s
}
