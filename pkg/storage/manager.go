package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Manager writes raw upstream responses into a dump directory
type Manager struct {
	outputDir string
	saved     map[string]bool
	seq       int
	mu        sync.Mutex
}

// NewManager creates a new storage manager, creating outputDir if needed.
// Existing dumps are kept and counted.
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		saved:     make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && !strings.HasSuffix(entry.Name(), ".tmp") {
			m.saved[entry.Name()] = true
		}
	}
	m.seq = len(m.saved)
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NextName builds a unique, filesystem-safe file name from a label such as
// a request URL. The sequence number keeps dumps in request order.
func (m *Manager) NextName(label, ext string) string {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	label = strings.TrimPrefix(strings.TrimPrefix(label, "https://"), "http://")
	label = strings.Trim(unsafeChars.ReplaceAllString(label, "_"), "_")
	if len(label) > 80 {
		label = label[:80]
	}
	if label == "" {
		label = "response"
	}
	return fmt.Sprintf("%04d-%s.%s", seq, label, strings.TrimPrefix(ext, "."))
}

// Exists reports whether a dump with the given file name is present
func (m *Manager) Exists(name string) bool {
	m.mu.Lock()
	known := m.saved[name]
	m.mu.Unlock()
	if known {
		return true
	}

	_, err := os.Stat(filepath.Join(m.outputDir, name))
	return err == nil
}

// Save writes the reader's contents to name atomically and returns the full path
func (m *Manager) Save(r io.Reader, name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid dump file name: %q", name)
	}
	filename := filepath.Join(m.outputDir, name)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write dump: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.saved[name] = true
	m.mu.Unlock()

	return filename, nil
}

// WriteString is a convenience wrapper around Save
func (m *Manager) WriteString(name, contents string) (string, error) {
	return m.Save(strings.NewReader(contents), name)
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Count returns the number of dumps in the directory
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}
