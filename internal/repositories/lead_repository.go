package repositories

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/vistav/site-api/internal/models"
)

// Column headers for the leads file. Kept in Czech because the office opens
// the export directly in Excel.
var leadHeaders = []string{
	"Datum a čas",
	"Jméno",
	"Telefon",
	"Email",
	"Typ klienta",
	"Společnost",
	"Typ služby",
	"Zpráva",
	"IP adresa",
	"User Agent",
}

// LeadRepository appends contact-form leads to a CSV file: UTF-8 BOM and a
// semicolon separator so Excel opens it correctly, and every cell passes
// through formula-injection neutralization.
type LeadRepository struct {
	path string
	mu   sync.Mutex
}

// NewLeadRepository creates a repository writing to the CSV at path.
func NewLeadRepository(path string) (*LeadRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create leads directory: %w", err)
	}
	return &LeadRepository{path: path}, nil
}

// Path returns the backing file path.
func (r *LeadRepository) Path() string {
	return r.path
}

// Append writes one lead row, creating the file with BOM and headers first.
func (r *LeadRepository) Append(lead models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, statErr := os.Stat(r.path)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open leads file: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to lock leads file: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	w := csv.NewWriter(f)
	w.Comma = ';'

	if fresh {
		// BOM so Excel detects UTF-8
		if _, err := f.WriteString("\xEF\xBB\xBF"); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
		if err := w.Write(leadHeaders); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	row := []string{
		lead.CreatedAt.Format("2006-01-02 15:04:05"),
		lead.Name,
		lead.Phone,
		lead.Email,
		lead.ClientType,
		lead.Company,
		lead.Service,
		lead.Message,
		lead.IPAddress,
		lead.UserAgent,
	}
	if err := w.Write(neutralizeCSVRow(row)); err != nil {
		return fmt.Errorf("failed to write lead: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush lead: %w", err)
	}
	return nil
}

// neutralizeCSVField prefixes a single quote when a value starts with a
// character spreadsheets interpret as a formula ('=', '+', '-', '@').
func neutralizeCSVField(value string) string {
	trimmed := strings.TrimLeft(value, " \t")
	if trimmed != "" {
		switch trimmed[0] {
		case '=', '+', '-', '@':
			return "'" + value
		}
	}
	return value
}

func neutralizeCSVRow(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = neutralizeCSVField(v)
	}
	return out
}
