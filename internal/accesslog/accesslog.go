package accesslog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Actions recorded in the access log.
const (
	ActionLoginSuccess   = "LOGIN_SUCCESS"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionRateLimited    = "RATE_LIMITED"
	ActionSessionTimeout = "SESSION_TIMEOUT"
	ActionLogout         = "LOGOUT"
	ActionIPBlocked      = "IP_BLOCKED"
	ActionPasswordChange = "PASSWORD_CHANGED"
	ActionConfigUpdated  = "CONFIG_UPDATED"
	ActionLogsCleared    = "LOGS_CLEARED"
	ActionLeadSaved      = "LEAD_SAVED"
	ActionPricesSaved    = "PRICES_SAVED"
)

const timeLayout = "2006-01-02 15:04:05"

// Entry is one parsed access-log line.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Identifier string    `json:"identifier"`
	Details    string    `json:"details"`
	UserAgent  string    `json:"user_agent"`
}

// lineRe matches the fixed line format:
// [YYYY-MM-DD HH:MM:SS] ACTION_NAME | IP: <identifier> | <details> | UA: <user agent>
var lineRe = regexp.MustCompile(`^\[(.*?)\]\s+([A-Z_]+)\s+\|\s+IP:\s+([^|]+)\s+\|\s*(.*?)\s+\|\s+UA:\s*(.*)$`)

// AccessLog is the append-only, human-readable audit trail for
// security-relevant events. The line format is fixed; external log-reading
// tools depend on it.
type AccessLog struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates an access log backed by the file at path.
func New(path string) (*AccessLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &AccessLog{path: path, now: time.Now}, nil
}

// SetNowFunc overrides the clock. Test hook.
func (l *AccessLog) SetNowFunc(now func() time.Time) {
	l.now = now
}

// Path returns the backing file path.
func (l *AccessLog) Path() string {
	return l.path
}

// Record appends one line under an exclusive advisory lock.
// Newlines in free-text fields are flattened so one event is always one line.
func (l *AccessLog) Record(action, identifier, details, userAgent string) error {
	line := fmt.Sprintf("[%s] %s | IP: %s | %s | UA: %s\n",
		l.now().Format(timeLayout),
		action,
		flatten(identifier),
		flatten(details),
		flatten(userAgent),
	)

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open access log: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to lock access log: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append access log: %w", err)
	}
	return nil
}

// ReadRecent parses the log and returns the last n entries, most recent
// first. Malformed lines are skipped rather than failing the whole read.
func (l *AccessLog) ReadRecent(n int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open access log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if e, ok := parseLine(scanner.Text()); ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read access log: %w", err)
	}

	// Newest first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Clear truncates the log. Callers must have passed authentication first.
func (l *AccessLog) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Truncate(l.path, 0); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear access log: %w", err)
	}
	return nil
}

// Export copies the raw log to w, for the download endpoint.
func (l *AccessLog) Export(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open access log: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to export access log: %w", err)
	}
	return nil
}

func parseLine(line string) (Entry, bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	ts, err := time.ParseInLocation(timeLayout, m[1], time.Local)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Timestamp:  ts,
		Action:     m[2],
		Identifier: strings.TrimSpace(m[3]),
		Details:    strings.TrimSpace(m[4]),
		UserAgent:  strings.TrimSpace(m[5]),
	}, true
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
