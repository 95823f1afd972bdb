package credentials

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// ErrCredentialMissing is reported when a request is built without a key it needs.
// Requests still go out with an empty value, the portal decides whether that matters.
var ErrCredentialMissing = errors.New("credential missing")

// Store is where captured credentials live. Scrapers Load before every request so an
// operator can refresh a token in the middle of a run.
//
// note: fault injection point
type Store interface {
	Load(ctx context.Context) (Set, error)
	// Update overwrites the given keys in place, adds the ones that do not exist yet
	// and leaves every other key untouched.
	Update(ctx context.Context, updates map[string]string) error
}

// Set is a snapshot of the credential store.
type Set map[string]string

// Get returns the stored value, falling back to the built-in default of the key.
func (s Set) Get(key string) string {
	value, ok := s[key]
	if ok && value != "" {
		return value
	}
	return defaults[key]
}

// Missing returns the keys that have neither a stored value nor a default.
func (s Set) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if s.Get(k) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// Require is Missing as an error wrapping ErrCredentialMissing.
func (s Set) Require(keys ...string) error {
	missing := s.Missing(keys...)
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrCredentialMissing, strings.Join(missing, ", "))
}

// Int parses the value of key, an unset key with no default yields 0.
func (s Set) Int(key string) (int, error) {
	value := s.Get(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("credential %s: %w", key, err)
	}
	return n, nil
}

// Keys returns the stored keys in sorted order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// IsKnown reports whether a scraper reads the key.
func IsKnown(key string) bool {
	return slices.Contains(Known, key)
}

// Suggest returns the known key that most resembles an unknown one, used to catch
// typos when keys are set by hand.
func Suggest(key string) (string, bool) {
	best := ""
	bestScore := 0.0
	for _, k := range Known {
		score := matchr.JaroWinkler(strings.ToUpper(key), k, false)
		if score > bestScore {
			best = k
			bestScore = score
		}
	}
	if bestScore < 0.85 {
		return "", false
	}
	return best, true
}

// Redact shortens a secret so it can be shown in a terminal or a log line.
func Redact(value string) string {
	if len(value) <= 12 {
		return strings.Repeat("*", len(value))
	}
	return fmt.Sprintf("%s...%s (%d chars)", value[:6], value[len(value)-4:], len(value))
}

// MemoryStore keeps credentials in memory, it is used by tests and by one-off runs
// that receive credentials through flags.
type MemoryStore struct {
	mutex  sync.Mutex
	values map[string]string
}

func NewMemoryStore(initial map[string]string) *MemoryStore {
	values := map[string]string{}
	maps.Copy(values, initial)
	return &MemoryStore{values: values}
}

func (m *MemoryStore) Load(ctx context.Context) (Set, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return Set(maps.Clone(m.values)), nil
}

func (m *MemoryStore) Update(ctx context.Context, updates map[string]string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	maps.Copy(m.values, updates)
	return nil
}
