package credentials

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// EnvFile stores credentials as KEY=value lines, the format operators already keep their
// captured tokens in. Comments, blank lines and unrelated keys survive every Update.
type EnvFile struct {
	path  string
	mutex sync.Mutex
}

func NewEnvFile(path string) *EnvFile {
	return &EnvFile{path: path}
}

func (e *EnvFile) readLines() ([]string, error) {
	contents, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(contents))
	// cookie strings easily exceed the default token size
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func (e *EnvFile) Load(ctx context.Context) (Set, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	contents, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	values, err := godotenv.Unmarshal(string(contents))
	if err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return Set(values), nil
}

func (e *EnvFile) Update(ctx context.Context, updates map[string]string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	lines, err := e.readLines()
	if err != nil {
		return fmt.Errorf("update env file: %w", err)
	}

	written := map[string]bool{}
	for i, line := range lines {
		key, ok := lineKey(line)
		if !ok {
			continue
		}
		value, updated := updates[key]
		if !updated {
			continue
		}
		lines[i] = formatEnvLine(key, value)
		written[key] = true
	}

	var appended []string
	for key := range updates {
		if !written[key] {
			appended = append(appended, key)
		}
	}
	slices.Sort(appended)
	for _, key := range appended {
		lines = append(lines, formatEnvLine(key, updates[key]))
	}

	return e.writeLines(lines)
}

func (e *EnvFile) writeLines(lines []string) error {
	dir := filepath.Dir(e.path)
	tmp, err := os.CreateTemp(dir, ".env-*")
	if err != nil {
		return fmt.Errorf("update env file: %w", err)
	}
	defer os.Remove(tmp.Name())

	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	_, err = tmp.WriteString(content)
	if err == nil {
		err = tmp.Chmod(0600)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("update env file: %w", err)
	}

	err = os.Rename(tmp.Name(), e.path)
	if err != nil {
		return fmt.Errorf("update env file: %w", err)
	}
	return nil
}

// lineKey returns the key a single line assigns, comments and blank lines have none.
func lineKey(line string) (string, bool) {
	values, err := godotenv.Unmarshal(line)
	if err != nil || len(values) != 1 {
		return "", false
	}
	for key := range values {
		return key, true
	}
	return "", false
}

func formatEnvLine(key, value string) string {
	if value == "" || !strings.ContainsAny(value, " \t#'\"\\\n=;$") {
		return fmt.Sprintf("%s=%s", key, value)
	}
	if !strings.ContainsAny(value, "'\n") {
		return fmt.Sprintf("%s='%s'", key, value)
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "$", `\$`).Replace(value)
	return fmt.Sprintf(`%s="%s"`, key, escaped)
}
