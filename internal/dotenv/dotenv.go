// Package dotenv parses .env files into key-value maps. Deploy merges them
// into the mission's environment, so secrets like API keys stay out of
// hunt.yaml.
package dotenv

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ParseString parses dotenv-formatted text into a map.
func ParseString(s string) (map[string]string, error) {
	env := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Strip optional "export " prefix.
		line = strings.TrimPrefix(line, "export ")

		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := unquote(line[idx+1:])
		env[key] = val
	}
	return env, scanner.Err()
}

// unquote removes surrounding double or single quotes from a value.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// ParseFile reads and parses a .env file.
func ParseFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseString(string(data))
}

// LoadMissionEnv merges the mission's environment sources for the manifest
// at dir: .env first, then .env.local, then the manifest's own env map.
// Later sources win. Missing files are silently skipped.
func LoadMissionEnv(dir string, manifestEnv map[string]string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		env, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		for k, v := range env {
			merged[k] = v
		}
	}
	for k, v := range manifestEnv {
		merged[k] = v
	}
	return merged, nil
}
