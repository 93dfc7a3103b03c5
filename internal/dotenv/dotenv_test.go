package dotenv_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/primehuntdev/primehunt/internal/dotenv"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		want  string
	}{
		{"basic", "FOO=bar\nBAZ=qux", "FOO", "bar"},
		{"export prefix", "export FOO=bar", "FOO", "bar"},
		{"double quoted", `KEY="hello world"`, "KEY", "hello world"},
		{"single quoted", `KEY='literal $value'`, "KEY", "literal $value"},
		{"empty value", "KEY=", "KEY", ""},
		{"value with equals", "URL=postgres://localhost/db?sslmode=disable", "URL", "postgres://localhost/db?sslmode=disable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := dotenv.ParseString(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if env[tt.key] != tt.want {
				t.Errorf("%s = %q, want %q", tt.key, env[tt.key], tt.want)
			}
		})
	}
}

func TestParseCommentsAndBlanks(t *testing.T) {
	input := "# comment\nFOO=bar\n\n# another\nBAZ=qux\n"
	env, err := dotenv.ParseString(input)
	if err != nil {
		t.Fatal(err)
	}
	if len(env) != 2 {
		t.Errorf("len = %d, want 2", len(env))
	}
}

func TestParseFileNotFound(t *testing.T) {
	_, err := dotenv.ParseFile("/nonexistent/.env")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMissionEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "A=1\nB=2\nD=base\n")
	writeFile(t, filepath.Join(dir, ".env.local"), "B=local\nC=3\n")

	env, err := dotenv.LoadMissionEnv(dir, map[string]string{"D": "manifest"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"A": "1", "B": "local", "C": "3", "D": "manifest"}
	for k, v := range want {
		if env[k] != v {
			t.Errorf("%s = %q, want %q", k, env[k], v)
		}
	}
}

func TestLoadMissionEnvNoFiles(t *testing.T) {
	env, err := dotenv.LoadMissionEnv(t.TempDir(), map[string]string{"ONLY": "manifest"})
	if err != nil {
		t.Fatal(err)
	}
	if len(env) != 1 || env["ONLY"] != "manifest" {
		t.Errorf("env = %v, want manifest env only", env)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
