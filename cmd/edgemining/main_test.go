package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/auth"
)

const testSecret = "test-secret-for-development-only-0123456789"

// writeConfig writes a minimal config with MQTT disabled and returns its path.
func writeConfig(t *testing.T, dbPath string, port int) string {
	t.Helper()
	content := fmt.Sprintf(`
node:
  id: test-node

database:
  path: %q
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

api:
  host: "127.0.0.1"
  port: %d

logging:
  level: error
  format: text
  output: stdout

security:
  jwt:
    secret: %q
    access_token_ttl: 30
`, dbPath, port, testSecret)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configEnvVar, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv(configEnvVar, writeConfig(t, "", 8080))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("run() error = %v, want database.path validation error", err)
	}
}

func TestRun_StartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "edgemining.db")
	t.Setenv(configEnvVar, writeConfig(t, dbPath, freePort(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(configEnvVar, "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})
	t.Run("env override", func(t *testing.T) {
		want := "/custom/path/config.yaml"
		t.Setenv(configEnvVar, want)
		if got := getConfigPath(); got != want {
			t.Errorf("getConfigPath() = %q, want %q", got, want)
		}
	})
}

func TestDispatch_Token(t *testing.T) {
	t.Setenv(configEnvVar, writeConfig(t, filepath.Join(t.TempDir(), "x.db"), 8080))

	var out bytes.Buffer
	err := dispatch(context.Background(), []string{"token", "-subject", "ops", "-role", "operator"}, &out)
	if err != nil {
		t.Fatalf("dispatch(token) error = %v", err)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "ops" || claims.Role != auth.RoleOperator {
		t.Errorf("claims = %s/%s, want ops/operator", claims.Subject, claims.Role)
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != 30*time.Minute {
		t.Errorf("token lifetime = %v, want 30m from access_token_ttl", lifetime)
	}
}

func TestDispatch_TokenInvalidRole(t *testing.T) {
	var out bytes.Buffer
	err := dispatch(context.Background(), []string{"token", "-role", "root"}, &out)
	if !errors.Is(err, auth.ErrInvalidRole) {
		t.Errorf("dispatch(token -role root) error = %v, want ErrInvalidRole", err)
	}
}

func TestDispatch_Commands(t *testing.T) {
	var out bytes.Buffer
	if err := dispatch(context.Background(), []string{"version"}, &out); err != nil {
		t.Fatalf("dispatch(version) error = %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Errorf("version output = %q, want it to contain %q", out.String(), version)
	}

	if err := dispatch(context.Background(), []string{"frobnicate"}, &out); err == nil {
		t.Error("dispatch(frobnicate) should fail")
	}
}
