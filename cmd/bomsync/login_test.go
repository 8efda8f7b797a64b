package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestLoginCmd_Help(t *testing.T) {
	out, err := runCommand(t, "", "login", "--help")
	if err != nil {
		t.Fatalf("login --help failed: %v", err)
	}
	for _, want := range []string{"token", "--config"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected help to contain %q, got: %s", want, out)
		}
	}
}

func TestLoginCmd_MissingConfig(t *testing.T) {
	_, err := runCommand(t, "tok\n", "login", "--config", "/nonexistent/bomsync.yaml")
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestLoginCmd_SavesToken(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	out, err := runCommand(t, "tok-abc\n", "login", "--config", cfgPath)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Arena API token:") {
		t.Errorf("expected prompt, got: %s", out)
	}
	tokenPath := filepath.Join(dir, "token")
	if !strings.Contains(out, "Token saved to "+tokenPath) {
		t.Errorf("expected save confirmation, got: %s", out)
	}

	data, err := os.ReadFile(tokenPath)
	if err != nil {
		t.Fatalf("read token file: %v", err)
	}
	if string(data) != "tok-abc\n" {
		t.Errorf("token file = %q, want %q", data, "tok-abc\n")
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(tokenPath)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("token file mode = %o, want 0600", perm)
		}
	}
}

func TestLoginCmd_EmptyToken(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	_, err := runCommand(t, "\n", "login", "--config", cfgPath)
	if err == nil {
		t.Fatal("expected error for empty token")
	}
	if !strings.Contains(err.Error(), "empty token") {
		t.Errorf("error = %q, want empty token", err.Error())
	}
}

func TestLoginCmd_RoundTripsWithRefresh(t *testing.T) {
	dir := t.TempDir()
	_, baseURL := startFakeArena(t, srvLine(2))
	cfgPath := writeTestConfigArena(t, dir, baseURL)
	buildTestWorkbook(t, filepath.Join(dir, "racks.xlsx"), false)

	if _, err := runCommand(t, "", "db", "init", "--config", cfgPath); err != nil {
		t.Fatalf("db init: %v", err)
	}
	if _, err := runCommand(t, "", "scan", "--config", cfgPath); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, err := runCommand(t, "tok-abc\n", "login", "--config", cfgPath); err != nil {
		t.Fatalf("login: %v", err)
	}

	// The saved token authenticates the next refresh.
	out, err := runCommand(t, "", "refresh", "RACK-0001", "--yes", "--config", cfgPath)
	if err != nil {
		t.Fatalf("refresh after login: %v", err)
	}
	if !strings.Contains(out, "pulled 1 line (status: synced)") {
		t.Errorf("unexpected output: %s", out)
	}
}
