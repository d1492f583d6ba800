package main

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--year", "2024", "--month", "2"))
	err := rootCmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
	dir := t.TempDir()
	t.Setenv("BUDGET_CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "budget.db"))
	t.Setenv("REMOTE_BACKEND", "none")
	t.Setenv("EVENTS_BACKEND", "none")
	t.Setenv("BASE_DAILY_TARGET", "20")
	t.Setenv("ANTHROPIC_API_KEY", "")
	flagPolicy = ""
}

func TestBudgetctl_AddShowRemove(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "add", "3", "15,5", "train", "ticket")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	m := regexp.MustCompile(`id ([0-9a-f-]{36})`).FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("add output has no id: %q", out)
	}

	out, err = runCLI(t, "show", "--policy", "rsr")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Budget 2024-02", "RSR", "15.50", "580.00", "1 / 28"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if out, err := runCLI(t, "rm", "3", m[1]); err != nil {
		t.Fatalf("rm: %v\n%s", err, out)
	}
	if _, err := runCLI(t, "rm", "3", m[1]); err == nil {
		t.Error("removing twice should fail")
	}
}

func TestBudgetctl_Validation(t *testing.T) {
	setupEnv(t)

	tests := [][]string{
		{"add", "30", "1"},
		{"add", "x", "1"},
		{"add", "1", "-5"},
		{"rm", "1"},
	}
	for _, args := range tests {
		if _, err := runCLI(t, args...); err == nil {
			t.Errorf("%v should fail", args)
		}
	}
}

func TestBudgetctl_AdviseWithoutKey(t *testing.T) {
	setupEnv(t)
	if _, err := runCLI(t, "advise"); err == nil || !strings.Contains(err.Error(), "advisor is not configured") {
		t.Errorf("advise error = %v", err)
	}
}

func TestBudgetctl_Policies(t *testing.T) {
	setupEnv(t)
	out, err := runCLI(t, "policies")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "* scr (default)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
