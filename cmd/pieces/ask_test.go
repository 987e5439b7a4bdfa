package main

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestAsk_MissingCompletionKeyFailsFirst runs "pieces ask" in a child process
// with neither the completion nor the embedding credential set. The
// completion key must be reported before any retrieval work starts.
func TestAsk_MissingCompletionKeyFailsFirst(t *testing.T) {
	if os.Getenv("PIECES_ASK_CHILD") == "1" {
		rootCmd.SetArgs([]string{"ask", "--root", os.Getenv("PIECES_ASK_ROOT"), "what is tempo"})
		_ = rootCmd.Execute()
		os.Exit(ExitSuccess)
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestAsk_MissingCompletionKeyFailsFirst$")
	cmd.Env = append(os.Environ(),
		"PIECES_ASK_CHILD=1",
		"PIECES_ASK_ROOT="+t.TempDir(),
		"XDG_CONFIG_HOME="+t.TempDir(),
		"OPENAI_API_KEY=",
		"HF_TOKEN=",
	)
	out, err := cmd.Output()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected a non-zero exit, got %v (output %s)", err, out)
	}
	if code := exitErr.ExitCode(); code != ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, ExitConfigError)
	}
	if !strings.Contains(string(out), "missing completion API key") {
		t.Errorf("output = %s, want the completion key error", out)
	}
}
