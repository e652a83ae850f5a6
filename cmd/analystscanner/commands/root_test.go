package commands

import (
	"context"
	"strings"
	"testing"
)

func TestExecuteContextReturnsErrors(t *testing.T) {
	t.Setenv("ANALYST_SCANNER_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		*scanDay = ""
	})

	rootCmd.SetArgs([]string{"no-such-command"})
	if err := ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected error for unknown command")
	}

	rootCmd.SetArgs([]string{"scan", "--day", "22/07/2023"})
	err := ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid --day") {
		t.Fatalf("expected day parse error, got %v", err)
	}
}
