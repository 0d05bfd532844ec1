package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("SCENARIODB_DIR", tmp)
	t.Setenv("XDG_DATA_HOME", "")
	return tmp
}

func TestRunLogWriteReadAndVerify(t *testing.T) {
	tmp := setupEnv(t)

	log, err := CreateRunLog("job-1")
	if err != nil {
		t.Fatalf("CreateRunLog returned error: %v", err)
	}
	if !strings.HasPrefix(log.Path, filepath.Join(tmp, "runs")) {
		t.Fatalf("expected log under runs dir, got %s", log.Path)
	}

	fmt.Fprintln(log, "solving Base")
	fmt.Fprintln(log, "objective 42")
	if err := log.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	content, err := ReadRunLog(log.Path)
	if err != nil {
		t.Fatalf("ReadRunLog error: %v", err)
	}
	if content != "solving Base\nobjective 42\n" {
		t.Fatalf("unexpected content %q", content)
	}

	recorded, err := RunLogHash(log.Path)
	if err != nil {
		t.Fatalf("RunLogHash error: %v", err)
	}
	if recorded != log.Hash() || recorded != calculateHash(content) {
		t.Fatalf("recorded hash %s does not match content", recorded)
	}

	for _, expected := range []string{"", log.Hash()} {
		ok, err := VerifyRunLog(log.Path, expected)
		if err != nil {
			t.Fatalf("VerifyRunLog error: %v", err)
		}
		if !ok {
			t.Fatalf("VerifyRunLog(%q) expected true", expected)
		}
	}

	if err := os.WriteFile(log.Path, []byte("tampered"), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if ok, _ := VerifyRunLog(log.Path, ""); ok {
		t.Fatalf("expected tampered log to fail verification")
	}
}

func TestVerifyMissingRunLog(t *testing.T) {
	setupEnv(t)

	ok, err := VerifyRunLog(GetRunLogPath("missing"), "abc")
	if err != nil {
		t.Fatalf("VerifyRunLog error: %v", err)
	}
	if ok {
		t.Fatalf("expected missing log to fail verification")
	}
}

func TestCreateRunLogRejectsPaths(t *testing.T) {
	setupEnv(t)

	for _, id := range []string{"", "../escape", `a\b`} {
		if _, err := CreateRunLog(id); err == nil {
			t.Fatalf("expected error for job id %q", id)
		}
	}
}
