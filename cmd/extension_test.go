package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestExtensionMechanism(t *testing.T) {
	tempDir := t.TempDir()

	helloSource := fmt.Sprintf(`
package main

import (
	"fmt"
	"os"
)

func main() {
	for _, name := range []string{%q, %q, %q, %q} {
		fmt.Printf("%%s=%%s\n", name, os.Getenv(name))
	}
	fmt.Println("args:", os.Args[1:])
}
`, EnvLedgerFile, EnvSettingsFile, EnvCurrency, EnvVerbose)

	helloPath := filepath.Join(tempDir, "cst-hello")
	srcFile := helloPath + ".go"
	if err := os.WriteFile(srcFile, []byte(helloSource), 0644); err != nil {
		t.Fatalf("Failed to write cst-hello source: %v", err)
	}
	build := exec.Command("go", "build", "-o", helloPath, srcFile)
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("Failed to compile cst-hello: %v", err)
	}

	cstPath := filepath.Join(tempDir, "cst")
	build = exec.Command("go", "build", "-o", cstPath, "../cst")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("Failed to compile cst binary: %v", err)
	}

	ledger := filepath.Join(tempDir, "random_ledger.jsonl")
	settings := filepath.Join(tempDir, "random_settings.yaml")
	args := []string{
		"--ledger-file", ledger,
		"--settings-file", settings,
		"--currency", "USD",
		"-v",
		"hello", "world",
	}

	cst := exec.Command(cstPath, args...)
	cst.Env = []string{"PATH=" + tempDir + string(os.PathListSeparator) + os.Getenv("PATH")}
	var stdout, stderr bytes.Buffer
	cst.Stdout = &stdout
	cst.Stderr = &stderr
	if err := cst.Run(); err != nil {
		t.Fatalf("cst command failed: %v\nStdout: %s\nStderr: %s", err, stdout.String(), stderr.String())
	}

	output := stdout.String()
	expected := []string{
		EnvLedgerFile + "=" + ledger,
		EnvSettingsFile + "=" + settings,
		EnvCurrency + "=USD",
		EnvVerbose + "=" + strconv.FormatBool(true),
		"args: [world]",
	}
	for _, line := range expected {
		if !strings.Contains(output, line) {
			t.Errorf("Expected output to contain %q, but got:\n%s", line, output)
		}
	}
}

func TestUnknownExtension(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	found, code := RunExtension("does-not-exist", nil)
	if found || code != 0 {
		t.Errorf("RunExtension() = %v, %d, want false, 0", found, code)
	}
}
