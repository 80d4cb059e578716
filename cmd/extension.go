package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// extensionEnv returns the global flags as environment variables, with
// absolute file paths so that extensions may change directory.
func extensionEnv() []string {
	abs := func(p string) string {
		if a, err := filepath.Abs(p); err == nil {
			return a
		}
		return p
	}
	return []string{
		EnvLedgerFile + "=" + abs(*ledgerFile),
		EnvSettingsFile + "=" + abs(*settingsFile),
		EnvCurrency + "=" + *defaultCurrency,
		EnvVerbose + "=" + strconv.FormatBool(*Verbose),
	}
}

// RunExtension runs the cst-<subcommand> executable found in the PATH, with
// the global flags in its environment. It reports whether the extension
// exists, and its exit code.
func RunExtension(subcommand string, args []string) (found bool, code int) {
	name := "cst-" + subcommand
	lp, err := exec.LookPath(name)
	if err != nil {
		log.Printf("no extension %q: %v", name, err)
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	cmd.Env = append(os.Environ(), extensionEnv()...)

	err = cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return true, 0
	case errors.As(err, &exitErr):
		return true, exitErr.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "Error: running %s: %v\n", name, err)
	return true, 1
}
