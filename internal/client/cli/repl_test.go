package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
	fail     error
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }

func (f *fakeExec) record(name string) func(context.Context, []string) error {
	return func(_ context.Context, args []string) error {
		f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
		if name == "login" {
			f.loggedIn = true
		}
		return f.fail
	}
}

func (f *fakeExec) commands() []command {
	return []command{
		{name: "login", usage: "login", run: f.record("login")},
		{name: "offer", usage: "offer <file> <price> <deposit>", auth: true, run: f.record("offer")},
		{name: "remove", usage: "remove <offering>", auth: true, run: func(context.Context, []string) error { return errUsage }},
		{name: "hash", usage: "hash <path>", run: f.record("hash")},
	}
}

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	out := captureOutput(t)

	input := bufio.NewReader(strings.NewReader(strings.Join([]string{
		"help",
		"offer a.txt 10 2",
		"login",
		"help",
		"",
		"offer a.txt 10 2",
		"hash ./a.txt",
		"remove",
		"foobar",
		"exit",
		"hash never",
	}, "\n")))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, input)

	want := []string{"login", "offer a.txt 10 2", "hash ./a.txt"}
	if strings.Join(exec.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("calls = %v, want %v", exec.calls, want)
	}
	for _, line := range []string{
		"Available commands: login, hash, exit",
		"Please login first",
		"Available commands: login, offer, remove, hash, exit",
		"Usage: remove <offering>",
		"Unknown command: foobar",
		"Bye!",
		"mkt status> ",
	} {
		if !contains(*out, line) {
			t.Fatalf("output misses %q: %q", line, *out)
		}
	}
}

func TestRunREPL_PrintsErrorsAndStopsOnEOF(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{fail: errors.New("insufficient fee")}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("hash x")))

	if len(exec.calls) != 1 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
	if !contains(*out, "Error: insufficient fee") {
		t.Fatalf("error not printed: %q", *out)
	}
}
