package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubExec records which commands the REPL dispatched.
type stubExec struct {
	unlocked bool
	calls    []string
}

func (s *stubExec) record(name string) error { s.calls = append(s.calls, name); return nil }

func (s *stubExec) isUnlocked() bool { return s.unlocked }
func (s *stubExec) Setup(context.Context) error {
	return s.record("setup")
}
func (s *stubExec) Unlock(context.Context) error              { return s.record("unlock") }
func (s *stubExec) Lock(context.Context) error                { return s.record("lock") }
func (s *stubExec) AddFile(context.Context, []string) error   { return s.record("addfile") }
func (s *stubExec) ListFiles(context.Context, []string) error { return s.record("files") }
func (s *stubExec) ViewFile(context.Context, []string) error  { return s.record("view") }
func (s *stubExec) DeleteFile(context.Context, []string) error {
	return s.record("rmfile")
}
func (s *stubExec) Invite(context.Context) error           { return s.record("invite") }
func (s *stubExec) Redeem(context.Context) error           { return s.record("redeem") }
func (s *stubExec) Contacts(context.Context) error         { return s.record("contacts") }
func (s *stubExec) Block(context.Context, []string) error  { return s.record("block") }
func (s *stubExec) Send(context.Context, []string) error   { return s.record("send") }
func (s *stubExec) History(context.Context, []string) error {
	return s.record("history")
}
func (s *stubExec) Intrusions(context.Context) error { return s.record("intrusions") }
func (s *stubExec) Erase(context.Context) error      { return s.record("erase") }

func runWithInput(t *testing.T, input string, exec *stubExec) []string {
	t.Helper()

	var out []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		out = append(out, fmt.Sprintln(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })

	scanner := bufio.NewScanner(strings.NewReader(input))
	runREPL(context.Background(), exec, func() string { return "locked" }, scanner)
	return out
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	exec := &stubExec{}
	runWithInput(t, "unlock\naddfile notes.txt\ninvite\nsend abc\nexit\n", exec)

	assert.Equal(t, []string{"unlock", "addfile", "invite", "send"}, exec.calls)
}

func TestRunREPL_UnknownCommand(t *testing.T) {
	exec := &stubExec{}
	out := runWithInput(t, "frobnicate\nexit\n", exec)

	assert.Empty(t, exec.calls)
	joined := strings.Join(out, "")
	assert.Contains(t, joined, "Unknown command: frobnicate")
}

func TestRunREPL_HelpDependsOnState(t *testing.T) {
	locked := &stubExec{unlocked: false}
	out := strings.Join(runWithInput(t, "help\nexit\n", locked), "")
	assert.Contains(t, out, "setup, unlock")

	unlocked := &stubExec{unlocked: true}
	out = strings.Join(runWithInput(t, "help\nexit\n", unlocked), "")
	assert.Contains(t, out, "addfile")
	assert.Contains(t, out, "history")
}

func TestRunREPL_ExitsOnEOF(t *testing.T) {
	exec := &stubExec{}
	runWithInput(t, "contacts\n", exec)

	assert.Equal(t, []string{"contacts"}, exec.calls)
}

func TestRunREPL_SkipsBlankLines(t *testing.T) {
	exec := &stubExec{}
	runWithInput(t, "\n\nlock\nexit\n", exec)

	assert.Equal(t, []string{"lock"}, exec.calls)
}
