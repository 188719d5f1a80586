package main

import (
	"bytes"
	"strings"
	"testing"
)

func runRootCommandForTest(args ...string) (string, error) {
	root := buildRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	output, err := runRootCommandForTest("--help")
	if err != nil {
		t.Fatalf("execute --help: %v\nOutput:\n%s", err, output)
	}

	for _, want := range []string{"serve", "chat", "conversations", "projects", "status", "version"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q command:\n%s", want, output)
		}
	}
}

func TestConversationsHelp(t *testing.T) {
	output, err := runRootCommandForTest("conversations", "--help")
	if err != nil {
		t.Fatalf("execute conversations --help: %v\nOutput:\n%s", err, output)
	}

	for _, want := range []string{"list", "show", "rename", "delete", "clear"} {
		if !strings.Contains(output, want) {
			t.Errorf("conversations help missing %q subcommand:\n%s", want, output)
		}
	}
}

func TestUnknownCommandFails(t *testing.T) {
	if _, err := runRootCommandForTest("bogus"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
