package main

import (
	"strings"
	"testing"
)

func TestCompletionHelpTextIncludesUsage(t *testing.T) {
	help := completionHelpText()
	for _, want := range []string{
		"gtop completion",
		"Usage:",
		"gtop completion [bash|zsh]",
	} {
		if !strings.Contains(help, want) {
			t.Fatalf("completion help missing %q", want)
		}
	}
}

func TestCompletionScriptSupportsBashAndZsh(t *testing.T) {
	bashScript, err := completionScript("bash")
	if err != nil {
		t.Fatalf("unexpected bash error: %v", err)
	}
	if !strings.Contains(bashScript, "complete -F _gtop_completion gtop") {
		t.Fatalf("expected bash completion directive, got:\n%s", bashScript)
	}
	for _, flag := range []string{"--gpu-only", "--jobs", "--users"} {
		if !strings.Contains(bashScript, flag) {
			t.Fatalf("expected bash completion to offer %s, got:\n%s", flag, bashScript)
		}
	}

	zshScript, err := completionScript("zsh")
	if err != nil {
		t.Fatalf("unexpected zsh error: %v", err)
	}
	if !strings.Contains(zshScript, "#compdef gtop") {
		t.Fatalf("expected zsh completion header, got:\n%s", zshScript)
	}
}

func TestCompletionScriptRejectsUnsupportedShell(t *testing.T) {
	_, err := completionScript("fish")
	if err == nil {
		t.Fatalf("expected unsupported shell error")
	}
	if !strings.Contains(err.Error(), "unsupported shell") {
		t.Fatalf("expected unsupported shell error, got %v", err)
	}
}

func TestVersionArgForms(t *testing.T) {
	for _, arg := range []string{"--version", "-version", "version"} {
		if !isVersionArg(arg) {
			t.Fatalf("expected %q to request the version", arg)
		}
	}
	if isVersionArg("--verbose") {
		t.Fatalf("unexpected version match for --verbose")
	}
	if got := versionLine(); !strings.HasPrefix(got, "gtop ") {
		t.Fatalf("unexpected version line: %q", got)
	}
}
