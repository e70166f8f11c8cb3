package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gtop/internal/app"
	"gtop/internal/config"
)

// version is stamped by the release build via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) == "completion" {
		os.Exit(runCompletion(os.Args[2:]))
	}
	if len(os.Args) > 1 && isVersionArg(os.Args[1]) {
		fmt.Println(versionLine())
		os.Exit(0)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			fmt.Fprint(os.Stdout, config.HelpText())
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "argument error: %v\n", err)
		fmt.Fprintln(os.Stderr, "run 'gtop --help' for usage details")
		os.Exit(2)
	}

	if err := app.Run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "gtop error: %v\n", err)
		os.Exit(1)
	}
}

func runCompletion(args []string) int {
	if len(args) >= 1 && isHelpArg(args[0]) {
		fmt.Fprint(os.Stdout, completionHelpText())
		return 0
	}
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "argument error: completion accepts zero or one shell argument (bash or zsh)")
		return 2
	}
	shell := "bash"
	if len(args) == 1 {
		shell = strings.ToLower(strings.TrimSpace(args[0]))
	}
	script, err := completionScript(shell)
	if err != nil {
		fmt.Fprintf(os.Stderr, "argument error: %v\n", err)
		return 2
	}
	fmt.Fprint(os.Stdout, script)
	return 0
}

func isHelpArg(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

func isVersionArg(arg string) bool {
	arg = strings.TrimSpace(arg)
	return arg == "--version" || arg == "-version" || arg == "version"
}

func versionLine() string {
	return "gtop " + version
}

func completionHelpText() string {
	return `gtop completion

Print shell completion script output for gtop.

Usage:
  gtop completion [bash|zsh]

Examples:
  gtop completion bash > ~/.local/share/bash-completion/completions/gtop
  mkdir -p ~/.zsh/completions
  gtop completion zsh > ~/.zsh/completions/_gtop
`
}

func completionScript(shell string) (string, error) {
	switch shell {
	case "bash":
		return `# bash completion for gtop
_gtop_completion() {
  local cur prev words cword
  _init_completion || return
  local commands="doctor dry-run completion monitor version help"
  if [[ ${cword} -eq 1 ]]; then
    COMPREPLY=( $(compgen -W "${commands}" -- "${cur}") )
    return
  fi
  case "${words[1]}" in
    completion)
      COMPREPLY=( $(compgen -W "bash zsh" -- "${cur}") )
      ;;
    doctor|dry-run|monitor)
      COMPREPLY=( $(compgen -W "--config --refresh --connect-timeout --command-timeout --ssh-config --identity-file --port --gpu-only --jobs --users --no-color --compact --once --duration" -- "${cur}") )
      ;;
    *)
      COMPREPLY=( $(compgen -W "${commands}" -- "${cur}") )
      ;;
  esac
}
complete -F _gtop_completion gtop
`, nil
	case "zsh":
		return `#compdef gtop
_gtop() {
  local -a commands
  commands=(
    'monitor:start live monitoring (default)'
    'doctor:run non-mutating preflight checks'
    'dry-run:print planned execution order'
    'completion:print shell completion script'
    'version:print the gtop version'
    'help:show help text'
  )
  if (( CURRENT == 2 )); then
    _describe 'command' commands
    return
  fi
  case "${words[2]}" in
    completion)
      _values 'shell' bash zsh
      ;;
    doctor|dry-run|monitor)
      _values 'flag' --config --refresh --connect-timeout --command-timeout --ssh-config --identity-file --port --gpu-only --jobs --users --no-color --compact --once --duration
      ;;
    *)
      _message 'optional ssh target'
      ;;
  esac
}
_gtop "$@"
`, nil
	default:
		return "", fmt.Errorf("unsupported shell %q (expected bash or zsh)", shell)
	}
}
