// Command ghfinder crawls contributors of configured GitHub repositories,
// profiles and scores them, and writes ranked reports per run
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ghfinder/internal/core/targets"
	"ghfinder/internal/core/version"
)

// Exit codes
const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

// exitErr carries a process exit code through cobra
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitErr) Unwrap() error { return e.err }

// exitWith wraps err with a specific exit code. A nil err exits silently
func exitWith(code int, err error) error { return &exitErr{code: code, err: err} }

func main() {
	// .env is optional
	_ = godotenv.Load()
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return exitCode(root.Execute(), stderr)
}

// exitCode maps a command error to a process exit code and reports it
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	var ee *exitErr
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitError
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	f := &crawlFlags{}
	root := &cobra.Command{
		Use:   "ghfinder",
		Short: "Find and rank developers from GitHub repository contributors",
		Long: `ghfinder walks the contributors, pull request authors and fork owners of
the repositories listed in a targets file, profiles every user it finds,
scores them and writes ranked reports into runs/<timestamp>/.

A missing targets file is created with sample content.`,
		Version:       version.Info().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd.Context(), f, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	fl := root.Flags()
	fl.StringVarP(&f.config, "config", "c", targets.DefaultPath, "targets file (toml, yaml or json)")
	fl.IntVarP(&f.limit, "limit", "l", 0, "maximum repositories to analyze, 0 for all")
	fl.BoolVar(&f.analyzePRs, "analyze-prs", false, "credit pull request mergers")
	fl.StringVarP(&f.resume, "resume", "r", "", "resume from a checkpoint: latest, a run name or a checkpoint file")
	fl.BoolVar(&f.force, "force-reanalyze", false, "analyze repositories already present in the checkpoint")
	fl.IntVar(&f.concurrency, "concurrency", 0, "concurrent GitHub requests, 0 for the default")
	fl.StringVar(&f.llmOutput, "llm-output", "", "write the ranked markdown analysis: console, auto or a file path")
	fl.BoolVar(&f.checkTokens, "check-tokens", false, "check token quota and exit")
	fl.BoolVar(&f.listCheckpoints, "list-checkpoints", false, "list checkpoints per run and exit")
	fl.StringVar(&f.httpAddr, "http-addr", "", "serve the dashboard on this address while crawling")

	pf := root.PersistentFlags()
	pf.StringVarP(&f.token, "token", "t", "", "GitHub token, added to GITHUB_TOKEN(S) from the environment")
	pf.StringVar(&f.tokensFile, "tokens-file", "", "file with one GitHub token per line, # starts a comment")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newServeCommand(f, stdout))
	return root
}
