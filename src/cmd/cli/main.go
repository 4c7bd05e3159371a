package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"get-selected-text/src/config"
	"get-selected-text/src/methodcache"
	"get-selected-text/src/runtimeinit"
	"get-selected-text/src/selector"
	"get-selected-text/src/session"
	"get-selected-text/src/singleinstance"
)

type cliOptions struct {
	jsonOutput bool
	clipboard  bool
	standalone bool
	verbose    bool
	envFile    string
}

func (o cliOptions) mode() singleinstance.Mode {
	if o.clipboard {
		return singleinstance.ModeClipboard
	}
	return singleinstance.ModeStdout
}

// delegator is the part of singleinstance.Client the CLI needs.
type delegator interface {
	TryRunOnce(ctx context.Context, mode singleinstance.Mode) (bool, selector.Result, error)
}

// standaloneFunc grabs the selection in-process and delivers it to target.
type standaloneFunc func(ctx context.Context, opts cliOptions, target session.ResultTarget) error

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"get-selected-text"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get-selected-text",
		Short:         "Print the text or files selected in the foreground macOS application",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the result as JSON")
	cmd.Flags().BoolVar(&opts.clipboard, "clipboard", false, "Also copy the selection to the clipboard")
	cmd.Flags().BoolVar(&opts.standalone, "standalone", false, "Do not delegate to a running resident")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to a .env file (highest precedence)")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, out io.Writer) error {
	// Configure logging BEFORE any other operations.
	if !opts.verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stderr)
		fmt.Fprintf(os.Stderr, "[verbose] Starting get-selected-text\n")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Load .env early so the configured port range applies to the delegation scan.
	cfg, err := config.LoadWithOptions(config.LoadOptions{EnvFileOverride: opts.envFile})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	deadline := time.Duration(cfg.DeadlineSec) * time.Second

	target := outputTarget(opts, out)
	if opts.standalone {
		return standalone(ctx, opts, target)
	}
	return deliverWithDelegation(ctx, opts, deadline, singleinstance.NewClient(singleinstance.PortsFrom(cfg)), target, standalone)
}

// outputTarget prints the result; clipboard delivery is layered on top for standalone runs.
func outputTarget(opts cliOptions, out io.Writer) session.StdoutTarget {
	return session.StdoutTarget{Writer: out, JSON: opts.jsonOutput}
}

// deliverWithDelegation asks a resident for the selection and falls back to an in-process grab.
func deliverWithDelegation(ctx context.Context, opts cliOptions, deadline time.Duration, client delegator, target session.ResultTarget, fallback standaloneFunc) error {
	// leave the resident its own deadline plus connection slack
	reqCtx, cancel := context.WithTimeout(ctx, deadline+time.Second)
	defer cancel()

	delegated, res, err := client.TryRunOnce(reqCtx, opts.mode())
	if err != nil {
		log.Printf("Delegation error: %v; falling back to standalone", err)
		return fallback(ctx, opts, target)
	}
	if !delegated {
		log.Printf("No resident detected, running standalone")
		return fallback(ctx, opts, target)
	}
	log.Printf("Delegated to resident")
	return target.OnSuccess(res)
}

func standalone(ctx context.Context, opts cliOptions, out session.ResultTarget) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:      config.LoadOptions{EnvFileOverride: opts.envFile},
		RequireClipboard: opts.clipboard,
	})
	if err != nil {
		return err
	}

	var target session.ResultTarget = out
	if opts.clipboard {
		target = clipboardAndOutput{out: out}
	}

	_, err = session.Execute(ctx, session.Options{
		Deadline: time.Duration(rt.Config.DeadlineSec) * time.Second,
		Grabber:  rt.Selector,
		Target:   target,
	})
	if err != nil {
		return fmt.Errorf("failed to read selection: %w", err)
	}
	if opts.verbose {
		reportLearned(os.Stderr, rt.Selector)
	}
	return nil
}

type learner interface {
	Learned() []methodcache.Entry
}

// reportLearned prints which extraction method each application settled on.
func reportLearned(w io.Writer, l learner) {
	fmt.Fprintf(w, "[verbose] Learned methods: %s\n", methodcache.Describe(l.Learned()))
}

type clipboardAndOutput struct {
	clip session.ClipboardTarget
	out  session.ResultTarget
}

func (t clipboardAndOutput) OnSuccess(res selector.Result) error {
	if err := t.clip.OnSuccess(res); err != nil {
		return err
	}
	return t.out.OnSuccess(res)
}

func (t clipboardAndOutput) OnFailure(err error) error {
	return t.out.OnFailure(err)
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"json", "clipboard", "standalone", "verbose", "env-file"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}
