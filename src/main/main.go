package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"get-selected-text/src/config"
	"get-selected-text/src/eventloop"
	"get-selected-text/src/hotkey"
	"get-selected-text/src/logutil"
	"get-selected-text/src/runtimeinit"
	"get-selected-text/src/session"
	"get-selected-text/src/singleinstance"
	"get-selected-text/src/tray"
)

type mainOptions struct {
	runOnce    bool
	runOnceStd bool
	envFile    string
	hotkey     string
}

func (o mainOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{EnvFileOverride: o.envFile, HotkeyOverride: o.hotkey}
}

func init() {
	// the menu bar item must live on the main thread
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := normalizeLegacyArgs(os.Args)
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get-selected-text-resident",
		Short:         "Menu bar resident that copies the current selection on a hotkey",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.runOnce || opts.runOnceStd {
				return runOnceWithDelegation(*opts)
			}
			return runResident(*opts)
		},
	}

	cmd.Flags().BoolVar(&opts.runOnce, "run-once", false, "Copy the selection to the clipboard once and exit")
	cmd.Flags().BoolVar(&opts.runOnceStd, "run-once-std", false, "Print the selection to stdout once and exit")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to a .env file (highest precedence)")
	cmd.Flags().StringVar(&opts.hotkey, "hotkey", "", "Hotkey combination, e.g. Cmd+Shift+C")

	return cmd
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"run-once", "run-once-std", "env-file", "hotkey"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

func runOnceWithDelegation(opts mainOptions) error {
	// Load .env early so the configured port range applies to the delegation scan
	cfg, err := config.LoadWithOptions(opts.loadOptions())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	deadline := time.Duration(cfg.DeadlineSec) * time.Second
	return handleRunOnceWithDelegation(opts, deadline, singleinstance.NewClient(singleinstance.PortsFrom(cfg)), func() error {
		return runStandaloneOnce(opts)
	})
}

// handleRunOnceWithDelegation asks a resident to do the grab and runs fallback when none answers.
func handleRunOnceWithDelegation(opts mainOptions, deadline time.Duration, client singleinstance.Client, fallback func() error) error {
	mode := singleinstance.ModeClipboard
	if opts.runOnceStd {
		mode = singleinstance.ModeStdout
	}
	ctx, cancel := context.WithTimeout(context.Background(), deadline+time.Second)
	defer cancel()

	delegated, res, err := client.TryRunOnce(ctx, mode)
	if err != nil {
		log.Printf("Delegation error: %v; falling back to standalone", err)
		return fallback()
	}
	if !delegated {
		log.Printf("No resident detected (not delegated), running standalone")
		return fallback()
	}
	log.Printf("Delegated to resident")
	if mode == singleinstance.ModeStdout {
		return session.StdoutTarget{}.OnSuccess(res)
	}
	return nil
}

func runStandaloneOnce(opts mainOptions) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:      opts.loadOptions(),
		SetupLogging:     logutil.Setup,
		RequireClipboard: opts.runOnce && !opts.runOnceStd,
	})
	if err != nil {
		return err
	}

	var target session.ResultTarget = session.ClipboardTarget{}
	if opts.runOnceStd {
		target = session.StdoutTarget{}
	}
	log.Printf("Running once with deadline %ds", rt.Config.DeadlineSec)
	res, err := session.Execute(context.Background(), session.Options{
		Deadline: time.Duration(rt.Config.DeadlineSec) * time.Second,
		Grabber:  rt.Selector,
		Target:   target,
	})
	if err != nil {
		return fmt.Errorf("failed to read selection: %w", err)
	}
	log.Printf("Run-once completed: app=%q files=%v text=\"%s\"", res.AppName, res.IsFilePaths, logutil.Sanitize(res.Joined()))
	return nil
}

// preflight fails fast when another resident already owns the start port.
func preflight(ports singleinstance.Ports) error {
	startPort := ports.Start
	addr := ports.StartAddr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Pre-flight: port %d busy, resident already exists", startPort)
		return fmt.Errorf("one is already running on port %d", startPort)
	}
	// We claimed the port; release it so the event loop can re-bind.
	_ = listener.Close()
	log.Printf("Pre-flight: port %d free", startPort)
	return nil
}

func runResident(opts mainOptions) error {
	// Load .env early so the port range is known before pre-flight
	early, err := config.LoadWithOptions(opts.loadOptions())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := preflight(singleinstance.PortsFrom(early)); err != nil {
		return err
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:      opts.loadOptions(),
		SetupLogging:     logutil.Setup,
		RequireClipboard: true,
	})
	if err != nil {
		return err
	}
	cfg := rt.Config

	log.Printf("get-selected-text resident initialized")
	log.Printf("Hotkey: %s", cfg.Hotkey)
	log.Printf("Deadline: %ds", cfg.DeadlineSec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := eventloop.New(cfg, rt.Selector)
	trayIcon := tray.New(tray.Config{
		Hotkey:   cfg.Hotkey,
		OnGrab:   loop.Trigger,
		OnForget: loop.Forget,
		OnExit:   cancel,
	})
	loop.OnBusyChange(trayIcon.SetBusy)
	loop.SetNotifier(rt.Notifier.Show)

	if err := loop.StartHotkey(cfg.Hotkey); err != nil {
		return fmt.Errorf("failed to register hotkey %q: %w", cfg.Hotkey, err)
	}
	defer hotkey.Stop()

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	loopErr := make(chan error, 1)
	go func() {
		err := loop.Run(ctx)
		trayIcon.Quit()
		loopErr <- err
	}()

	trayIcon.Run()
	cancel()

	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("event loop stopped: %w", err)
	}
	return nil
}
