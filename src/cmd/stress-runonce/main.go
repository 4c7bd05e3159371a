package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"get-selected-text/src/config"
	"get-selected-text/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	deadline time.Duration
}

func (o stressOptions) requestMode() (singleinstance.Mode, error) {
	switch o.mode {
	case "std":
		return singleinstance.ModeStdout, nil
	case "clip":
		return singleinstance.ModeClipboard, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want std or clip)", o.mode)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-runonce",
		Short:         "Fire concurrent selection requests at the resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts)
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "std", "std|clip: return the selection only, or also copy it to the clipboard")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func runWithOptions(opts stressOptions) error {
	mode, err := opts.requestMode()
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	ports := singleinstance.PortsFrom(cfg)
	port, ok := singleinstance.DetectResidentPort(context.Background(), ports)
	if !ok {
		return fmt.Errorf("no resident is listening on ports %d-%d", ports.Start, ports.End)
	}
	fmt.Fprintf(os.Stdout, "resident on port %d\n", port)

	var wg sync.WaitGroup
	var okCount int32
	var busyCount int32
	var errCount int32

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			client := singleinstance.NewClient(ports)
			delegated, _, err := client.TryRunOnce(ctx, mode)
			if err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "busy") {
					atomic.AddInt32(&busyCount, 1)
					return
				}
				atomic.AddInt32(&errCount, 1)
				return
			}
			if delegated {
				atomic.AddInt32(&okCount, 1)
				return
			}
			atomic.AddInt32(&errCount, 1)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	fmt.Fprintf(os.Stdout, "launched=%d ok=%d busy=%d err=%d elapsed=%s\n", opts.n, okCount, busyCount, errCount, elapsed)
	return nil
}
