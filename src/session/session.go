package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"get-selected-text/src/clipboard"
	"get-selected-text/src/selector"
	"get-selected-text/src/singleinstance"
	"get-selected-text/src/worker"
)

const DefaultDeadline = 5 * time.Second

type ResultTarget interface {
	OnSuccess(res selector.Result) error
	OnFailure(err error) error
}

type Options struct {
	Deadline time.Duration
	Grabber  worker.Grabber
	Target   ResultTarget
}

// Execute grabs the current selection once, within Deadline, and delivers it to Target.
func Execute(ctx context.Context, opts Options) (selector.Result, error) {
	if opts.Grabber == nil {
		return selector.Result{}, errors.New("Grabber is required")
	}
	if opts.Target == nil {
		return selector.Result{}, errors.New("Target is required")
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	res, err := worker.GrabWithContext(jobCtx, opts.Grabber)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return selector.Result{}, err
	}

	if err := opts.Target.OnSuccess(res); err != nil {
		_ = opts.Target.OnFailure(err)
		return selector.Result{}, err
	}
	return res, nil
}

// ClipboardTarget copies the selection to the clipboard. An empty selection
// leaves the clipboard untouched.
type ClipboardTarget struct {
	Write func(text string) error
}

func (t ClipboardTarget) OnSuccess(res selector.Result) error {
	text := res.Joined()
	if text == "" {
		log.Printf("session: nothing selected in %q, clipboard left unchanged", res.AppName)
		return nil
	}
	write := t.Write
	if write == nil {
		write = clipboard.Write
	}
	if err := write(text); err != nil {
		return fmt.Errorf("clipboard error: %w", err)
	}
	return nil
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

// StdoutTarget prints the selection, one path per line for file selections,
// or the whole result as JSON.
type StdoutTarget struct {
	Writer io.Writer
	JSON   bool
}

func (t StdoutTarget) OnSuccess(res selector.Result) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	if t.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}
	_, err := fmt.Fprint(w, res.Joined())
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	return nil
}

// DelegatedTarget answers a run-once client connected to the resident.
type DelegatedTarget struct {
	Conn      singleinstance.Conn
	Mode      singleinstance.Mode
	Clipboard ClipboardTarget
}

func (t DelegatedTarget) OnSuccess(res selector.Result) error {
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	if t.Mode == singleinstance.ModeClipboard {
		if err := t.Clipboard.OnSuccess(res); err != nil {
			return err
		}
	}
	return t.Conn.RespondSuccess(res)
}

func (t DelegatedTarget) OnFailure(err error) error {
	if t.Conn == nil {
		return nil
	}
	if err == nil {
		return t.Conn.RespondError("unknown session error")
	}
	return t.Conn.RespondError(err.Error())
}
