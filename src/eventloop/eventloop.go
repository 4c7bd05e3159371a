package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"get-selected-text/src/config"
	"get-selected-text/src/hotkey"
	"get-selected-text/src/methodcache"
	"get-selected-text/src/selector"
	"get-selected-text/src/session"
	"get-selected-text/src/singleinstance"
	"get-selected-text/src/worker"
)

// ErrBusy is reported to a delegated client when a grab is already running.
var ErrBusy = errors.New("Busy, please retry")

// Grabber is the resident's selector: it reads selections, reports what it
// learned and can drop it.
type Grabber interface {
	worker.Grabber
	Forget()
	Learned() []methodcache.Entry
}

// Loop is the single-threaded coordinator for delegated run-once requests,
// hotkey presses and tray actions.
type Loop struct {
	grabber   Grabber
	pool      *worker.Pool
	busy      bool
	results   chan result
	triggers  chan struct{}
	forgets   chan struct{}
	deadline  time.Duration
	ports     singleinstance.Ports
	clipboard session.ClipboardTarget
	onBusy    func(busy bool)
	notify    func(message string)
}

type result struct {
	res    selector.Result
	err    error
	target session.ResultTarget
	closer func()
	cancel context.CancelFunc
}

// New creates a loop around g. If cfg is nil or cfg.DeadlineSec <= 0 a 5s deadline is used.
func New(cfg *config.Config, g Grabber) *Loop {
	deadlineSec := config.DefaultDeadlineSec
	if cfg != nil && cfg.DeadlineSec > 0 {
		deadlineSec = cfg.DeadlineSec
	}
	return &Loop{
		grabber:  g,
		pool:     worker.New(g, 1),
		results:  make(chan result, 1),
		triggers: make(chan struct{}, 4),
		forgets:  make(chan struct{}, 1),
		deadline: time.Duration(deadlineSec) * time.Second,
		ports:    singleinstance.PortsFrom(cfg),
	}
}

// OnBusyChange registers fn to be called from the loop goroutine whenever a grab starts or ends.
func (l *Loop) OnBusyChange(fn func(busy bool)) { l.onBusy = fn }

// SetClipboard overrides how hotkey and tray grabs reach the clipboard.
func (l *Loop) SetClipboard(t session.ClipboardTarget) { l.clipboard = t }

// SetNotifier registers fn to report hotkey outcomes the user would otherwise not see.
func (l *Loop) SetNotifier(fn func(message string)) { l.notify = fn }

func (l *Loop) show(message string) {
	if l.notify != nil {
		l.notify(message)
	}
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if l.onBusy != nil {
		l.onBusy(b)
	}
}

// Trigger asks the loop to grab the selection into the clipboard. Safe from any goroutine.
func (l *Loop) Trigger() {
	select {
	case l.triggers <- struct{}{}:
	default:
	}
}

// Forget asks the loop to clear the learned method cache. Safe from any goroutine.
func (l *Loop) Forget() {
	select {
	case l.forgets <- struct{}{}:
	default:
	}
}

// StartHotkey registers a global hotkey that triggers a clipboard grab.
func (l *Loop) StartHotkey(combo string) error {
	if combo == "" {
		return nil
	}
	return hotkey.Listen(combo, l.Trigger)
}

// Run starts the singleinstance server and serves until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	srv := singleinstance.NewServer(l.ports)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Close()
	if p := srv.Port(); p > 0 {
		log.Printf("Resident listening on 127.0.0.1:%d", p)
	}
	return l.Serve(ctx, srv)
}

// Serve processes requests from an already started server. It blocks until ctx is cancelled.
func (l *Loop) Serve(ctx context.Context, srv singleinstance.Server) error {
	defer l.pool.Close()

	// Accept loop in background to avoid blocking result handling
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		defer close(reqCh)
		for {
			conn, err := srv.Next(ctx)
			if err != nil {
				return
			}
			select {
			case reqCh <- conn:
			case <-ctx.Done():
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			l.drain()
			return ctx.Err()
		case <-l.triggers:
			l.handleTrigger(ctx)
		case <-l.forgets:
			// Forget takes the selector lock; let the running grab deliver first.
			l.drain()
			l.grabber.Forget()
			log.Printf("eventloop: learned methods cleared")
			l.logLearned()
		case conn, ok := <-reqCh:
			if !ok {
				l.drain()
				return nil
			}
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

// drain waits for a running grab so its connection is answered and closed.
func (l *Loop) drain() {
	if l.busy {
		l.handleResult(<-l.results)
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	mode := conn.Request().Mode
	target := session.DelegatedTarget{Conn: conn, Mode: mode, Clipboard: l.clipboard}
	closer := func() { _ = conn.Close() }
	if !l.start(ctx, target, closer) {
		log.Printf("eventloop: busy, rejecting %s request", mode)
		_ = target.OnFailure(ErrBusy)
		closer()
	}
}

func (l *Loop) handleTrigger(ctx context.Context) {
	if !l.start(ctx, hotkeyTarget{clip: l.clipboard, show: l.show}, nil) {
		log.Printf("eventloop: busy, skipping hotkey grab")
		l.show(ErrBusy.Error())
	}
}

type hotkeyTarget struct {
	clip session.ClipboardTarget
	show func(string)
}

func (t hotkeyTarget) OnSuccess(res selector.Result) error {
	return t.clip.OnSuccess(res)
}

func (t hotkeyTarget) OnFailure(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.show("Reading the selection timed out")
		return nil
	}
	t.show(fmt.Sprintf("Could not read the selection: %v", err))
	return nil
}

// start submits a grab for target. It returns false when a grab is already running.
func (l *Loop) start(ctx context.Context, target session.ResultTarget, closer func()) bool {
	if l.busy {
		return false
	}
	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	l.setBusy(true)
	submitted := l.pool.Submit(jobCtx, func(res selector.Result, err error) {
		l.results <- result{res: res, err: err, target: target, closer: closer, cancel: cancel}
	})
	if !submitted {
		cancel()
		l.setBusy(false)
		return false
	}
	return true
}

func (l *Loop) handleResult(r result) {
	defer func() {
		l.setBusy(false)
		if r.cancel != nil {
			r.cancel()
		}
		if r.closer != nil {
			r.closer()
		}
	}()

	if r.err != nil {
		log.Printf("eventloop: grab failed: %v", r.err)
		_ = r.target.OnFailure(r.err)
		return
	}
	if err := r.target.OnSuccess(r.res); err != nil {
		log.Printf("eventloop: delivery failed: %v", err)
		_ = r.target.OnFailure(err)
		return
	}
	log.Printf("eventloop: delivered selection from %q (files=%v)", r.res.AppName, r.res.IsFilePaths)
	l.logLearned()
}

func (l *Loop) logLearned() {
	log.Printf("eventloop: learned methods: %s", methodcache.Describe(l.grabber.Learned()))
}

// Deadline returns the configured per-grab deadline.
func (l *Loop) Deadline() time.Duration { return l.deadline }
