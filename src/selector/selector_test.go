package selector

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"get-selected-text/src/extract"
	"get-selected-text/src/methodcache"
	"get-selected-text/src/window"
)

type fakeInspector struct {
	mu  sync.Mutex
	ctx window.Context
}

func (f *fakeInspector) WindowMeta(context.Context) window.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx
}

func (f *fakeInspector) set(app string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if app == window.EmptyWindow {
		f.ctx = window.Empty()
		return
	}
	f.ctx = window.Context{AppName: app, WindowTitle: app + " window"}
}

type reply struct {
	text string
	err  error
}

// fakeMethods returns queued replies per method and records the call order.
type fakeMethods struct {
	mu        sync.Mutex
	calls     []string
	ax        []reply
	clip      []reply
	files     []reply
	desktoped []bool
}

func (f *fakeMethods) next(name string, q *[]reply) (string, error) {
	f.calls = append(f.calls, name)
	if len(*q) == 0 {
		return "", nil
	}
	r := (*q)[0]
	if len(*q) > 1 {
		*q = (*q)[1:]
	}
	return r.text, r.err
}

func (f *fakeMethods) Accessibility(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next("ax", &f.ax)
}

func (f *fakeMethods) ClipboardText(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next("clip", &f.clip)
}

func (f *fakeMethods) FilePaths(_ context.Context, desktop bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.desktoped = append(f.desktoped, desktop)
	return f.next("files", &f.files)
}

func (f *fakeMethods) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

var (
	errAXNotFound = &extract.Error{Kind: extract.KindNotFound, Method: extract.MethodAccessibility, Msg: "no focused element"}
	errScript     = &extract.Error{Kind: extract.KindScriptExecution, Method: extract.MethodClipboard, Msg: "not authorized"}
	errFiles      = &extract.Error{Kind: extract.KindScriptExecution, Method: extract.MethodFilePaths, Msg: "Finder got an error"}
)

func newTestSelector(app string, m *fakeMethods) (*Selector, *fakeInspector, *methodcache.Cache) {
	insp := &fakeInspector{}
	insp.set(app)
	cache := methodcache.New(methodcache.DefaultSize)
	return New(Options{Inspector: insp, Methods: m, Cache: cache}), insp, cache
}

func TestUnseenAppTriesAccessibilityFirst(t *testing.T) {
	m := &fakeMethods{ax: []reply{{err: errAXNotFound}}, clip: []reply{{text: "copied"}}}
	s, _, _ := newTestSelector("Slack", m)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ax", "clip"}, m.calls)
	assert.Equal(t, Result{AppName: "Slack", Text: []string{"copied"}}, res)
}

func TestNotesScenarioRecordsAccessibility(t *testing.T) {
	m := &fakeMethods{ax: []reply{{text: "hello"}}}
	s, _, cache := newTestSelector("Notes", m)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{IsFilePaths: false, AppName: "Notes", Text: []string{"hello"}}, res)
	assert.Equal(t, []string{"ax"}, m.calls)

	o, ok := cache.Get("Notes")
	require.True(t, ok)
	assert.Equal(t, methodcache.PreferAccessibility, o)
}

func TestPreferAccessibilitySkipsClipboard(t *testing.T) {
	m := &fakeMethods{ax: []reply{{text: "again"}}}
	s, _, cache := newTestSelector("Notes", m)
	cache.Put("Notes", methodcache.PreferAccessibility)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"again"}, res.Text)
	assert.Equal(t, []string{"ax"}, m.calls)
}

func TestPreferAccessibilitySurvivesOneMiss(t *testing.T) {
	m := &fakeMethods{
		ax:   []reply{{text: ""}, {text: "back"}},
		clip: []reply{{text: "from clipboard"}},
	}
	s, _, cache := newTestSelector("Notes", m)
	cache.Put("Notes", methodcache.PreferAccessibility)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"from clipboard"}, res.Text)
	assert.Equal(t, []string{"ax", "clip"}, m.calls)

	o, _ := cache.Get("Notes")
	assert.Equal(t, methodcache.PreferAccessibility, o, "a single miss must not downgrade")

	m.reset()
	res, err = s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"back"}, res.Text)
	assert.Equal(t, []string{"ax"}, m.calls)
}

func TestPreferAccessibilityFallbackErrorPropagates(t *testing.T) {
	m := &fakeMethods{ax: []reply{{err: errAXNotFound}}, clip: []reply{{err: errScript}}}
	s, _, cache := newTestSelector("Notes", m)
	cache.Put("Notes", methodcache.PreferAccessibility)

	_, err := s.GetSelectedText(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrScriptExecution)

	o, ok := cache.Get("Notes")
	require.True(t, ok)
	assert.Equal(t, methodcache.PreferAccessibility, o)
}

func TestPreferClipboardNeverCallsAccessibility(t *testing.T) {
	m := &fakeMethods{ax: []reply{{text: "should not be read"}}, clip: []reply{{text: ""}}}
	s, _, cache := newTestSelector("Terminal", m)
	cache.Put("Terminal", methodcache.PreferClipboardScript)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"clip"}, m.calls)
	assert.Equal(t, []string{""}, res.Text, "nothing selected is a single empty string")
}

func TestUnseenAppLearnsClipboard(t *testing.T) {
	m := &fakeMethods{ax: []reply{{text: ""}}, clip: []reply{{text: "copied"}}}
	s, _, cache := newTestSelector("Slack", m)

	_, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	o, ok := cache.Get("Slack")
	require.True(t, ok)
	assert.Equal(t, methodcache.PreferClipboardScript, o)

	m.reset()
	_, err = s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"clip"}, m.calls)
}

func TestUnseenAppNothingSelectedStaysUnknown(t *testing.T) {
	m := &fakeMethods{ax: []reply{{err: errAXNotFound}}, clip: []reply{{text: ""}}}
	s, _, cache := newTestSelector("Preview", m)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{AppName: "Preview", Text: []string{""}}, res)
	_, ok := cache.Get("Preview")
	assert.False(t, ok)

	m.reset()
	_, _ = s.GetSelectedText(context.Background())
	assert.Equal(t, []string{"ax", "clip"}, m.calls, "unknown app tries accessibility again")
}

func TestUnseenAppClipboardErrorPropagatesWithoutWrite(t *testing.T) {
	m := &fakeMethods{ax: []reply{{err: errAXNotFound}}, clip: []reply{{err: errScript}}}
	s, _, cache := newTestSelector("Preview", m)

	_, err := s.GetSelectedText(context.Background())
	require.Error(t, err)
	assert.Equal(t, extract.KindScriptExecution, extract.KindOf(err))
	assert.Zero(t, cache.Len())
}

func TestFinderScenarioReturnsPaths(t *testing.T) {
	m := &fakeMethods{files: []reply{{text: "\"/a.txt\"\n\"/b.txt\""}}}
	s, _, _ := newTestSelector("Finder", m)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{IsFilePaths: true, AppName: "Finder", Text: []string{"/a.txt", "/b.txt"}}, res)
	assert.Equal(t, []string{"files"}, m.calls)
	assert.Equal(t, []bool{false}, m.desktoped)
}

func TestFinderNothingSelectedSkipsText(t *testing.T) {
	m := &fakeMethods{
		files: []reply{{text: ""}},
		ax:    []reply{{err: errAXNotFound}},
		clip:  []reply{{text: ""}},
	}
	s, _, cache := newTestSelector("Finder", m)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{IsFilePaths: true, AppName: "Finder", Text: []string{""}}, res)
	assert.Equal(t, []string{"files"}, m.calls, "no keystroke for an empty Finder selection")
	assert.Equal(t, 0, cache.Len())
}

func TestFinderNQuotedPaths(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			raw := ""
			for i := 0; i < n; i++ {
				if i > 0 {
					raw += "\n"
				}
				raw += fmt.Sprintf("%q", fmt.Sprintf("/Users/me/file %d.txt", i))
			}
			m := &fakeMethods{files: []reply{{text: raw}}}
			s, _, _ := newTestSelector("Finder", m)

			res, err := s.GetSelectedText(context.Background())
			require.NoError(t, err)
			assert.True(t, res.IsFilePaths)
			assert.Len(t, res.Text, n)
		})
	}
}

func TestDesktopFileFailureFallsThrough(t *testing.T) {
	m := &fakeMethods{files: []reply{{err: errFiles}}, ax: []reply{{text: "desktop text"}}}
	s, _, _ := newTestSelector(window.EmptyWindow, m)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"files", "ax"}, m.calls)
	assert.Equal(t, []bool{true}, m.desktoped, "sentinel context uses the desktop variant")
	assert.False(t, res.IsFilePaths)
	assert.Equal(t, []string{"desktop text"}, res.Text)
}

func TestEmptyWindowScenarioFallsBackToClipboard(t *testing.T) {
	m := &fakeMethods{
		files: []reply{{text: ""}},
		ax:    []reply{{err: errAXNotFound}},
		clip:  []reply{{text: "fallback text"}},
	}
	s, _, _ := newTestSelector(window.EmptyWindow, m)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{IsFilePaths: false, AppName: "Empty Window", Text: []string{"fallback text"}}, res)
	assert.Equal(t, []string{"files", "ax", "clip"}, m.calls)
}

func TestFileErrorIsNeverSurfaced(t *testing.T) {
	m := &fakeMethods{files: []reply{{err: errFiles}}, ax: []reply{{text: ""}}, clip: []reply{{text: ""}}}
	s, _, _ := newTestSelector("Finder", m)

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{""}, res.Text)
}

func TestCustomFileManager(t *testing.T) {
	m := &fakeMethods{files: []reply{{text: `"/x"`}}}
	insp := &fakeInspector{}
	insp.set("Path Finder")
	s := New(Options{Inspector: insp, Methods: m, FileManager: "Path Finder"})

	res, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.True(t, res.IsFilePaths)

	insp.set("Finder")
	m.reset()
	m.ax = []reply{{text: "plain"}}
	res, err = s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.False(t, res.IsFilePaths, "Finder is not the file manager here")
	assert.Equal(t, []string{"ax"}, m.calls)
}

func TestInFileContext(t *testing.T) {
	m := &fakeMethods{}
	insp := &fakeInspector{}
	s := New(Options{Inspector: insp, Methods: m, FileManager: "Path Finder"})

	for app, want := range map[string]bool{
		"Path Finder":      true,
		window.EmptyWindow: true,
		"Finder":           false,
		"Notes":            false,
	} {
		insp.set(app)
		assert.Equal(t, want, s.InFileContext(context.Background()), app)
	}
	assert.Empty(t, m.calls, "InFileContext must not run any extraction")

	insp.set("Notes")
	assert.False(t, New(Options{Inspector: insp, Methods: m}).InFileContext(context.Background()))
	insp.set("Finder")
	assert.True(t, New(Options{Inspector: insp, Methods: m}).InFileContext(context.Background()), "Finder is the default file manager")
}

func TestCacheBoundAcrossApps(t *testing.T) {
	m := &fakeMethods{ax: []reply{{text: "x"}}}
	s, insp, cache := newTestSelector("app-0", m)

	for i := 0; i <= methodcache.DefaultSize; i++ {
		insp.set(fmt.Sprintf("app-%d", i))
		_, err := s.GetSelectedText(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, methodcache.DefaultSize, cache.Len())
	_, ok := cache.Get("app-0")
	assert.False(t, ok, "101st app evicts the least recently used")
}

func TestForgetAndLearned(t *testing.T) {
	m := &fakeMethods{ax: []reply{{text: "x"}}}
	s, _, _ := newTestSelector("Notes", m)

	_, err := s.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []methodcache.Entry{{AppName: "Notes", Outcome: methodcache.PreferAccessibility}}, s.Learned())

	s.Forget()
	assert.Empty(t, s.Learned())
}

func TestConcurrentCallsAreSerialized(t *testing.T) {
	m := &fakeMethods{ax: []reply{{text: "x"}}}
	s, _, cache := newTestSelector("Notes", m)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.GetSelectedText(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Len())
	assert.Len(t, m.calls, 16, "every call after the first hits accessibility only")
}

func TestResultJoined(t *testing.T) {
	assert.Equal(t, "/a\n/b", Result{IsFilePaths: true, Text: []string{"/a", "/b"}}.Joined())
	assert.Equal(t, "", Result{Text: []string{""}}.Joined())
}
