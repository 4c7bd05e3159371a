// Package selector decides, per foreground application, how to read the user's
// current selection and remembers which method worked.
package selector

import (
	"context"
	"log"
	"strings"
	"sync"

	"get-selected-text/src/extract"
	"get-selected-text/src/logutil"
	"get-selected-text/src/methodcache"
	"get-selected-text/src/window"
)

// DefaultFileManager is the application whose selection is read as file paths.
const DefaultFileManager = "Finder"

// Result is what the user had selected. For file selections Text holds one path
// per element; otherwise it holds exactly one string, "" meaning nothing selected.
type Result struct {
	IsFilePaths bool     `json:"is_file_paths"`
	AppName     string   `json:"app_name"`
	Text        []string `json:"text"`
}

// Joined returns the selection as a single string, one path per line for file selections.
func (r Result) Joined() string { return strings.Join(r.Text, "\n") }

// Options configures a Selector. Inspector, Methods and Cache are required.
type Options struct {
	Inspector   window.Inspector
	Methods     extract.Methods
	Cache       *methodcache.Cache
	FileManager string
}

// Selector serializes selection reads and owns the method cache it is given.
type Selector struct {
	mu          sync.Mutex
	inspector   window.Inspector
	methods     extract.Methods
	cache       *methodcache.Cache
	fileManager string
}

// New builds a Selector. An empty FileManager means Finder and a nil Cache gets
// one of methodcache.DefaultSize.
func New(opts Options) *Selector {
	fm := strings.TrimSpace(opts.FileManager)
	if fm == "" {
		fm = DefaultFileManager
	}
	cache := opts.Cache
	if cache == nil {
		cache = methodcache.New(methodcache.DefaultSize)
	}
	return &Selector{
		inspector:   opts.Inspector,
		methods:     opts.Methods,
		cache:       cache,
		fileManager: fm,
	}
}

// GetSelectedText reads the selection of the foreground application.
//
// File manager and desktop contexts try file paths first. An error falls
// through to text extraction, as does an empty desktop selection; an empty
// file manager selection is returned as is. Only the error of the last text
// method tried is returned.
func (s *Selector) GetSelectedText(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.inspector.WindowMeta(ctx)
	app := meta.AppName

	if s.isFileContext(meta) {
		raw, err := s.methods.FilePaths(ctx, meta.IsEmpty())
		switch {
		case err != nil:
			log.Printf("selector: file paths for %q failed, trying text: %v", app, err)
		case raw == "" && meta.IsEmpty():
			log.Printf("selector: no files selected on the desktop, trying text")
		case raw == "":
			log.Printf("selector: no files selected in %q", app)
			return Result{IsFilePaths: true, AppName: app, Text: []string{""}}, nil
		default:
			paths := extract.ParsePaths(raw)
			log.Printf("selector: %d file path(s) from %q", len(paths), app)
			return Result{IsFilePaths: true, AppName: app, Text: paths}, nil
		}
	}

	text, err := s.selectText(ctx, app)
	if err != nil {
		return Result{}, err
	}
	log.Printf("selector: %d chars from %q: \"%s\"", len(text), app, logutil.Sanitize(text))
	return Result{AppName: app, Text: []string{text}}, nil
}

// InFileContext reports whether the foreground window is the file manager or
// the desktop, where a grab reads file paths first.
func (s *Selector) InFileContext(ctx context.Context) bool {
	return s.isFileContext(s.inspector.WindowMeta(ctx))
}

func (s *Selector) isFileContext(meta window.Context) bool {
	return meta.AppName == s.fileManager || meta.IsEmpty()
}

func (s *Selector) selectText(ctx context.Context, app string) (string, error) {
	if outcome, ok := s.cache.Get(app); ok {
		if outcome == methodcache.PreferAccessibility {
			if text, err := s.methods.Accessibility(ctx); err == nil && text != "" {
				return text, nil
			} else if err != nil {
				log.Printf("selector: accessibility miss for %q: %v", app, err)
			}
		}
		// a single miss does not change the preference
		return s.methods.ClipboardText(ctx)
	}

	text, err := s.methods.Accessibility(ctx)
	if err == nil && text != "" {
		s.cache.Put(app, methodcache.PreferAccessibility)
		return text, nil
	}
	if err != nil {
		log.Printf("selector: accessibility unavailable for %q: %v", app, err)
	}

	text, err = s.methods.ClipboardText(ctx)
	if err != nil {
		return "", err
	}
	if text != "" {
		s.cache.Put(app, methodcache.PreferClipboardScript)
	}
	return text, nil
}

// Forget drops every learned application outcome.
func (s *Selector) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}

// Learned returns the remembered outcomes, least recently used first.
func (s *Selector) Learned() []methodcache.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Snapshot()
}
