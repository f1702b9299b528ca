// Package router maps location fragments to views: it applies the
// authentication gate, loads and renders the view's markup fragment into the
// document and runs the view's initializer.
package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"text/template"
	"time"

	"go.uber.org/zap"
)

// Authenticator reports whether a session token is present.
type Authenticator interface {
	Authenticated() bool
}

// Document is the render target. Each mounted view replaces its content.
type Document struct {
	mu     sync.Mutex
	out    io.Writer
	view   View
	markup string
}

func NewDocument(out io.Writer) *Document {
	if out == nil {
		out = io.Discard
	}
	return &Document{out: out}
}

// injectIf replaces the content only while current holds, checked under the
// document lock so a superseded load cannot overwrite a newer view.
func (d *Document) injectIf(view View, markup string, current func() bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !current() {
		return false
	}
	d.view = view
	d.markup = markup
	fmt.Fprint(d.out, markup)
	return true
}

func (d *Document) Markup() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markup
}

func (d *Document) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Page is the data fragments are rendered with.
type Page struct {
	Route         Route
	Authenticated bool
	Now           time.Time
}

// Mount is one navigation's binding of a route to the document.
type Mount struct {
	Route Route
	Doc   *Document
	Nav   *Location
	// Err is set when the fragment could not be loaded; the page-level error
	// block is already in the document.
	Err error

	seq    uint64
	router *Router
}

// Current reports whether no newer navigation has started since this one.
func (m *Mount) Current() bool {
	return m.router.seq.Load() == m.seq
}

// Go navigates away from this mount.
func (m *Mount) Go(r Route) {
	m.Nav.Go(r.Fragment())
}

// Initializer binds a mounted view. It runs once per navigation.
type Initializer func(ctx context.Context, m *Mount) error

type Router struct {
	loader  Loader
	doc     *Document
	loc     *Location
	session Authenticator
	logger  *zap.Logger

	inits       map[View]Initializer
	onLoadError Initializer
	seq         atomic.Uint64
	now         func() time.Time
}

func New(loader Loader, doc *Document, loc *Location, session Authenticator, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		loader:  loader,
		doc:     doc,
		loc:     loc,
		session: session,
		logger:  logger,
		inits:   make(map[View]Initializer),
		now:     time.Now,
	}
}

// Register sets the initializer of view, replacing any previous one.
func (r *Router) Register(view View, init Initializer) {
	r.inits[view] = init
}

// OnLoadError runs instead of the view initializer when the fragment failed
// to load.
func (r *Router) OnLoadError(init Initializer) {
	r.onLoadError = init
}

// Handle resolves fragment and mounts its view. It returns nil without
// mounting when a newer navigation supersedes it.
func (r *Router) Handle(ctx context.Context, fragment string) error {
	m := r.prepare(ctx, fragment)
	if m == nil {
		return nil
	}
	return r.mount(ctx, m)
}

// Run handles the current location and every change after it, until the
// location is closed or ctx is done. Fragment loads are interrupted by a
// newer navigation; initializers run one at a time on the calling goroutine.
func (r *Router) Run(ctx context.Context) error {
	for {
		loadCtx, cancel := context.WithCancel(ctx)
		result := make(chan *Mount, 1)
		go func(fragment string) {
			result <- r.prepare(loadCtx, fragment)
		}(r.loc.Hash())

		select {
		case <-ctx.Done():
			cancel()
			return ctx.Err()
		case _, ok := <-r.loc.Changes():
			cancel()
			if !ok {
				return nil
			}
			continue
		case m := <-result:
			cancel()
			if m != nil {
				if err := r.mount(ctx, m); err != nil {
					r.logger.Error("view initializer failed",
						zap.String("view", string(m.Route.View)), zap.Error(err))
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-r.loc.Changes():
			if !ok {
				return nil
			}
		}
	}
}

func (r *Router) prepare(ctx context.Context, fragment string) *Mount {
	seq := r.seq.Add(1)

	requested := Parse(fragment)
	authenticated := r.session.Authenticated()
	route := Guard(requested, authenticated)
	r.loc.rewrite(fragment, route.Fragment())

	r.logger.Debug("navigating",
		zap.Uint64("seq", seq),
		zap.String("fragment", fragment),
		zap.String("view", string(route.View)))

	m := &Mount{Route: route, Doc: r.doc, Nav: r.loc, seq: seq, router: r}

	markup, err := r.render(ctx, route, authenticated)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil
		}
		m.Err = err
		markup = errorBlock(err)
	}

	if !r.doc.injectIf(route.View, markup, m.Current) {
		r.logger.Debug("discarding superseded view", zap.Uint64("seq", seq))
		return nil
	}
	if m.Err != nil {
		r.logger.Warn("view load failed", zap.String("view", string(route.View)), zap.Error(m.Err))
	}
	return m
}

func (r *Router) render(ctx context.Context, route Route, authenticated bool) (string, error) {
	src, err := r.loader.Load(ctx, route.View)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(string(route.View)).Parse(src)
	if err != nil {
		return "", fmt.Errorf("error loading view %s: %w", route.View, err)
	}

	var buf bytes.Buffer
	page := Page{Route: route, Authenticated: authenticated, Now: r.now()}
	if err := tmpl.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("error rendering view %s: %w", route.View, err)
	}
	return buf.String(), nil
}

func (r *Router) mount(ctx context.Context, m *Mount) error {
	if m.Err != nil {
		if r.onLoadError != nil {
			return r.onLoadError(ctx, m)
		}
		return nil
	}
	init, ok := r.inits[m.Route.View]
	if !ok {
		return nil
	}
	return init(ctx, m)
}

func errorBlock(err error) string {
	return fmt.Sprintf("\n  ⚠ No se pudo cargar la vista.\n  %v\n\n", err)
}
