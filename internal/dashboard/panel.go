package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"control-acceso/internal/auth"
)

// Stat is a single figure on a dashboard card.
type Stat struct {
	Label string
	Value string
}

// View places a resource table in a section.
type View struct {
	Resource string
	Title    string
	// Limit caps the rows shown; zero shows every row.
	Limit int
}

type Section struct {
	Name  string
	Title string
	// Heading replaces Title above the section content when set.
	Heading string
	// Needs lists the resources fetched when the section is rendered.
	Needs  []string
	Tables []View
	// Forms names the form templates rendered above the tables.
	Forms []string
	Stats func(Snapshot) []Stat
}

// Panel is a role's dashboard.
type Panel struct {
	Role     auth.Role
	Title    string
	Sections []Section
	Logger   *slog.Logger

	sources map[string]Source
}

func NewPanel(role auth.Role, title string, sources []Source, sections ...Section) (*Panel, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("panel %s has no sections", role)
	}
	p := &Panel{
		Role:     role,
		Title:    title,
		Sections: sections,
		sources:  make(map[string]Source, len(sources)),
	}
	for _, src := range sources {
		p.sources[src.ResourceName()] = src
	}
	for _, sec := range sections {
		for _, name := range sec.Needs {
			if _, ok := p.sources[name]; !ok {
				return nil, fmt.Errorf("panel %s: section %q needs unknown resource %q", role, sec.Name, name)
			}
		}
		for _, v := range sec.Tables {
			if !slices.Contains(sec.Needs, v.Resource) {
				return nil, fmt.Errorf("panel %s: section %q shows %q without fetching it", role, sec.Name, v.Resource)
			}
		}
	}
	return p, nil
}

func (p *Panel) Path() string { return p.Role.Path() }

// Section returns the named section, falling back to the first one.
func (p *Panel) Section(name string) *Section {
	for i := range p.Sections {
		if p.Sections[i].Name == name {
			return &p.Sections[i]
		}
	}
	return &p.Sections[0]
}

func (p *Panel) Source(name string) (Source, bool) {
	src, ok := p.sources[name]
	return src, ok
}

func (p *Panel) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Snapshot holds the collections loaded for one section render.
type Snapshot struct {
	Section     *Section
	collections map[string]Collection
}

// Get returns the named collection; resources the section did not load come
// back empty.
func (s Snapshot) Get(name string) Collection {
	if c, ok := s.collections[name]; ok {
		return c
	}
	return emptyCollection{}
}

// Load fetches every resource the section needs concurrently. A failed fetch
// is logged and replaced by an empty collection. An unauthorized answer from
// any fetch fails the whole load with auth.ErrUnauthorized, and a cancelled
// ctx fails it with the cancellation cause.
func (p *Panel) Load(ctx context.Context, v Viewer, section string) (Snapshot, error) {
	sec := p.Section(section)
	snap := Snapshot{Section: sec, collections: make(map[string]Collection, len(sec.Needs))}

	var (
		mu           sync.Mutex
		wg           sync.WaitGroup
		unauthorized error
	)
	for _, name := range sec.Needs {
		src := p.sources[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			coll, err := src.Load(ctx, v)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					mu.Lock()
					unauthorized = err
					mu.Unlock()
				} else if ctx.Err() == nil {
					p.logger().Warn("resource fetch failed",
						"panel", p.Role, "section", sec.Name, "resource", name, "error", err)
				}
				coll = src.Empty()
			}
			mu.Lock()
			snap.collections[name] = coll
			mu.Unlock()
		}()
	}
	wg.Wait()

	if unauthorized != nil {
		return snap, fmt.Errorf("load %s/%s: %w", p.Role, sec.Name, unauthorized)
	}
	if ctx.Err() != nil {
		return snap, context.Cause(ctx)
	}
	return snap, nil
}

// State is the view state carried in the query string.
type State struct {
	Search string
	// View is the key of the row whose details are open.
	View string
	// Edit is the key of the row being edited inline.
	Edit string
	// Tab identifies the browser tab the page is rendered into.
	Tab string
}

type NavItem struct {
	Name   string
	Title  string
	Active bool
}

// Page is everything a panel template needs for one render.
type Page struct {
	Title      string
	Role       auth.Role
	Path       string
	Nav        []NavItem
	Section    string
	Heading    string
	Stats      []Stat
	Tables     []*Table
	Forms      []string
	Detail     *Detail
	Search     string
	Searchable bool
	Tab        string

	options map[string][]Option
}

// Options returns the select options of a loaded resource.
func (pg *Page) Options(resource string) []Option {
	return pg.options[resource]
}

func (p *Panel) Render(snap Snapshot, st State) *Page {
	sec := snap.Section
	pg := &Page{
		Title:   p.Title,
		Role:    p.Role,
		Path:    p.Path(),
		Section: sec.Name,
		Heading: sec.Heading,
		Forms:   sec.Forms,
		Search:  st.Search,
		Tab:     st.Tab,
		options: make(map[string][]Option),
	}
	if pg.Heading == "" {
		pg.Heading = sec.Title
	}
	for _, s := range p.Sections {
		pg.Nav = append(pg.Nav, NavItem{Name: s.Name, Title: s.Title, Active: s.Name == sec.Name})
	}
	if sec.Stats != nil {
		pg.Stats = sec.Stats(snap)
	}

	for _, name := range sec.Needs {
		pg.options[name] = snap.Get(name).Options()
	}

	for _, v := range sec.Tables {
		coll := snap.Get(v.Resource)
		t := coll.Table(v.Title, Query{Search: st.Search, Edit: st.Edit, Limit: v.Limit})
		if t.Searchable {
			pg.Searchable = true
		}
		pg.Tables = append(pg.Tables, t)

		if st.View != "" && pg.Detail == nil {
			if d, ok := coll.Detail(st.View); ok {
				pg.Detail = d
			}
		}
	}
	return pg
}

type emptyCollection struct{}

func (emptyCollection) Len() int { return 0 }

func (emptyCollection) Table(title string, _ Query) *Table { return &Table{Title: title} }

func (emptyCollection) Detail(string) (*Detail, bool) { return nil, false }

func (emptyCollection) Options() []Option { return nil }
