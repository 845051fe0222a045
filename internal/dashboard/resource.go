package dashboard

import (
	"context"
	"html/template"
	"net/url"

	"control-acceso/internal/auth"
)

// Viewer is who a panel is rendered for.
type Viewer struct {
	Token  string
	Claims *auth.Claims
}

// Outcome is what a successful mutation reports back to the user.
type Outcome struct {
	Message string
	Details []Field
}

type Field struct {
	Label string
	Value string
}

type (
	CreateFunc func(ctx context.Context, token string, form url.Values) (*Outcome, error)
	UpdateFunc func(ctx context.Context, token, key string, form url.Values) (*Outcome, error)
	DeleteFunc func(ctx context.Context, token, key string) (*Outcome, error)
)

// MutationError attaches the message shown to the user when the backend
// gives none.
type MutationError struct {
	Fallback string
	Err      error
}

func (e *MutationError) Error() string { return e.Fallback + ": " + e.Err.Error() }

func (e *MutationError) Unwrap() error { return e.Err }

func Failed(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return &MutationError{Fallback: fallback, Err: err}
}

// Mutations are the write operations a resource supports. Nil entries are
// not offered.
type Mutations struct {
	Create CreateFunc
	Update UpdateFunc
	Delete DeleteFunc
}

// Column is one column of a resource table.
type Column[T any] struct {
	Header string
	Value  func(T) string
	// Searchable columns take part in the search filter and are highlighted.
	Searchable bool
	// Field names the form input used when the row is edited inline; empty
	// columns stay read-only.
	Field string
}

// Resource is a tabular view over one backend collection.
type Resource[T any] struct {
	Name  string
	Title string
	// EmptyText is shown in place of rows when there are none.
	EmptyText string
	Columns   []Column[T]
	Key       func(T) string
	// Label is the text used when the resource feeds a <select>.
	Label func(T) string
	Fetch func(ctx context.Context, token string) ([]T, error)
	// Scope hides records the viewer should not see; nil shows everything.
	Scope func(item T, viewer *auth.Claims) bool
	// Detail enables the details modal.
	Detail bool
	Mutate Mutations
}

// Source is the type-erased view of a Resource used by panels.
type Source interface {
	ResourceName() string
	Load(ctx context.Context, v Viewer) (Collection, error)
	Empty() Collection
	Mutations() Mutations
}

func (r *Resource[T]) ResourceName() string { return r.Name }

func (r *Resource[T]) Mutations() Mutations { return r.Mutate }

func (r *Resource[T]) Empty() Collection {
	return &collection[T]{res: r}
}

func (r *Resource[T]) Load(ctx context.Context, v Viewer) (Collection, error) {
	items, err := r.Fetch(ctx, v.Token)
	if err != nil {
		return nil, err
	}
	if r.Scope != nil {
		scoped := items[:0:0]
		for _, it := range items {
			if r.Scope(it, v.Claims) {
				scoped = append(scoped, it)
			}
		}
		items = scoped
	}
	return &collection[T]{res: r, items: items}, nil
}

// Query selects what a table shows.
type Query struct {
	Search string
	Edit   string
	Limit  int
}

// Collection is a loaded resource.
type Collection interface {
	Len() int
	Table(title string, q Query) *Table
	Detail(key string) (*Detail, bool)
	Options() []Option
}

type Table struct {
	Resource   string
	Title      string
	Headers    []string
	Rows       []Row
	Empty      string
	Detail     bool
	Editable   bool
	Deletable  bool
	Searchable bool
	Total      int
}

type Row struct {
	Key     string
	Cells   []Cell
	Editing bool
}

type Cell struct {
	HTML  template.HTML
	Raw   string
	Field string
}

type Detail struct {
	Title  string
	Fields []Field
}

type Option struct {
	Value string
	Label string
}

type collection[T any] struct {
	res   *Resource[T]
	items []T
}

// Items returns the records of a collection loaded from a Resource[T]. It
// returns nil for collections of another type.
func Items[T any](c Collection) []T {
	if tc, ok := c.(*collection[T]); ok {
		return tc.items
	}
	return nil
}

func (c *collection[T]) Len() int { return len(c.items) }

func (c *collection[T]) searchFields(it T) []string {
	var fields []string
	for _, col := range c.res.Columns {
		if col.Searchable {
			fields = append(fields, col.Value(it))
		}
	}
	return fields
}

func (c *collection[T]) searchable() bool {
	for _, col := range c.res.Columns {
		if col.Searchable {
			return true
		}
	}
	return false
}

func (c *collection[T]) editable() bool {
	if c.res.Mutate.Update == nil {
		return false
	}
	for _, col := range c.res.Columns {
		if col.Field != "" {
			return true
		}
	}
	return false
}

func (c *collection[T]) Table(title string, q Query) *Table {
	if title == "" {
		title = c.res.Title
	}
	t := &Table{
		Resource:   c.res.Name,
		Title:      title,
		Empty:      c.res.EmptyText,
		Detail:     c.res.Detail,
		Editable:   c.editable(),
		Deletable:  c.res.Mutate.Delete != nil,
		Searchable: c.searchable(),
	}
	for _, col := range c.res.Columns {
		t.Headers = append(t.Headers, col.Header)
	}

	term := q.Search
	if !t.Searchable {
		term = ""
	}
	items := Filter(c.items, term, c.searchFields)
	t.Total = len(items)
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}

	for _, it := range items {
		row := Row{Key: c.res.Key(it)}
		row.Editing = t.Editable && q.Edit != "" && q.Edit == row.Key
		for _, col := range c.res.Columns {
			raw := col.Value(it)
			cell := Cell{Raw: raw}
			if col.Searchable {
				cell.HTML = Highlight(raw, term)
			} else {
				cell.HTML = Highlight(raw, "")
			}
			if row.Editing {
				cell.Field = col.Field
			}
			row.Cells = append(row.Cells, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (c *collection[T]) Detail(key string) (*Detail, bool) {
	if !c.res.Detail {
		return nil, false
	}
	for _, it := range c.items {
		if c.res.Key(it) != key {
			continue
		}
		d := &Detail{Title: c.res.Title}
		for _, col := range c.res.Columns {
			d.Fields = append(d.Fields, Field{Label: col.Header, Value: col.Value(it)})
		}
		return d, true
	}
	return nil, false
}

func (c *collection[T]) Options() []Option {
	if c.res.Label == nil {
		return nil
	}
	opts := make([]Option, 0, len(c.items))
	for _, it := range c.items {
		opts = append(opts, Option{Value: c.res.Key(it), Label: c.res.Label(it)})
	}
	return opts
}
