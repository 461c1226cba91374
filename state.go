package tablestate

import (
	"sort"
	"strings"

	"github.com/sboagy/tablestate/internal/merge"
)

// SortSpec orders one column.
type SortSpec struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// Pagination is the page window shown by a table.
type Pagination struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
}

// TableState is the persisted view state of one table. Every field is
// optional: nil means absent, and a non-nil value (even an empty slice or map)
// is an explicit setting that replaces the previous one on merge.
type TableState struct {
	Sorting          []SortSpec      `json:"sorting,omitempty"`
	ColumnVisibility map[string]bool `json:"columnVisibility,omitempty"`
	ColumnOrder      []string        `json:"columnOrder,omitempty"`
	ColumnSizing     map[string]int  `json:"columnSizing,omitempty"`
	RowSelection     map[string]bool `json:"rowSelection,omitempty"`
	GlobalFilter     *string         `json:"globalFilter,omitempty"`
	Pagination       *Pagination     `json:"pagination,omitempty"`
	ScrollTop        *int            `json:"scrollTop,omitempty"`
	CurrentRow       *int64          `json:"currentRow,omitempty"`
	NotePrivate      *string         `json:"notePrivate,omitempty"`
	NotePublic       *string         `json:"notePublic,omitempty"`
}

// Merge returns base with every present field of partial written over it.
// Fields absent from partial keep base's value. The result is detached from
// both arguments.
func Merge(base, partial TableState) TableState {
	return merge.Overwrite(base, partial)
}

// Clone returns a deep copy of s.
func (s TableState) Clone() TableState {
	return merge.Clone(s)
}

// IsEmpty reports whether no field is present.
func (s TableState) IsEmpty() bool {
	return len(merge.PresentFields(s)) == 0
}

// Fields returns the JSON names of the present fields, sorted.
func (s TableState) Fields() []string {
	present := merge.PresentFields(s)
	names := make([]string, 0, len(present))
	for _, field := range present {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" {
			name = field.Name
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the present fields for values no table can render.
func (s TableState) Validate() error {
	for i, order := range s.Sorting {
		if strings.TrimSpace(order.ID) == "" {
			return invalidField("sorting", "entry %d has an empty column id", i)
		}
	}
	for i, id := range s.ColumnOrder {
		if strings.TrimSpace(id) == "" {
			return invalidField("columnOrder", "entry %d is empty", i)
		}
	}
	for column, size := range s.ColumnSizing {
		if size < 0 {
			return invalidField("columnSizing", "column %q has negative size %d", column, size)
		}
	}
	if s.Pagination != nil {
		if s.Pagination.PageIndex < 0 {
			return invalidField("pagination", "page index %d is negative", s.Pagination.PageIndex)
		}
		if s.Pagination.PageSize <= 0 {
			return invalidField("pagination", "page size %d must be positive", s.Pagination.PageSize)
		}
	}
	if s.ScrollTop != nil && *s.ScrollTop < 0 {
		return invalidField("scrollTop", "offset %d is negative", *s.ScrollTop)
	}
	if s.CurrentRow != nil && *s.CurrentRow <= 0 {
		return invalidField("currentRow", "row id %d must be positive", *s.CurrentRow)
	}
	return nil
}
