package docstore

import "fmt"

// Op is a filter operator.
type Op string

const (
	Eq            Op = "=="
	Lt            Op = "<"
	Lte           Op = "<="
	Gt            Op = ">"
	Gte           Op = ">="
	ArrayContains Op = "array-contains"
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// ParseDirection maps "asc"/"desc" (any case) to a Direction, defaulting to def.
func ParseDirection(s string, def Direction) Direction {
	switch s {
	case "asc", "ASC", "Asc":
		return Asc
	case "desc", "DESC", "Desc":
		return Desc
	default:
		return def
	}
}

// Filter is a single field predicate.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Order is a single sort key.
type Order struct {
	Field string
	Dir   Direction
}

// Query is an immutable query description. Each builder method returns a copy.
//
// Documents lacking an ordered field are excluded, as are documents whose
// field type differs from a range operand's type. Ties are broken by
// document id in the direction of the last explicit order.
type Query struct {
	collection string
	filters    []Filter
	orders     []Order
	startAfter *Document
	limit      int
	err        error
}

// From starts a query over a collection.
func From(collection string) Query {
	return Query{collection: collection}
}

func (q Query) clone() Query {
	out := q
	out.filters = append([]Filter(nil), q.filters...)
	out.orders = append([]Order(nil), q.orders...)
	return out
}

// Where adds a filter.
func (q Query) Where(field string, op Op, value any) Query {
	out := q.clone()
	if out.err != nil {
		return out
	}
	if err := validateField(field); err != nil {
		out.err = err
		return out
	}
	switch op {
	case Eq, Lt, Lte, Gt, Gte, ArrayContains:
	default:
		out.err = fmt.Errorf("unsupported operator %q", op)
		return out
	}
	v, err := normalizeValue(value)
	if err != nil {
		out.err = err
		return out
	}
	out.filters = append(out.filters, Filter{Field: field, Op: op, Value: v})
	return out
}

// OrderBy appends a sort key.
func (q Query) OrderBy(field string, dir Direction) Query {
	out := q.clone()
	if out.err != nil {
		return out
	}
	if err := validateField(field); err != nil {
		out.err = err
		return out
	}
	out.orders = append(out.orders, Order{Field: field, Dir: dir})
	return out
}

// StartAfter resumes after the given document under the query's ordering.
func (q Query) StartAfter(cursor *Document) Query {
	out := q.clone()
	out.startAfter = cursor
	return out
}

// Limit caps the number of results. Zero means unlimited.
func (q Query) Limit(n int) Query {
	out := q.clone()
	if n < 0 {
		n = 0
	}
	out.limit = n
	return out
}

// Collection returns the queried collection.
func (q Query) Collection() string { return q.collection }

// Filters returns the query filters.
func (q Query) Filters() []Filter { return append([]Filter(nil), q.filters...) }

// Orders returns the explicit sort keys.
func (q Query) Orders() []Order { return append([]Order(nil), q.orders...) }

// Cursor returns the StartAfter document, if any.
func (q Query) Cursor() *Document { return q.startAfter }

// LimitCount returns the limit, zero meaning unlimited.
func (q Query) LimitCount() int { return q.limit }

// Err returns the first builder error.
func (q Query) Err() error {
	if q.err != nil {
		return q.err
	}
	if q.collection == "" {
		return fmt.Errorf("query without collection")
	}
	return nil
}

// tiebreak is the direction applied to document ids.
func (q Query) tiebreak() Direction {
	if len(q.orders) == 0 {
		return Asc
	}
	return q.orders[len(q.orders)-1].Dir
}

// cursorValues returns the cursor's values for each order field.
func (q Query) cursorValues() ([]any, error) {
	if q.startAfter == nil {
		return nil, nil
	}
	values := make([]any, len(q.orders))
	for i, o := range q.orders {
		v, ok := getPath(q.startAfter.Data, o.Field)
		if !ok {
			return nil, fmt.Errorf("cursor %s lacks order field %s", q.startAfter.ID, o.Field)
		}
		values[i] = v
	}
	return values, nil
}

// matches evaluates the filters against a document body.
func (q Query) matches(data map[string]any) bool {
	for _, f := range q.filters {
		v, ok := getPath(data, f.Field)
		if !ok {
			return false
		}
		switch f.Op {
		case ArrayContains:
			arr, ok := v.([]any)
			if !ok {
				return false
			}
			found := false
			for _, e := range arr {
				if typeRank(e) == typeRank(f.Value) && compareValues(e, f.Value) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if typeRank(v) != typeRank(f.Value) {
				return false
			}
			c := compareValues(v, f.Value)
			switch f.Op {
			case Eq:
				if c != 0 {
					return false
				}
			case Lt:
				if c >= 0 {
					return false
				}
			case Lte:
				if c > 0 {
					return false
				}
			case Gt:
				if c <= 0 {
					return false
				}
			case Gte:
				if c < 0 {
					return false
				}
			}
		}
	}
	for _, o := range q.orders {
		if _, ok := getPath(data, o.Field); !ok {
			return false
		}
	}
	return true
}

// compareDocs orders two documents under the query's sort keys.
func (q Query) compareDocs(aID string, a map[string]any, bID string, b map[string]any) int {
	for _, o := range q.orders {
		av, _ := getPath(a, o.Field)
		bv, _ := getPath(b, o.Field)
		c := compareValues(av, bv)
		if o.Dir == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	c := cmpString(aID, bID)
	if q.tiebreak() == Desc {
		c = -c
	}
	return c
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
