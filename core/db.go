package core

import (
	"context"
	"strings"
)

// Transactor runs fn inside one storage transaction bound to the store S.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor[S any] interface {
	WithinTx(ctx context.Context, fn func(store S) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderingClause renders orderings whose field is in allowed (json name -> column), or def if none is.
func OrderingClause(orderings []DBOrdering, allowed map[string]string, def string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return def
	}
	return strings.Join(parts, ", ")
}
