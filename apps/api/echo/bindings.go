package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// pathID parses the :name path param as a positive id. "me" resolves to the acting user.
func pathID(ctx echo.Context, name string) (int, error) {
	param := ctx.Param(name)
	if param == "me" {
		actor, err := getContextActor(ctx)
		if err != nil {
			return 0, err
		}
		return actor.ID, nil
	}
	id, err := strconv.Atoi(param)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// bindUserFilter reads search, role (repeatable, by name), created_from and created_to (RFC3339).
// Unknown roles and malformed dates are reported as ok == false.
func bindUserFilter(ctx echo.Context) (filter user.QueryFilter, ok bool) {
	params := ctx.QueryParams()
	filter.Search = params.Get("search")

	for _, name := range params["role"] {
		role, valid := user.ParseRole(name)
		if !valid {
			return filter, false
		}
		filter.Roles = append(filter.Roles, role)
	}

	for param, dst := range map[string]*time.Time{"created_from": &filter.CreatedFrom, "created_to": &filter.CreatedTo} {
		if val := params.Get(param); val != "" {
			t, err := time.Parse(time.RFC3339, val)
			if err != nil {
				return filter, false
			}
			*dst = t.UTC()
		}
	}
	return filter, true
}
