package core

import "strings"

// Ordering is one "field ASC|DESC" element of a list ordering.
type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Param renders the ordering the way the `ordering` query param expects it: "-field" for descending.
func (ord Ordering) Param() string {
	if ord.Ascending {
		return ord.Field
	}
	return "-" + ord.Field
}

// ParseOrderings parses a comma separated `ordering` param, eg. "-created_at,ho_ten".
func ParseOrderings(val string) []Ordering {
	var ords []Ordering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" || field == "-" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ords = append(ords, Ordering{Field: field, Ascending: !descending})
	}
	return ords
}

// OrderingsParam is the inverse of ParseOrderings.
func OrderingsParam(ords []Ordering) string {
	parts := make([]string, 0, len(ords))
	for _, ord := range ords {
		parts = append(parts, ord.Param())
	}
	return strings.Join(parts, ",")
}
