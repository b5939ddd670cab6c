// Package catalog holds the static reference data for the tracked park areas:
// which areas exist, where their permit CSV feeds live, and how source-system
// field names map to display names. The data is compile-time constant and the
// slice order is the stable iteration order used everywhere else.
package catalog

// Field is one playing surface within an area. Name is the identifier used in
// the upstream CSV; DisplayName is what the UI shows.
type Field struct {
	Name        string
	DisplayName string
}

// FieldGroup is a named cluster of fields shown together on one grid. Group
// names are globally unique across areas; they are the query key for the
// schedule views.
type FieldGroup struct {
	Name   string
	Fields []Field
}

// Area is a park location with one remote CSV feed. SharedFields lists sets of
// field names that alias the same physical surface; it is informational only
// and nothing enforces it.
type Area struct {
	Name         string
	DisplayName  string
	URL          string
	Groups       []FieldGroup
	SharedFields [][]string
}

// Areas is the full catalog in stable display order. Area names are identity
// keys: they name cache files, partition permit rows, and key the per-area
// refresh bookkeeping, so they must never change once shipped.
var Areas = []Area{
	{
		Name:        "ERP",
		DisplayName: "East River Park",
		URL:         "https://www.nycgovparks.org/permits/field-and-court/issued/M144/csv",
		Groups: []FieldGroup{
			{
				Name: "Track",
				Fields: []Field{
					{Name: "Soccer-01A", DisplayName: "Soccer 1A (Track Infield North)"},
					{Name: "Soccer-01B", DisplayName: "Soccer 1B (Track Infield South)"},
					{Name: "Track-01", DisplayName: "Running Track"},
				},
			},
			{
				Name: "South",
				Fields: []Field{
					{Name: "Soccer-02", DisplayName: "Soccer 2 (South)"},
					{Name: "Softball-01", DisplayName: "Softball 1"},
					{Name: "Softball-02", DisplayName: "Softball 2"},
				},
			},
		},
		SharedFields: [][]string{
			{"Soccer-01A", "Soccer-01B", "Track-01"},
		},
	},
	{
		Name:        "McCarren",
		DisplayName: "McCarren Park",
		URL:         "https://www.nycgovparks.org/permits/field-and-court/issued/B058/csv",
		Groups: []FieldGroup{
			{
				Name: "Ballfields",
				Fields: []Field{
					{Name: "Baseball-01", DisplayName: "Baseball 1"},
					{Name: "Baseball-02", DisplayName: "Baseball 2"},
					{Name: "Softball-03", DisplayName: "Softball 3"},
				},
			},
			{
				Name: "Soccer",
				Fields: []Field{
					{Name: "Soccer-01", DisplayName: "Soccer 1 (Turf)"},
				},
			},
		},
	},
	{
		Name:        "RedHook",
		DisplayName: "Red Hook Recreation Area",
		URL:         "https://www.nycgovparks.org/permits/field-and-court/issued/B126/csv",
		Groups: []FieldGroup{
			{
				Name: "Recreation",
				Fields: []Field{
					{Name: "Soccer-03", DisplayName: "Soccer 3"},
					{Name: "Soccer-05", DisplayName: "Soccer 5"},
					{Name: "Soccer-06", DisplayName: "Soccer 6"},
				},
			},
		},
	},
}

// AreaByName returns the catalog entry for the given area name.
func AreaByName(name string) (Area, bool) {
	for _, a := range Areas {
		if a.Name == name {
			return a, true
		}
	}
	return Area{}, false
}

// GroupByName finds the area and group for a globally unique group name.
func GroupByName(name string) (Area, FieldGroup, bool) {
	for _, a := range Areas {
		for _, g := range a.Groups {
			if g.Name == name {
				return a, g, true
			}
		}
	}
	return Area{}, FieldGroup{}, false
}

// FieldMap returns source field name -> owning group name for one area. Rows
// whose field name is not a key here are outside the tracked subset.
func (a Area) FieldMap() map[string]string {
	m := make(map[string]string)
	for _, g := range a.Groups {
		for _, f := range g.Fields {
			m[f.Name] = g.Name
		}
	}
	return m
}

// FieldDisplayName resolves a source field name to its display name, falling
// back to the raw name for fields that have since left the catalog.
func (a Area) FieldDisplayName(name string) string {
	for _, g := range a.Groups {
		for _, f := range g.Fields {
			if f.Name == name {
				return f.DisplayName
			}
		}
	}
	return name
}

// GroupFields returns the fields of the named group in catalog order.
func (a Area) GroupFields(group string) []Field {
	for _, g := range a.Groups {
		if g.Name == group {
			return g.Fields
		}
	}
	return nil
}
