package types

import "fmt"

// Standard collection names.
const (
	CollectionClients  = "clients"
	CollectionContacts = "contacts"
	CollectionProjects = "projects"
	CollectionMembers  = "members"
	CollectionRoles    = "roles"
)

// FieldKind determines the natural ordering and filter semantics of a field.
type FieldKind string

// Field kinds.
const (
	KindString FieldKind = "string"
	KindNumber FieldKind = "number"
	KindDate   FieldKind = "date"
	KindBool   FieldKind = "bool"
	KindList   FieldKind = "list"
)

// FieldSpec declares one field of a collection.
type FieldSpec struct {
	Name string
	Kind FieldKind
}

// Rule is a local validation constraint checked before a record reaches the
// gateway. Message overrides the default field error text.
type Rule struct {
	Field     string
	Required  bool
	Email     bool
	MinLength int
	EqualTo   string
	OnCreate  bool
	Message   string
}

// CollectionSpec configures how one collection is searched, filtered,
// sorted, paged, validated, and summarized.
type CollectionSpec struct {
	Name     string
	Singular string
	Fields   []FieldSpec

	Searchable  []string
	Filterable  []string
	DefaultSort SortSpec

	// PageSize overrides the configured default page size when positive.
	PageSize int

	Rules []Rule

	// LocalToggles lists boolean fields flipped without a gateway call.
	LocalToggles []string

	// ProtectedFlag names a boolean field that blocks deletion when true.
	ProtectedFlag string

	// Transient fields are validated but never sent to the gateway.
	Transient []string

	StatusField string
	SumFields   []string
}

// Field returns the declaration of the named field.
func (s CollectionSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// HasField reports whether the collection declares the named field.
func (s CollectionSpec) HasField(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// IsToggle reports whether field may be flipped locally.
func (s CollectionSpec) IsToggle(field string) bool {
	for _, f := range s.LocalToggles {
		if f == field {
			return true
		}
	}
	return false
}

var standardCollections = []CollectionSpec{
	{
		Name:     CollectionClients,
		Singular: "client",
		Fields: []FieldSpec{
			{"name", KindString},
			{"contact", KindString},
			{"email", KindString},
			{"company", KindString},
			{"projects", KindNumber},
			{"value", KindNumber},
			{"status", KindString},
			{"lastContact", KindDate},
		},
		Searchable:  []string{"name", "contact"},
		Filterable:  []string{"status"},
		DefaultSort: SortSpec{Field: "name", Direction: Ascending},
		Rules: []Rule{
			{Field: "name", Required: true},
			{Field: "email", Required: true, Email: true},
		},
		StatusField: "status",
		SumFields:   []string{"projects", "value"},
	},
	{
		Name:     CollectionContacts,
		Singular: "contact",
		Fields: []FieldSpec{
			{"name", KindString},
			{"email", KindString},
			{"phone", KindString},
			{"company", KindString},
			{"position", KindString},
			{"status", KindString},
			{"lastContact", KindDate},
			{"tags", KindList},
			{"starred", KindBool},
		},
		Searchable:  []string{"name", "company"},
		Filterable:  []string{"status", "tags"},
		DefaultSort: SortSpec{Field: "name", Direction: Ascending},
		Rules: []Rule{
			{Field: "name", Required: true},
			{Field: "email", Required: true, Email: true},
		},
		LocalToggles: []string{"starred"},
		StatusField:  "status",
	},
	{
		Name:     CollectionProjects,
		Singular: "project",
		Fields: []FieldSpec{
			{"name", KindString},
			{"client", KindString},
			{"status", KindString},
			{"startDate", KindDate},
			{"deadline", KindDate},
			{"budget", KindNumber},
			{"team", KindList},
			{"progress", KindNumber},
			{"priority", KindString},
		},
		Searchable:  []string{"name", "client"},
		Filterable:  []string{"status", "priority"},
		DefaultSort: SortSpec{Field: "name", Direction: Ascending},
		Rules: []Rule{
			{Field: "name", Required: true},
			{Field: "client", Required: true},
		},
		StatusField: "status",
		SumFields:   []string{"budget"},
	},
	{
		Name:     CollectionMembers,
		Singular: "member",
		Fields: []FieldSpec{
			{"name", KindString},
			{"email", KindString},
			{"phone", KindString},
			{"role", KindString},
			{"department", KindString},
			{"status", KindString},
			{"joinDate", KindDate},
		},
		Searchable:  []string{"name", "email"},
		Filterable:  []string{"role", "status"},
		DefaultSort: SortSpec{Field: "name", Direction: Ascending},
		Rules: []Rule{
			{Field: "name", Required: true, Message: "Name is required"},
			{Field: "email", Required: true, Email: true},
			{Field: "phone", Required: true, Message: "Phone is required"},
			{Field: "role", Required: true, Message: "Role is required"},
			{Field: "department", Required: true, Message: "Department is required"},
			{Field: "password", Required: true, MinLength: 8, OnCreate: true},
			{Field: "confirmPassword", EqualTo: "password", OnCreate: true, Message: "Passwords do not match"},
		},
		Transient:   []string{"confirmPassword"},
		StatusField: "status",
	},
	{
		Name:     CollectionRoles,
		Singular: "role",
		Fields: []FieldSpec{
			{"name", KindString},
			{"description", KindString},
			{"memberCount", KindNumber},
			{"department", KindString},
			{"permissions", KindList},
			{"createdAt", KindDate},
			{"isSystemRole", KindBool},
		},
		Searchable:    []string{"name", "description"},
		Filterable:    []string{"department"},
		DefaultSort:   SortSpec{Field: "name", Direction: Ascending},
		PageSize:      5,
		Rules:         []Rule{{Field: "name", Required: true}, {Field: "department", Required: true}},
		ProtectedFlag: "isSystemRole",
		StatusField:   "department",
		SumFields:     []string{"memberCount"},
	},
}

// StandardCollections returns the schemas of every standard collection.
func StandardCollections() []CollectionSpec {
	out := make([]CollectionSpec, len(standardCollections))
	copy(out, standardCollections)
	return out
}

// StandardCollectionNames lists the standard collection names in display order.
func StandardCollectionNames() []string {
	names := make([]string, len(standardCollections))
	for i, c := range standardCollections {
		names[i] = c.Name
	}
	return names
}

// LookupCollection returns the schema of the named collection.
func LookupCollection(name string) (CollectionSpec, error) {
	for _, c := range standardCollections {
		if c.Name == name {
			return c, nil
		}
	}
	return CollectionSpec{}, fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
}
