package repository

// Query methods understood by every DocumentStore.
const (
	QueryEqual = "equal"
	QueryLimit = "limit"
)

// Query filters or shapes a collection listing.
type Query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

// Equal matches documents whose attribute equals any of values.
func Equal(attribute string, values ...any) Query {
	return Query{Method: QueryEqual, Attribute: attribute, Values: values}
}

// Limit caps the number of returned documents.
func Limit(n int) Query {
	return Query{Method: QueryLimit, Values: []any{n}}
}
