package models

// Filter narrows client listings. Nil fields are ignored; Sort names a single
// column with an optional descending flag, matching the record store's
// list-with-equality-filters contract.
type Filter struct {
	Phase    *Phase
	Status   *ClientStatus
	Program  *string
	County   *string
	SortBy   string
	SortDesc bool
}
