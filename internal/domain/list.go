package domain

// ListType distinguishes hand-curated lists from filter-driven ones.
type ListType int

const (
	ListRegular ListType = iota
	ListAuto
)

// GalleryList is a named collection. Auto lists are populated by running
// Filter through the query language; Enforce removes members that no
// longer match on each scan.
type GalleryList struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name" validate:"required,max=255"`
	Filter  string   `json:"filter"`
	Type    ListType `json:"type" validate:"gte=0,lte=1"`
	Enforce bool     `json:"enforce"`
	Regex   bool     `json:"regex"`
	Case    bool     `json:"case"`
	Strict  bool     `json:"strict"`
}
