package entity

// Actor is the authenticated administrator performing an approve or reject action
type Actor struct {
	ID      string `json:"id"`
	Contact string `json:"contact"`
}
