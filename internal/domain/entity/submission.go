package entity

import "strings"

// SubmissionForm is the raw input a submitter files. Dates and times stay as
// strings until validation so that error messages can quote the input.
type SubmissionForm struct {
	SubmitterName    string `json:"submitter_name"`
	SubmitterEmail   string `json:"submitter_email"`
	OrganisationName string `json:"organisation_name"`
	SubmitterIDNo    string `json:"submitter_id_no"`
	Purpose          string `json:"purpose"`
	RequestDate      string `json:"request_date"` // YYYY-MM-DD
	RequestTime      string `json:"request_time"` // HH:MM, 24h
	NumberOfItems    int    `json:"number_of_items"`
	Mobile           bool   `json:"mobile"`
	Laptop           bool   `json:"laptop"`
	Pendrive         bool   `json:"pendrive"`
	Others           bool   `json:"others"`
	OtherItemName    string `json:"other_item_name"`
}

// SelectedItems returns the chosen items in printing order: the standard items
// first, then the custom item if one was named.
func (f *SubmissionForm) SelectedItems() []string {
	items := make([]string, 0, 4)
	if f.Mobile {
		items = append(items, ItemMobile)
	}
	if f.Laptop {
		items = append(items, ItemLaptop)
	}
	if f.Pendrive {
		items = append(items, ItemPendrive)
	}
	if f.Others {
		if name := strings.TrimSpace(f.OtherItemName); name != "" {
			items = append(items, name)
		}
	}
	return items
}
