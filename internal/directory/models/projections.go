package models

// ReviewEntry is a review joined with the reviewer's display attributes.
type ReviewEntry struct {
	*Review
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// NewReviewEntry joins r with its author. r.Client should be loaded with its
// account; missing data yields empty display fields.
func NewReviewEntry(r *Review) ReviewEntry {
	return ReviewEntry{
		Review:    r,
		Username:  r.Client.Username(),
		FirstName: r.Client.FirstName(),
		LastName:  r.Client.LastName(),
	}
}

// EquipmentDetail is the equipment page: the item, its reviews, the
// companies it is listed under and the companies it can still be added to.
type EquipmentDetail struct {
	Equipment          *Equipment    `json:"equipment"`
	Reviews            []ReviewEntry `json:"reviews"`
	Companies          []Company     `json:"companies"`
	AvailableCompanies []Company     `json:"available_companies"`
}

// CompanyDetail is a company with the equipment linked to it.
type CompanyDetail struct {
	Company   *Company    `json:"company"`
	Equipment []Equipment `json:"equipment"`
}

// Profile gathers everything a client owns or wrote.
type Profile struct {
	Client    *Client     `json:"client"`
	Reviews   []Review    `json:"reviews"`
	Companies []Company   `json:"companies"`
	Equipment []Equipment `json:"equipment"`
}

// Counts are the homepage totals.
type Counts struct {
	Companies int64 `json:"companies"`
	Equipment int64 `json:"equipment"`
	Reviews   int64 `json:"reviews"`
}
