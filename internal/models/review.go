package models

import "time"

type ReviewRecord struct {
	ReviewerName *string           `json:"reviewer_name"`
	Date         *time.Time        `json:"review_date"`
	Rating       int               `json:"review_rating"`
	Title        string            `json:"review_title"`
	Text         string            `json:"review_text"`
	Type         string            `json:"review_type"`
	Tooltip      *string           `json:"review_tooltip"`
	Response     *AttorneyResponse `json:"attorney_response,omitempty"`
}

type AttorneyResponse struct {
	Name string     `json:"name"`
	Date *time.Time `json:"date"`
	Text string     `json:"text"`
}

// Valid reports whether the review carries any content worth keeping.
func (r *ReviewRecord) Valid() bool {
	return r.Title != "" || r.Text != ""
}
