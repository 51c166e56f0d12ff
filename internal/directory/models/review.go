package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DefaultRating is used when a review is submitted without a rating.
const DefaultRating = 5

// Review is a client's rated comment on a piece of equipment.
type Review struct {
	Base
	Text        string     `gorm:"size:500;not null" json:"text" validate:"required,max=500"`
	Rating      int        `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating" validate:"min=1,max=5"`
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id" validate:"required"`
	Client      *Client    `gorm:"constraint:OnDelete:CASCADE;" json:"-" validate:"-"`
	EquipmentID uuid.UUID  `gorm:"type:uuid;not null;index" json:"equipment_id" validate:"required"`
	Equipment   *Equipment `gorm:"constraint:OnDelete:CASCADE;" json:"-" validate:"-"`

	ratingSet bool
}

// TableName pins the table name.
func (Review) TableName() string { return "reviews" }

func (r *Review) String() string {
	return fmt.Sprintf("%s: %d", r.Text, r.Rating)
}

// UnmarshalJSON applies DefaultRating when the payload omits the rating.
// An explicit rating, including 0, is kept so validation can reject it,
// and RatingSet reports it.
func (r *Review) UnmarshalJSON(data []byte) error {
	type plain Review
	aux := struct {
		*plain
		Rating *int `json:"rating"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Rating = DefaultRating
	r.ratingSet = aux.Rating != nil
	if aux.Rating != nil {
		r.Rating = *aux.Rating
	}
	return nil
}

// RatingSet reports whether the decoded payload carried a rating.
func (r *Review) RatingSet() bool { return r.ratingSet }

// ReviewUpdate holds optional new values for a Review.
type ReviewUpdate struct {
	Text   *string `json:"text"`
	Rating *int    `json:"rating"`
}

// Apply copies the set fields onto r.
func (u *ReviewUpdate) Apply(r *Review) {
	if u.Text != nil {
		r.Text = *u.Text
	}
	if u.Rating != nil {
		r.Rating = *u.Rating
	}
}
