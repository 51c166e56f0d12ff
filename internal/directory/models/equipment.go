package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Equipment is an item a client lists and other clients review.
type Equipment struct {
	Base
	Title      string     `gorm:"size:50;not null" json:"title" validate:"required,max=50"`
	Size       *int       `gorm:"check:size >= 1" json:"size" validate:"omitempty,min=1"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	Category   *Category  `gorm:"constraint:OnDelete:CASCADE;" json:"category,omitempty" validate:"-"`
	ClientID   *uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	Client     *Client    `gorm:"constraint:OnDelete:CASCADE;" json:"-" validate:"-"`
}

// TableName pins the table name.
func (Equipment) TableName() string { return "equipment" }

func (e *Equipment) String() string {
	size := "None"
	if e.Size != nil {
		size = strconv.Itoa(*e.Size)
	}
	return fmt.Sprintf("%s: %s, %s", e.Category.String(), e.Title, size)
}

// EquipmentUpdate holds optional new values for Equipment. Size and
// CategoryID are nullable: ClearSize and ClearCategory empty them, and a
// JSON null for either key sets the matching flag.
type EquipmentUpdate struct {
	Title         *string    `json:"title"`
	Size          *int       `json:"size"`
	CategoryID    *uuid.UUID `json:"category_id"`
	ClearSize     bool       `json:"-"`
	ClearCategory bool       `json:"-"`
}

func (u *EquipmentUpdate) UnmarshalJSON(data []byte) error {
	type plain EquipmentUpdate
	if err := json.Unmarshal(data, (*plain)(u)); err != nil {
		return err
	}
	nulls, err := nullKeys(data)
	if err != nil {
		return err
	}
	u.ClearSize = nulls["size"]
	u.ClearCategory = nulls["category_id"]
	return nil
}

// Apply copies the set fields onto e.
func (u *EquipmentUpdate) Apply(e *Equipment) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	switch {
	case u.Size != nil:
		e.Size = u.Size
	case u.ClearSize:
		e.Size = nil
	}
	switch {
	case u.CategoryID != nil:
		e.CategoryID = u.CategoryID
		e.Category = nil
	case u.ClearCategory:
		e.CategoryID = nil
		e.Category = nil
	}
}
