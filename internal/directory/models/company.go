package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Company is a business listed in the directory.
type Company struct {
	Base
	// Title is the company's display name.
	Title string `gorm:"size:50;not null" json:"title" validate:"required,max=50"`
	// Phone must match the accepted phone number formats.
	Phone string `gorm:"not null" json:"phone" validate:"required,phone"`
	// AddressID optionally references the company's postal address.
	AddressID *uuid.UUID `gorm:"type:uuid" json:"address_id"`
	Address   *Address   `gorm:"constraint:OnDelete:SET NULL;" json:"address,omitempty" validate:"-"`
	// ClientID references the owning client, if any.
	ClientID *uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	Client   *Client    `gorm:"constraint:OnDelete:CASCADE;" json:"-" validate:"-"`
}

// TableName pins the table name.
func (Company) TableName() string { return "companies" }

func (c *Company) String() string {
	return fmt.Sprintf("%s: %s, %s", c.Title, c.Phone, c.Address.String())
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates. ClearAddress detaches
// the address; a JSON null address_id sets it.
type CompanyUpdate struct {
	Title        *string    `json:"title"`
	Phone        *string    `json:"phone"`
	AddressID    *uuid.UUID `json:"address_id"`
	ClearAddress bool       `json:"-"`
}

func (u *CompanyUpdate) UnmarshalJSON(data []byte) error {
	type plain CompanyUpdate
	if err := json.Unmarshal(data, (*plain)(u)); err != nil {
		return err
	}
	nulls, err := nullKeys(data)
	if err != nil {
		return err
	}
	u.ClearAddress = nulls["address_id"]
	return nil
}

// Apply copies the set fields onto c.
func (u *CompanyUpdate) Apply(c *Company) {
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	switch {
	case u.AddressID != nil:
		c.AddressID = u.AddressID
		c.Address = nil
	case u.ClearAddress:
		c.AddressID = nil
		c.Address = nil
	}
}

// CompanyEquipment links one company to one piece of equipment. The pair is
// unique; it is the only way the two sides are related.
type CompanyEquipment struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_company_equipment" json:"company_id"`
	Company     *Company   `gorm:"constraint:OnDelete:CASCADE;" json:"-" validate:"-"`
	EquipmentID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_company_equipment;index" json:"equipment_id"`
	Equipment   *Equipment `gorm:"constraint:OnDelete:CASCADE;" json:"-" validate:"-"`
	Created     time.Time  `gorm:"not null" json:"created" validate:"notfuture"`
}

// TableName pins the table name.
func (CompanyEquipment) TableName() string { return "company_equipment" }

// NewCompanyEquipment builds a link row stamped at now.
func NewCompanyEquipment(companyID, equipmentID uuid.UUID, now time.Time) *CompanyEquipment {
	return &CompanyEquipment{
		ID:          uuid.New(),
		CompanyID:   companyID,
		EquipmentID: equipmentID,
		Created:     now,
	}
}
