package models

// Address is a postal address a company may reference.
type Address struct {
	Base
	StreetName  string `gorm:"not null" json:"street_name" validate:"required"`
	City        string `gorm:"not null" json:"city" validate:"required"`
	State       string `gorm:"not null" json:"state" validate:"required"`
	HouseNumber int    `gorm:"not null;check:house_number >= 1" json:"house_number" validate:"required,min=1"`
}

// TableName pins the table name.
func (Address) TableName() string { return "addresses" }

func (a *Address) String() string {
	if a == nil {
		return ""
	}
	return a.StreetName
}

// AddressUpdate holds optional new values for an Address.
type AddressUpdate struct {
	StreetName  *string `json:"street_name"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	HouseNumber *int    `json:"house_number"`
}

// Apply copies the set fields onto a.
func (u *AddressUpdate) Apply(a *Address) {
	if u.StreetName != nil {
		a.StreetName = *u.StreetName
	}
	if u.City != nil {
		a.City = *u.City
	}
	if u.State != nil {
		a.State = *u.State
	}
	if u.HouseNumber != nil {
		a.HouseNumber = *u.HouseNumber
	}
}

// Category groups equipment.
type Category struct {
	Base
	Title string `gorm:"not null" json:"title" validate:"required"`
}

// TableName pins the table name.
func (Category) TableName() string { return "categories" }

func (c *Category) String() string {
	if c == nil {
		return "None"
	}
	return c.Title
}
