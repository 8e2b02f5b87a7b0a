package domain

import (
	"regexp"
	"strings"
	"time"
)

var itemNamePattern = regexp.MustCompile(`^[A-Za-z ]*$`)

type Item struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Price     int        `db:"price" json:"price"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// Validate checks the catalog rules: non-blank name of letters and spaces
// only, price zero or above.
func (i Item) Validate() error {
	ve := newValidationError()

	if strings.TrimSpace(i.Name) == "" {
		ve.Fields["name"] = "this field cannot be empty"
	} else if !itemNamePattern.MatchString(i.Name) {
		ve.Fields["name"] = "Invalid Input"
	}

	if i.Price < 0 {
		ve.Fields["price"] = "must be zero or positive"
	}

	if len(ve.Fields) > 0 {
		return ve
	}

	return nil
}
