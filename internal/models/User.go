package models

import "gorm.io/gorm"

const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// User is an operator account that owns fare routes.
type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique;not null"`
	Password string `json:"-"`
	Role     string `json:"role"` // "operator", "admin"

	Routes []Route `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"routes,omitempty"`
}
