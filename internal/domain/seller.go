package domain

import "time"

// Seller is the marketplace profile attached to an identity subject.
// IsSeller is the verification flag and is only ever set out of band.
type Seller struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	IsSeller       bool      `json:"is_seller"`
	DisplayName    string    `json:"display_name"`
	ProfilePicture *string   `json:"profile_picture"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	Language       string    `json:"language"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SellerProfile holds the fields a seller may edit on its own record.
type SellerProfile struct {
	DisplayName    string
	Description    string
	Location       string
	Language       string
	ProfilePicture *string
}
