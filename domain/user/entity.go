package user

import "time"

// User is an account known to the directory. Usernames are stored
// lowercased and are unique.
type User struct {
	Username     string    `gorm:"primarykey;size:50" json:"username"`
	DisplayName  string    `gorm:"size:100;not null" json:"display_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for the User model.
func (User) TableName() string {
	return "users"
}

// Claims is the authenticated identity attached to a request.
type Claims struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}
