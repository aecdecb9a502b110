package models

// Role constants for user authorization.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	UID          string `bson:"_id" json:"uid"`
	Email        string `bson:"email" json:"email"`
	Password     string `bson:"password" json:"-"` // bcrypt hash
	Name         string `bson:"name" json:"name"`
	ProfileImage string `bson:"profileImage" json:"profileImage,omitempty"`
	Role         string `bson:"userType" json:"userType"` // admin or user
	CreatedAt    int64  `bson:"timestamp" json:"timestamp"`
}
