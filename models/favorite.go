package models

// Favorite marks a book as favorited by a user. Its presence is the sole
// membership test; the document id is uid:bookId so re-adding overwrites.
type Favorite struct {
	ID      string `bson:"_id" json:"-"`
	UID     string `bson:"uid" json:"uid"`
	BookID  string `bson:"bookId" json:"bookId"`
	AddedAt int64  `bson:"timestamp" json:"timestamp"`
}
