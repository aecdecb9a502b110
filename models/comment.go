package models

// Comment carries its own id, distinct from the author's uid, so a user
// may comment on the same book more than once.
type Comment struct {
	ID        string `bson:"_id" json:"id"`
	BookID    string `bson:"bookId" json:"bookId"`
	UID       string `bson:"uid" json:"uid"`
	Text      string `bson:"comment" json:"comment"`
	CreatedAt int64  `bson:"timestamp" json:"timestamp"`
}
