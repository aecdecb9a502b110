package models

type Category struct {
	ID        string `bson:"_id" json:"id"`
	Name      string `bson:"category" json:"category"`
	UID       string `bson:"uid" json:"uid"` // admin who created it
	CreatedAt int64  `bson:"timestamp" json:"timestamp"`
}
