package models

// Counter field names as stored on a book document. TopByMetric catalog
// views order by one of these.
const (
	FieldViewsCount     = "viewsCount"
	FieldDownloadsCount = "downloadsCount"
)

type Book struct {
	ID             string `bson:"_id" json:"id"` // creation timestamp in millis, as a string
	UploaderID     string `bson:"uid" json:"uid"`
	Title          string `bson:"title" json:"title"`
	Description    string `bson:"description" json:"description,omitempty"`
	CategoryID     string `bson:"categoryId" json:"categoryId"`
	BlobRef        string `bson:"blobRef" json:"-"`       // object key in the blob store
	URL            string `bson:"-" json:"url,omitempty"` // short-lived content URL, resolved per request, never stored
	CreatedAt      int64  `bson:"timestamp" json:"timestamp"`
	ViewsCount     int64  `bson:"viewsCount" json:"viewsCount"`
	DownloadsCount int64  `bson:"downloadsCount" json:"downloadsCount"`
}
