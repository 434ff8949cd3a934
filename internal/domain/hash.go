package domain

// HashRecord is the stored digest of one sampled page.
type HashRecord struct {
	GalleryID int64  `json:"gallery_id"`
	Chapter   int    `json:"chapter"`
	Page      int    `json:"page"`
	Digest    string `json:"digest"`
}

// PageHash is a page index with its hex SHA-1 digest.
type PageHash struct {
	Page   int    `json:"page"`
	Digest string `json:"digest"`
}
