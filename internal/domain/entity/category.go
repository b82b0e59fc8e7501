package entity

// Category represents a news category. The slug is the stable identity,
// derived from the static feed registry; name and image are re-synced
// from the registry on every ingestion pass.
type Category struct {
	ID        string
	Slug      string
	Name      string
	ImagePath string
}

// ArticleCategory links an article to a category. The ingestion pipeline
// enforces that each article carries exactly one link, determined by the
// feed URL that produced it.
type ArticleCategory struct {
	ID         string
	ArticleID  string
	CategoryID string
}
