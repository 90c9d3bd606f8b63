package models

// NewsItem is a normalized article from an external anime news feed.
// News content is cached in memory only, never persisted.
type NewsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Link        string `json:"link"`
	Date        string `json:"date"`
	Source      string `json:"source"`
}

// FactSection is one heading/content pair inside an anime fact card.
type FactSection struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// AnimeFact is a trivia card built from trending series metadata.
type AnimeFact struct {
	ID        string        `json:"id"`
	AnimeID   int           `json:"anime_id"`
	Title     string        `json:"title"`
	ImageURL  string        `json:"image_url"`
	ShortFact string        `json:"short_fact"`
	Sections  []FactSection `json:"sections"`
}
