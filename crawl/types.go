package crawl

// Page is the normalized result of one fetch.
type Page struct {
	Content     string // Normalized text, never empty
	Title       string
	Description string
	SourceURL   string // URL reported by the service, or the requested URL
}

// Wire shapes for POST /scrape.

type scrapeRequest struct {
	URL         string      `json:"url"`
	PageOptions pageOptions `json:"pageOptions"`
}

type pageOptions struct {
	OnlyMainContent bool `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool       `json:"success"`
	Data    scrapeData `json:"data"`
	Error   string     `json:"error,omitempty"`
}

type scrapeData struct {
	Content  string         `json:"content"`
	Markdown string         `json:"markdown"`
	Metadata scrapeMetadata `json:"metadata"`
}

type scrapeMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SourceURL   string `json:"sourceURL,omitempty"`
}
