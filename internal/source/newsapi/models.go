package newsapi

// apiResponse mirrors the search provider's /everything response shape.
type apiResponse struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
}

type apiArticle struct {
	Source      apiSource `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt string    `json:"publishedAt"`
}

type apiSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
