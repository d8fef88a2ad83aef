package mocks

// NewsArticle represents a news article from NewsAPI.
type NewsArticle struct {
	Source      map[string]string `json:"source"`
	Author      string            `json:"author"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	PublishedAt string            `json:"publishedAt"`
	Content     string            `json:"content,omitempty"`
}

// FMPSearchResult represents one candidate from the FMP symbol search.
type FMPSearchResult struct {
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	Currency          string `json:"currency"`
	StockExchange     string `json:"stockExchange"`
	ExchangeShortName string `json:"exchangeShortName"`
}

// FMPProfile represents a company profile from FMP.
type FMPProfile struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"companyName"`
	Price             float64 `json:"price"`
	MktCap            int64   `json:"mktCap"`
	Currency          string  `json:"currency"`
	ExchangeShortName string  `json:"exchangeShortName"`
	Industry          string  `json:"industry"`
	Sector            string  `json:"sector"`
	Country           string  `json:"country"`
	IsActivelyTrading bool    `json:"isActivelyTrading"`
}

// SentimentResponse is the JSON object the mock language model answers with.
type SentimentResponse struct {
	OverallSentiment string   `json:"overall_sentiment"`
	PositiveCount    int      `json:"positive_count"`
	NegativeCount    int      `json:"negative_count"`
	NeutralCount     int      `json:"neutral_count"`
	Confidence       float64  `json:"confidence"`
	BullCase         []string `json:"bull_case"`
	BearCase         []string `json:"bear_case"`
}

// chatCompletion is the subset of the OpenAI chat completion body the client decodes.
type chatCompletion struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
