package analyzer

// Report is the aggregate bot usage report for one date window.
type Report struct {
	GeneratedAt string      `json:"generated_at"`
	Window      Window      `json:"window"`
	Overall     Overall     `json:"overall"`
	Bots        []BotReport `json:"bots"`
}

// Window is the inclusive date range the report covers.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Overall holds totals across all matched bot traffic.
type Overall struct {
	TotalRequests int `json:"total_requests"`
	UniqueBots    int `json:"unique_bots"`
	UniquePaths   int `json:"unique_paths"`
}

// BotReport summarizes one bot's activity inside the window.
type BotReport struct {
	BotName       string       `json:"bot_name"`
	IsLLM         bool         `json:"is_llm"`
	TotalRequests int          `json:"total_requests"`
	DailyRequests []DailyCount `json:"daily_requests"`
	TopPaths      []PathCount  `json:"top_paths"`
}

// DailyCount is one point of a bot's daily time series.
type DailyCount struct {
	Date     string `json:"date"`
	Requests int    `json:"requests"`
}

// PathCount is one entry of a bot's path ranking.
type PathCount struct {
	Path     string `json:"path"`
	Requests int    `json:"requests"`
}
