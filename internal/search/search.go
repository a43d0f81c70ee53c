package search

// Result is a single claim matched by a search.
type Result struct {
	ID           string `json:"id"`
	UserName     string `json:"userName"`
	ItemID       string `json:"itemId"`
	ItemName     string `json:"itemName"`
	CategoryName string `json:"categoryName"`
	Snippet      string `json:"snippet,omitempty"`
}

// Query describes a search request over the live claims.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a claim search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push claims into a search index.
type Indexer interface {
	IndexAssignments(records []AssignmentRecord) error
	DeleteAssignment(id string) error
}

// AssignmentRecord is the data indexed per claim.
type AssignmentRecord struct {
	ID           string `json:"id"`
	UserName     string `json:"userName"`
	ItemID       string `json:"itemId"`
	ItemName     string `json:"itemName"`
	CategoryName string `json:"categoryName"`
	Note         string `json:"note"`
}
