package github

import "time"

// User is a partial GitHub user or org document
type User struct {
	ID          int64     `json:"id"`
	Login       string    `json:"login"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Email       string    `json:"email"`
	Hireable    *bool     `json:"hireable"`
	Bio         string    `json:"bio"`
	Blog        string    `json:"blog"`
	Twitter     string    `json:"twitter_username"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	PublicRepos int       `json:"public_repos"`
	PublicGists int       `json:"public_gists"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	HTMLURL     string    `json:"html_url"`
}

// IsOrg reports an organization account
func (u User) IsOrg() bool { return u.Type == "Organization" }

// Repo is a partial GitHub repository document with fields we use
type Repo struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         User      `json:"owner"`
	Description   string    `json:"description"`
	DefaultBranch string    `json:"default_branch"`
	Language      string    `json:"language"`
	ForksCount    int       `json:"forks_count"`
	Stargazers    int       `json:"stargazers_count"`
	Fork          bool      `json:"fork"`
	CreatedAt     time.Time `json:"created_at"`
	PushedAt      time.Time `json:"pushed_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	HTMLURL       string    `json:"html_url"`
}

// Pull is a partial pull request document
type Pull struct {
	Number   int        `json:"number"`
	State    string     `json:"state"`
	User     *User      `json:"user"`
	MergedAt *time.Time `json:"merged_at"`
	MergedBy *User      `json:"merged_by"`
}

// Merger returns the login credited with merging, "" when unmerged or unknown
func (p Pull) Merger() string {
	if p.MergedAt == nil || p.MergedBy == nil {
		return ""
	}
	return p.MergedBy.Login
}

// Event is a partial public event document
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Content is a file from the contents API; Decoded holds the base64 payload
type Content struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	HTMLURL  string `json:"html_url"`
	Decoded  []byte `json:"-"`
}

// RateBucket is one resource of the /rate_limit document
type RateBucket struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
	Used      int   `json:"used"`
}

// ResetAt converts the epoch reset to a time
func (b RateBucket) ResetAt() time.Time {
	if b.Reset <= 0 {
		return time.Time{}
	}
	return time.Unix(b.Reset, 0).UTC()
}

// RateLimit is the /rate_limit document
type RateLimit struct {
	Resources struct {
		Core   RateBucket `json:"core"`
		Search RateBucket `json:"search"`
	} `json:"resources"`
}

// PullsQuery is the listing filter for RepoPulls
type PullsQuery struct {
	State     string
	Sort      string
	Direction string
	Page      int
	PerPage   int
}
