package domain

import "time"

// Prospect is an identity record extracted by a scraping session. It is
// immutable after creation except for soft deletion with its owning
// session.
type Prospect struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Company    string     `json:"company,omitempty"`
	JobTitle   string     `json:"job_title,omitempty"`
	Headline   string     `json:"headline,omitempty"`
	Location   string     `json:"location,omitempty"`
	ProfileURL string     `json:"profile_url"`
	ScrapedAt  time.Time  `json:"scraped_at"`
	DeletedAt  *time.Time `json:"-"`
}

// FullName joins the prospect's first and last name.
func (p *Prospect) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
