package driver

import (
	"context"
	"fmt"
	"sync"
)

// Simulator is a deterministic in-memory Driver used in dev mode and
// scheduler tests. It fabricates prospect pages and records every send.
type Simulator struct {
	mu sync.Mutex

	// PageSize and TotalPages shape the fabricated prospect list.
	PageSize   int
	TotalPages int

	// FailFetch, FailSend inject a classified error on the next call.
	FailFetch error
	FailSend  error

	// AcceptAll makes CheckConnection report every invitation accepted.
	AcceptAll bool

	SentMessages    []string
	SentInvitations []string
}

// NewSimulator returns a simulator producing totalPages pages of
// pageSize prospects each.
func NewSimulator(pageSize, totalPages int) *Simulator {
	return &Simulator{PageSize: pageSize, TotalPages: totalPages, AcceptAll: true}
}

func (s *Simulator) FetchProspectPage(ctx context.Context, sourceURL string, page int) (*ProspectPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, Transientf("fetch_page", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailFetch != nil {
		err := s.FailFetch
		s.FailFetch = nil
		return nil, err
	}
	if page > s.TotalPages {
		return &ProspectPage{HasMore: false, Total: s.PageSize * s.TotalPages}, nil
	}

	prospects := make([]ScrapedProspect, 0, s.PageSize)
	for i := 0; i < s.PageSize; i++ {
		n := (page-1)*s.PageSize + i + 1
		prospects = append(prospects, ScrapedProspect{
			FirstName:  fmt.Sprintf("First%d", n),
			LastName:   fmt.Sprintf("Last%d", n),
			Company:    fmt.Sprintf("Company %d", n%7),
			JobTitle:   "Engineer",
			ProfileURL: fmt.Sprintf("https://platform.example/in/prospect-%d", n),
		})
	}
	return &ProspectPage{
		Prospects: prospects,
		HasMore:   page < s.TotalPages,
		Total:     s.PageSize * s.TotalPages,
	}, nil
}

func (s *Simulator) SendMessage(ctx context.Context, ref ProspectRef, content string) error {
	if err := ctx.Err(); err != nil {
		return Transientf("send_message", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSend != nil {
		err := s.FailSend
		s.FailSend = nil
		return err
	}
	s.SentMessages = append(s.SentMessages, ref.ProfileURL)
	return nil
}

func (s *Simulator) SendConnectionRequest(ctx context.Context, ref ProspectRef) error {
	if err := ctx.Err(); err != nil {
		return Transientf("send_connection", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSend != nil {
		err := s.FailSend
		s.FailSend = nil
		return err
	}
	s.SentInvitations = append(s.SentInvitations, ref.ProfileURL)
	return nil
}

func (s *Simulator) CheckConnection(ctx context.Context, ref ProspectRef) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, Transientf("check_connection", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.AcceptAll, nil
}

// MessageCount returns how many direct messages were recorded.
func (s *Simulator) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SentMessages)
}

// InvitationCount returns how many invitations were recorded.
func (s *Simulator) InvitationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SentInvitations)
}
