package buffer

import (
	"errors"
	"fmt"

	"github.com/dtbui/pagepool/internal/storage/page"
	util "github.com/dtbui/pagepool/internal/utils"
)

var errWriteFailed = errors.New("injected write failure")

// memStore is an in-memory PageStore for tests: it records every write and
// can inject write failures.
type memStore struct {
	id        util.FileID
	pages     map[util.PageID]page.Page
	nextId    util.PageID
	writes    map[util.PageID]int
	failWrite bool
}

func newMemStore(id util.FileID) *memStore {
	return &memStore{
		id:     id,
		pages:  make(map[util.PageID]page.Page),
		writes: make(map[util.PageID]int),
	}
}

// seed installs n pages with recognizable content.
func (s *memStore) seed(n int) {
	for i := 0; i < n; i++ {
		p := page.CreateTestPage(util.PageID(i), fmt.Appendf(nil, "store %d page %d", s.id, i))
		s.pages[p.Header.PageID] = *p
	}
	s.nextId = util.PageID(n)
}

func (s *memStore) ID() util.FileID { return s.id }

func (s *memStore) Name() string { return fmt.Sprintf("mem-%d", s.id) }

func (s *memStore) ReadPage(pageId util.PageID) (*page.Page, error) {
	p, ok := s.pages[pageId]
	if !ok {
		return nil, fmt.Errorf("mem store page %d: %w", pageId, util.ErrPageNotFound)
	}
	cp := p
	return &cp, nil
}

func (s *memStore) WritePage(p *page.Page) error {
	if s.failWrite {
		return errWriteFailed
	}
	s.pages[p.Header.PageID] = *p
	s.writes[p.Header.PageID]++
	return nil
}

func (s *memStore) AllocatePage() (*page.Page, error) {
	p := page.Page{Header: page.PageHeader{PageID: s.nextId}}
	s.nextId++
	s.pages[p.Header.PageID] = p
	return &p, nil
}

func (s *memStore) DeletePage(pageId util.PageID) error {
	if _, ok := s.pages[pageId]; !ok {
		return fmt.Errorf("mem store page %d: %w", pageId, util.ErrPageNotFound)
	}
	delete(s.pages, pageId)
	return nil
}
