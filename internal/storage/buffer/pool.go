package buffer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dtbui/pagepool/internal/logging"
	"github.com/dtbui/pagepool/internal/storage/page"
	util "github.com/dtbui/pagepool/internal/utils"
)

// PageStore is the durable storage a Manager caches pages for. One store per
// logical file; ID must be stable and unique across the stores served by one
// pool.
type PageStore interface {
	ID() util.FileID
	Name() string
	ReadPage(pageId util.PageID) (*page.Page, error)
	WritePage(p *page.Page) error
	AllocatePage() (*page.Page, error)
	DeletePage(pageId util.PageID) error
}

// Manager is the buffer pool façade: all page access goes through it. Every
// handle it returns points into the pool's own frame storage, so the bytes a
// caller mutates are exactly the bytes that get written back on eviction.
//
// One mutex covers index, frame table and clock hand per operation; pin counts
// only change inside that critical section.
type Manager struct {
	mu       sync.Mutex
	table    *FrameTable
	index    *PageIndex
	replacer *ClockReplacer
	logger   *slog.Logger
}

func NewManager(poolSize int, logger *slog.Logger) (*Manager, error) {
	if poolSize <= 0 {
		return nil, util.ErrInvalidPoolSize
	}
	if logger == nil {
		logger = logging.Default()
	}

	table := NewFrameTable(poolSize)
	index := NewPageIndex(poolSize)
	return &Manager{
		table:    table,
		index:    index,
		replacer: NewClockReplacer(table, index),
		logger:   logger,
	}, nil
}

func (m *Manager) Size() int {
	return m.table.Size()
}

// FetchPage returns the cached content of (store, pageId), reading it from
// the store on a miss. The caller holds a pin until UnpinPage; the returned
// pointer aliases the frame slot and stays valid while the pin is held.
func (m *Manager) FetchPage(store PageStore, pageId util.PageID) (*page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frameId, err := m.index.Lookup(store.ID(), pageId); err == nil {
		desc := m.table.Descriptor(frameId)
		desc.PinCount++
		desc.Refbit = true
		return m.table.Content(frameId), nil
	}

	frameId, err := m.replacer.RequestFrame()
	if err != nil {
		return nil, fmt.Errorf("fetch page %d of %s: %w", pageId, store.Name(), err)
	}

	p, err := store.ReadPage(pageId)
	if err != nil {
		// The frame stays cleared and unindexed; nothing to undo.
		return nil, fmt.Errorf("fetch page %d of %s: %w", pageId, store.Name(), err)
	}

	slot := m.table.Content(frameId)
	*slot = *p
	m.table.Set(frameId, store, pageId)
	if err := m.index.Insert(store.ID(), pageId, frameId); err != nil {
		m.table.Clear(frameId)
		return nil, fmt.Errorf("fetch page %d of %s: %w", pageId, store.Name(), err)
	}

	m.logger.Debug("page fault", "file", store.Name(), "page", pageId, "frame", frameId)
	return slot, nil
}

// UnpinPage releases one pin. markDirty records that the caller mutated the
// content; it never clears an existing dirty mark.
func (m *Manager) UnpinPage(store PageStore, pageId util.PageID, markDirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameId, err := m.index.Lookup(store.ID(), pageId)
	if err != nil {
		return fmt.Errorf("unpin page %d of %s: %w", pageId, store.Name(), err)
	}

	desc := m.table.Descriptor(frameId)
	if desc.PinCount == 0 {
		return fmt.Errorf("unpin page %d of %s: %w", pageId, store.Name(), util.ErrPageNotPinned)
	}

	desc.PinCount--
	if markDirty {
		desc.Dirty = true
	}
	return nil
}

// AllocatePage reserves a new durable page in the store and installs it in
// the pool, pinned once for the caller.
func (m *Manager) AllocatePage(store PageStore) (util.PageID, *page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := store.AllocatePage()
	if err != nil {
		return 0, nil, fmt.Errorf("allocate page in %s: %w", store.Name(), err)
	}
	pageId := p.Header.PageID

	frameId, err := m.replacer.RequestFrame()
	if err != nil {
		return 0, nil, fmt.Errorf("allocate page %d in %s: %w", pageId, store.Name(), err)
	}

	slot := m.table.Content(frameId)
	*slot = *p
	m.table.Set(frameId, store, pageId)
	if err := m.index.Insert(store.ID(), pageId, frameId); err != nil {
		m.table.Clear(frameId)
		return 0, nil, fmt.Errorf("allocate page %d in %s: %w", pageId, store.Name(), err)
	}

	m.logger.Debug("page allocated", "file", store.Name(), "page", pageId, "frame", frameId)
	return pageId, slot, nil
}

// DisposePage deletes a page's durable storage and drops it from the cache.
// A page still pinned cannot be disposed; cache absence is not an error.
func (m *Manager) DisposePage(store PageStore, pageId util.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frameId, err := m.index.Lookup(store.ID(), pageId); err == nil {
		desc := m.table.Descriptor(frameId)
		if desc.PinCount > 0 {
			return fmt.Errorf("dispose page %d of %s: %w", pageId, store.Name(), util.ErrPagePinned)
		}
		// Dirty content is dropped on purpose: the page is being deleted.
		if err := m.index.Remove(store.ID(), pageId); err != nil {
			return fmt.Errorf("dispose page %d of %s: %w", pageId, store.Name(), err)
		}
		m.table.Clear(frameId)
	}

	if err := store.DeletePage(pageId); err != nil {
		return fmt.Errorf("dispose page %d of %s: %w", pageId, store.Name(), err)
	}

	m.logger.Debug("page disposed", "file", store.Name(), "page", pageId)
	return nil
}

// FlushFile writes back and drops every resident page of the store. If any of
// the store's pages is still pinned the whole flush is refused before any
// frame is touched: a pinned page means an in-flight caller whose handle the
// flush would invalidate.
func (m *Manager) FlushFile(store PageStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fileId := store.ID()
	for i := 0; i < m.table.Size(); i++ {
		desc := m.table.Descriptor(util.FrameID(i))
		if desc.Valid && desc.FileID == fileId && desc.PinCount > 0 {
			return fmt.Errorf("flush %s: page %d: %w", store.Name(), desc.PageID, util.ErrPagePinned)
		}
	}

	for i := 0; i < m.table.Size(); i++ {
		desc := m.table.Descriptor(util.FrameID(i))
		if !desc.Valid || desc.FileID != fileId {
			continue
		}

		if desc.Dirty {
			if err := store.WritePage(m.table.Content(desc.ID)); err != nil {
				return fmt.Errorf("flush %s: page %d: %w", store.Name(), desc.PageID, err)
			}
			desc.Dirty = false
		}

		if err := m.index.Remove(fileId, desc.PageID); err != nil {
			return fmt.Errorf("flush %s: page %d: %w", store.Name(), desc.PageID, err)
		}
		m.table.Clear(desc.ID)
	}

	m.logger.Debug("file flushed", "file", store.Name())
	return nil
}

// FrameInfo is a read-only copy of one frame's descriptor state.
type FrameInfo struct {
	ID       util.FrameID
	Valid    bool
	Refbit   bool
	Dirty    bool
	PinCount uint32
	FileID   util.FileID
	PageID   util.PageID
	File     string
}

// PoolStat is a point-in-time snapshot of the whole pool.
type PoolStat struct {
	Frames      []FrameInfo
	ValidFrames int
}

// Snapshot enumerates all frame descriptors without side effects.
func (m *Manager) Snapshot() PoolStat {
	m.mu.Lock()
	defer m.mu.Unlock()

	stat := PoolStat{Frames: make([]FrameInfo, 0, m.table.Size())}
	for i := 0; i < m.table.Size(); i++ {
		desc := m.table.Descriptor(util.FrameID(i))
		info := FrameInfo{
			ID:       desc.ID,
			Valid:    desc.Valid,
			Refbit:   desc.Refbit,
			Dirty:    desc.Dirty,
			PinCount: desc.PinCount,
			FileID:   desc.FileID,
			PageID:   desc.PageID,
		}
		if desc.Valid {
			info.File = desc.Store.Name()
			stat.ValidFrames++
		}
		stat.Frames = append(stat.Frames, info)
	}
	return stat
}

// Close writes back every dirty resident page. Descriptors are left intact;
// the pool is still usable if every write-back succeeded.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs error
	for i := 0; i < m.table.Size(); i++ {
		desc := m.table.Descriptor(util.FrameID(i))
		if !desc.Valid || !desc.Dirty {
			continue
		}
		if err := desc.Store.WritePage(m.table.Content(desc.ID)); err != nil {
			errs = errors.Join(errs, fmt.Errorf("close: page %d of %s: %w", desc.PageID, desc.Store.Name(), err))
			continue
		}
		desc.Dirty = false
	}
	return errs
}
