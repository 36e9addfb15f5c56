package buffer

import (
	"fmt"

	"github.com/dtbui/pagepool/internal/storage/page"
	util "github.com/dtbui/pagepool/internal/utils"
)

// FrameDesc is the metadata of one pool slot. Store, FileID and PageID are
// meaningful only while Valid is set.
type FrameDesc struct {
	ID       util.FrameID
	Valid    bool
	Refbit   bool
	PinCount uint32
	Dirty    bool
	Store    PageStore
	FileID   util.FileID
	PageID   util.PageID
}

// FrameTable owns the fixed pool of frame descriptors and their page buffers.
// The two slices are parallel: descs[i] describes the content in pages[i].
// Neither slice is ever reallocated, so a *page.Page handed out by Content
// aliases the slot itself for the table's whole lifetime.
type FrameTable struct {
	descs []FrameDesc
	pages []page.Page
}

func NewFrameTable(size int) *FrameTable {
	if size <= 0 {
		panic(util.ErrInvalidPoolSize)
	}

	ft := &FrameTable{
		descs: make([]FrameDesc, size),
		pages: make([]page.Page, size),
	}
	for i := 0; i < size; i++ {
		ft.descs[i].ID = util.FrameID(i)
	}
	return ft
}

func (ft *FrameTable) Size() int {
	return len(ft.descs)
}

func (ft *FrameTable) Descriptor(frameId util.FrameID) *FrameDesc {
	ft.checkBounds(frameId)
	return &ft.descs[frameId]
}

func (ft *FrameTable) Content(frameId util.FrameID) *page.Page {
	ft.checkBounds(frameId)
	return &ft.pages[frameId]
}

// Set transitions a frame to valid with exactly one pin held by the caller
// installing the page.
func (ft *FrameTable) Set(frameId util.FrameID, store PageStore, pageId util.PageID) {
	ft.checkBounds(frameId)
	desc := &ft.descs[frameId]
	desc.Valid = true
	desc.Refbit = true
	desc.PinCount = 1
	desc.Dirty = false
	desc.Store = store
	desc.FileID = store.ID()
	desc.PageID = pageId
}

// Clear resets a frame to its born state: invalid, unowned, unpinned.
func (ft *FrameTable) Clear(frameId util.FrameID) {
	ft.checkBounds(frameId)
	ft.descs[frameId] = FrameDesc{ID: frameId}
}

func (ft *FrameTable) checkBounds(frameId util.FrameID) {
	if int(frameId) >= len(ft.descs) || frameId < 0 {
		panic(fmt.Sprintf("[frame] frame index out of bound: %d", frameId))
	}
}
