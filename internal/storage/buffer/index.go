package buffer

import (
	"fmt"

	util "github.com/dtbui/pagepool/internal/utils"
)

// frameKey is the reverse-index key: a page is identified by the file it
// belongs to plus its id within that file.
type frameKey struct {
	file util.FileID
	page util.PageID
}

// PageIndex maps resident pages to their frame. A page occupies at most one
// frame at any instant, so insert enforces key uniqueness.
type PageIndex struct {
	frames map[frameKey]util.FrameID
}

func NewPageIndex(capacity int) *PageIndex {
	return &PageIndex{
		frames: make(map[frameKey]util.FrameID, capacity),
	}
}

func (ix *PageIndex) Insert(file util.FileID, pageId util.PageID, frame util.FrameID) error {
	key := frameKey{file: file, page: pageId}
	if existing, ok := ix.frames[key]; ok && existing != frame {
		return fmt.Errorf("page %d mapped to frame %d: %w", pageId, existing, util.ErrPageAlreadyCached)
	}
	ix.frames[key] = frame
	return nil
}

func (ix *PageIndex) Lookup(file util.FileID, pageId util.PageID) (util.FrameID, error) {
	frame, ok := ix.frames[frameKey{file: file, page: pageId}]
	if !ok {
		return util.InvalidFrame, util.ErrPageNotFound
	}
	return frame, nil
}

func (ix *PageIndex) Remove(file util.FileID, pageId util.PageID) error {
	key := frameKey{file: file, page: pageId}
	if _, ok := ix.frames[key]; !ok {
		return util.ErrPageNotFound
	}
	delete(ix.frames, key)
	return nil
}

func (ix *PageIndex) Len() int {
	return len(ix.frames)
}
