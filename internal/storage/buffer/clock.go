package buffer

import (
	"fmt"

	util "github.com/dtbui/pagepool/internal/utils"
)

// ClockReplacer selects frames for reuse with the second-chance algorithm.
// The hand is owned state, not package state, so independent pools each sweep
// their own cursor.
type ClockReplacer struct {
	table *FrameTable
	index *PageIndex
	hand  int
}

// NewClockReplacer starts the hand on the last frame so the first advance
// lands on frame 0.
func NewClockReplacer(table *FrameTable, index *PageIndex) *ClockReplacer {
	return &ClockReplacer{
		table: table,
		index: index,
		hand:  table.Size() - 1,
	}
}

func (c *ClockReplacer) advance() {
	c.hand = (c.hand + 1) % c.table.Size()
}

// RequestFrame returns a frame eligible for reuse, evicting the incumbent
// page if necessary. The hand always advances before a candidate is examined,
// so the frame handed out most recently is never re-examined without a full
// sweep past it.
//
// A valid frame with its refbit set gets the refbit cleared and one more sweep
// of grace. A pinned frame is skipped; once numFrames pinned candidates have
// been seen with no second chance granted in between, every frame is pinned
// and ErrBufferExhausted is returned. Granting a second chance resets the
// tally: that frame will be examined again and is not pinned, so the sweep can
// still make progress. The sweep terminates because no refbit is set while it
// runs, so at most one reset per frame can happen before the tally is final.
// A dirty victim is written back before its descriptor is cleared; a failed
// write-back aborts the eviction with the frame left intact.
func (c *ClockReplacer) RequestFrame() (util.FrameID, error) {
	numPinned := 0
	for {
		c.advance()
		desc := c.table.Descriptor(util.FrameID(c.hand))

		if !desc.Valid {
			return desc.ID, nil
		}

		if desc.Refbit {
			desc.Refbit = false
			numPinned = 0
			continue
		}

		if desc.PinCount > 0 {
			numPinned++
			if numPinned == c.table.Size() {
				return util.InvalidFrame, util.ErrBufferExhausted
			}
			continue
		}

		// Victim found: valid, refbit off, unpinned.
		if desc.Dirty {
			if err := desc.Store.WritePage(c.table.Content(desc.ID)); err != nil {
				return util.InvalidFrame, fmt.Errorf("write back page %d of %s: %w", desc.PageID, desc.Store.Name(), err)
			}
			desc.Dirty = false
		}

		if err := c.index.Remove(desc.FileID, desc.PageID); err != nil {
			return util.InvalidFrame, fmt.Errorf("evict page %d: %w", desc.PageID, err)
		}
		c.table.Clear(desc.ID)

		return desc.ID, nil
	}
}
