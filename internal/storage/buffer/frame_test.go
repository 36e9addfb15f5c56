package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	util "github.com/dtbui/pagepool/internal/utils"
)

func TestNewFrameTable(t *testing.T) {
	t.Run("ValidSize", func(t *testing.T) {
		ft := NewFrameTable(8)
		assert.Equal(t, 8, ft.Size())

		for i := 0; i < 8; i++ {
			desc := ft.Descriptor(util.FrameID(i))
			assert.Equal(t, util.FrameID(i), desc.ID, "frame %d knows its id", i)
			assert.False(t, desc.Valid, "frame %d born invalid", i)
			assert.Zero(t, desc.PinCount, "frame %d born unpinned", i)
		}
	})

	t.Run("ZeroSize", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic for size=0")
			}
		}()
		NewFrameTable(0)
		t.Fatal("expected panic for size=0")
	})
}

func TestFrameTableSetClear(t *testing.T) {
	ft := NewFrameTable(2)
	store := newMemStore(42)

	ft.Set(0, store, 7)

	desc := ft.Descriptor(0)
	assert.True(t, desc.Valid, "set makes the frame valid")
	assert.True(t, desc.Refbit, "set grants the first reference")
	assert.Equal(t, uint32(1), desc.PinCount, "installing caller holds one pin")
	assert.False(t, desc.Dirty, "fresh frame is clean")
	assert.Equal(t, store.ID(), desc.FileID)
	assert.Equal(t, util.PageID(7), desc.PageID)

	ft.Clear(0)

	desc = ft.Descriptor(0)
	assert.Equal(t, util.FrameID(0), desc.ID, "id survives clear")
	assert.False(t, desc.Valid)
	assert.False(t, desc.Refbit)
	assert.False(t, desc.Dirty)
	assert.Zero(t, desc.PinCount)
	assert.Nil(t, desc.Store, "owner reset")
}

func TestFrameTableContentIsStable(t *testing.T) {
	ft := NewFrameTable(2)
	store := newMemStore(1)

	slot := ft.Content(1)
	copy(slot.Data[:], []byte("written through the slot"))
	ft.Set(1, store, 3)

	// The handle refers to the frame's own storage, not a copy.
	assert.Same(t, slot, ft.Content(1), "same slot pointer on every access")
	assert.Equal(t, byte('w'), ft.Content(1).Data[0], "mutation visible through the table")
}

func TestFrameTableBounds(t *testing.T) {
	ft := NewFrameTable(2)

	assert.Panics(t, func() { ft.Descriptor(2) }, "descriptor past end")
	assert.Panics(t, func() { ft.Content(-1) }, "negative frame id")
	assert.Panics(t, func() { ft.Clear(5) }, "clear past end")
}
