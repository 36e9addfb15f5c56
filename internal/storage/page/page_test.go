package page

import (
	"testing"

	"github.com/stretchr/testify/assert"

	util "github.com/dtbui/pagepool/internal/utils"
)

func TestSerializeDeserialize(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		p := CreateTestPage(7, []byte("hello page seven"))

		buf := p.Serialize()
		assert.Len(t, buf, util.PageSize, "serialized page is one full page")
		assert.NotZero(t, p.Header.Checksum, "checksum computed during serialize")

		got, err := Deserialize(buf)
		assert.NoError(t, err, "deserialize")
		assert.Equal(t, util.PageID(7), got.Header.PageID, "page id survives")
		assert.Equal(t, p.Header.Checksum, got.Header.Checksum, "checksum survives")
		assert.Equal(t, p.Data, got.Data, "data survives")
	})

	t.Run("CorruptedData", func(t *testing.T) {
		p := CreateTestPage(3, []byte("will be corrupted"))
		buf := p.Serialize()

		buf[HEADER_SIZE+4] ^= 0xff

		_, err := Deserialize(buf)
		assert.ErrorIs(t, err, util.ErrChecksumMismatch, "flipped data byte detected")
	})

	t.Run("CorruptedHeader", func(t *testing.T) {
		p := CreateTestPage(3, []byte("will be corrupted"))
		buf := p.Serialize()

		buf[0] ^= 0x01 // page id

		_, err := Deserialize(buf)
		assert.ErrorIs(t, err, util.ErrChecksumMismatch, "flipped header byte detected")
	})

	t.Run("ZeroBlock", func(t *testing.T) {
		// A reserved page that was never written reads back as all zero.
		got, err := Deserialize(make([]byte, util.PageSize))
		assert.NoError(t, err, "zero block decodes without checksum error")
		assert.Equal(t, util.PageID(0), got.Header.PageID)
		assert.Zero(t, got.Header.Flags)
	})

	t.Run("WrongLength", func(t *testing.T) {
		_, err := Deserialize(make([]byte, 100))
		assert.ErrorIs(t, err, util.ErrInvalidPageData, "short buffer rejected")
	})
}

func TestPageHeaderFlags(t *testing.T) {
	var h PageHeader

	assert.False(t, h.IsDirty(), "fresh header not dirty")
	h.SetDirtyFlag()
	assert.True(t, h.IsDirty())
	assert.NoError(t, h.ClearDirtyFlag())
	assert.ErrorIs(t, h.ClearDirtyFlag(), util.ErrPageNotDirty, "double clear rejected")

	assert.False(t, h.IsPinned(), "fresh header not pinned")
	h.SetPinnedFlag()
	assert.True(t, h.IsPinned())
	assert.NoError(t, h.ClearPinnedFlag())
	assert.ErrorIs(t, h.ClearPinnedFlag(), util.ErrPageNotPinned, "double clear rejected")

	h.SetFreeFlag()
	assert.True(t, h.IsFree())
	h.ClearFreeFlag()
	assert.False(t, h.IsFree())
}

func TestCreateTestPageTruncates(t *testing.T) {
	big := make([]byte, util.PageSize*2)
	for i := range big {
		big[i] = byte(i)
	}
	p := CreateTestPage(1, big)
	assert.Equal(t, big[:DataSize], p.Data[:], "oversized input truncated to data size")
}
