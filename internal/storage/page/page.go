package page

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	util "github.com/dtbui/pagepool/internal/utils"
)

const (
	HEADER_SIZE = 16 // Size of PageHeader struct: PageID(8) + Checksum(4) + Flags(2) + padding(2)

	// DataSize is the usable payload of one page
	DataSize = util.PageSize - HEADER_SIZE
)

const (
	FlagDirty  uint16 = 1 << 0 // In-memory content diverged from the durable copy
	FlagPinned uint16 = 1 << 1 // Page is checked out by at least one caller
	FlagFree   uint16 = 1 << 2 // On-disk page is deallocated and reusable
)

// Page is block that read/write from disk
type Page struct {
	Header PageHeader
	Data   [DataSize]byte
}

type PageHeader struct {
	PageID   util.PageID // 8 bytes
	Checksum uint32      // 4 bytes
	Flags    uint16      // 2 bytes
	_        uint16      // 2 bytes (padding)
}

func (h *PageHeader) IsDirty() bool  { return h.Flags&FlagDirty != 0 }
func (h *PageHeader) IsPinned() bool { return h.Flags&FlagPinned != 0 }
func (h *PageHeader) IsFree() bool   { return h.Flags&FlagFree != 0 }

func (h *PageHeader) SetDirtyFlag()  { h.Flags |= FlagDirty }
func (h *PageHeader) SetPinnedFlag() { h.Flags |= FlagPinned }
func (h *PageHeader) SetFreeFlag()   { h.Flags |= FlagFree }

func (h *PageHeader) ClearDirtyFlag() error {
	if !h.IsDirty() {
		return util.ErrPageNotDirty
	}
	h.Flags &^= FlagDirty
	return nil
}

func (h *PageHeader) ClearPinnedFlag() error {
	if !h.IsPinned() {
		return util.ErrPageNotPinned
	}
	h.Flags &^= FlagPinned
	return nil
}

func (h *PageHeader) ClearFreeFlag() {
	h.Flags &^= FlagFree
}

// Serialize packs the page into a byte slice for writing. The checksum is
// xxhash over the buffer with the checksum field zeroed, truncated to 32 bits,
// and is recomputed on every call.
func (p *Page) Serialize() []byte {
	buf := make([]byte, util.PageSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.Header.PageID))
	binary.LittleEndian.PutUint16(buf[12:14], p.Header.Flags)
	copy(buf[HEADER_SIZE:], p.Data[:])

	p.Header.Checksum = uint32(xxhash.Sum64(buf))
	binary.LittleEndian.PutUint32(buf[8:12], p.Header.Checksum)

	return buf
}

// Deserialize unpacks from bytes, validates checksum. An all-zero block is a
// page that was reserved but never written; it decodes to an empty page.
func Deserialize(data []byte) (*Page, error) {
	if len(data) != util.PageSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", util.ErrInvalidPageData, len(data), util.PageSize)
	}

	p := &Page{
		Header: PageHeader{
			PageID:   util.PageID(binary.LittleEndian.Uint64(data[0:8])),
			Checksum: binary.LittleEndian.Uint32(data[8:12]),
			Flags:    binary.LittleEndian.Uint16(data[12:14]),
		},
	}
	copy(p.Data[:], data[HEADER_SIZE:])

	if isZero(data) {
		return p, nil
	}

	scratch := make([]byte, util.PageSize)
	copy(scratch, data)
	clear(scratch[8:12])
	if sum := uint32(xxhash.Sum64(scratch)); sum != p.Header.Checksum {
		return nil, fmt.Errorf("%w: page %d stored %#x computed %#x",
			util.ErrChecksumMismatch, p.Header.PageID, p.Header.Checksum, sum)
	}

	return p, nil
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
