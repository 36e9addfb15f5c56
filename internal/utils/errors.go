package util

import "errors"

var (
	ErrInvalidPageId       = errors.New("invalid page id")
	ErrInvalidPageData     = errors.New("invalid page data")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrInvalidInitialPages = errors.New("initial pages must be positive")
	ErrPageAlreadyDirty    = errors.New("page is already dirty")
	ErrPageNotDirty        = errors.New("page is not dirty")
	ErrPageAlreadyPinned   = errors.New("page is already pinned")
	ErrPageOutOfBounds     = errors.New("page out of bounds")
	ErrInvalidPoolSize     = errors.New("invalid pool size")
	ErrFrameOutOfBounds    = errors.New("frame idx out of bound")

	// Buffer pool error taxonomy. ErrBufferExhausted means every frame is
	// pinned and the pool cannot make progress until a caller unpins.
	ErrBufferExhausted   = errors.New("all frames pinned")
	ErrPageNotFound      = errors.New("page not found")
	ErrPageNotPinned     = errors.New("page is not pinned")
	ErrPagePinned        = errors.New("page is still pinned")
	ErrPageAlreadyCached = errors.New("page already cached in another frame")
)
