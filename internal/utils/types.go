package util

// PageID identifies one page inside a page file
type PageID uint64

// FileID is the stable identity of an open page file, derived from its path
type FileID uint64

// FrameID is an index into the buffer pool's frame table
type FrameID int

// InvalidFrame marks the absence of a frame
const InvalidFrame FrameID = -1

// PageSize is the standard page size (4KB)
const PageSize = 4096

// Options represents buffer pool configuration options
type Options struct {
	PoolSize     int  // Number of frames in the buffer pool
	InitialPages int  // Pages to reserve when creating a new file
	SyncWrites   bool // Call fsync after every page write
}

// DefaultOptions returns default buffer pool options
func DefaultOptions() Options {
	return Options{
		PoolSize:     1000, // 4MB default buffer pool
		InitialPages: 1,
		SyncWrites:   false,
	}
}
