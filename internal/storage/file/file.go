package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/dtbui/pagepool/internal/storage/page"
	util "github.com/dtbui/pagepool/internal/utils"
)

/**
* This module is used to read and write pages from / to disk.
* One FileManager owns one page file; its identity is derived from the
* file path so pages from different files never collide in the buffer pool.
**/
type FileManager struct {
	File       *os.File
	SyncWrites bool // fsync after every WritePage

	path      string
	id        util.FileID
	pageCount uint64
	freeList  []util.PageID // deallocated page ids, reusable by AllocatePage
}

func NewFileManager(path string, initialPages int) (*FileManager, error) {
	if initialPages <= 0 {
		return nil, util.ErrInvalidInitialPages
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	f, err := os.OpenFile(abs, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	fm := &FileManager{
		File: f,
		path: abs,
		id:   util.FileID(xxhash.Sum64String(abs)),
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	if info.Size() == 0 {
		if err := f.Truncate(int64(initialPages) * int64(util.PageSize)); err != nil {
			f.Close()
			return nil, fmt.Errorf("reserve %d pages: %w", initialPages, err)
		}
		fm.pageCount = uint64(initialPages)
	} else {
		fm.pageCount = uint64(info.Size()) / util.PageSize
		if err := fm.scanFreePages(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return fm, nil
}

// scanFreePages rebuilds the in-memory free list from the free flags on disk.
func (fm *FileManager) scanFreePages() error {
	for id := util.PageID(0); uint64(id) < fm.pageCount; id++ {
		p, err := fm.readRaw(id)
		if err != nil {
			return fmt.Errorf("scan page %d: %w", id, err)
		}
		if p.Header.IsFree() {
			fm.freeList = append(fm.freeList, id)
		}
	}
	return nil
}

// ID returns the stable identity of this file, the buffer pool's key component.
func (fm *FileManager) ID() util.FileID {
	return fm.id
}

func (fm *FileManager) Name() string {
	return fm.path
}

func (fm *FileManager) PageCount() uint64 {
	return fm.pageCount
}

/* READ FILE */
func (fm *FileManager) ReadPage(pageId util.PageID) (*page.Page, error) {
	p, err := fm.readRaw(pageId)
	if err != nil {
		return nil, err
	}

	if p.Header.IsFree() {
		return nil, fmt.Errorf("page %d is deallocated: %w", pageId, util.ErrPageNotFound)
	}

	return p, nil
}

func (fm *FileManager) readRaw(pageId util.PageID) (*page.Page, error) {
	if uint64(pageId) >= fm.pageCount {
		return nil, fmt.Errorf("page %d of %d: %w", pageId, fm.pageCount, util.ErrPageOutOfBounds)
	}

	buf := make([]byte, util.PageSize)
	offset := int64(pageId) * int64(util.PageSize)
	if _, err := fm.File.ReadAt(buf, offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read page %d: %w", pageId, err)
	}

	p, err := page.Deserialize(buf)
	if err != nil {
		return nil, fmt.Errorf("deserialize page %d: %w", pageId, err)
	}

	// A reserved page that was never written decodes as all zero; stamp the
	// identity the caller asked for.
	if p.Header.PageID == 0 && pageId != 0 && p.Header.Flags == 0 {
		p.Header.PageID = pageId
	}

	return p, nil
}

/* WRITE FILE */
func (fm *FileManager) WritePage(p *page.Page) error {
	// The pinned and dirty bits describe in-memory state only; the durable
	// copy always carries them cleared.
	cp := *p
	cp.Header.Flags &^= page.FlagDirty | page.FlagPinned

	offset := int64(cp.Header.PageID) * int64(util.PageSize)
	if _, err := fm.File.WriteAt(cp.Serialize(), offset); err != nil {
		return fmt.Errorf("write page %d: %w", cp.Header.PageID, err)
	}

	if uint64(cp.Header.PageID) >= fm.pageCount {
		fm.pageCount = uint64(cp.Header.PageID) + 1
	}

	if fm.SyncWrites {
		if err := fm.File.Sync(); err != nil {
			return fmt.Errorf("sync after page %d: %w", cp.Header.PageID, err)
		}
	}

	return nil
}

// AllocatePage reserves durable storage for a new page and returns it with a
// fresh identity. Deallocated pages are reused before the file grows.
func (fm *FileManager) AllocatePage() (*page.Page, error) {
	var pageId util.PageID
	if n := len(fm.freeList); n > 0 {
		pageId = fm.freeList[n-1]
		fm.freeList = fm.freeList[:n-1]
	} else {
		pageId = util.PageID(fm.pageCount)
	}

	p := &page.Page{Header: page.PageHeader{PageID: pageId}}
	if err := fm.WritePage(p); err != nil {
		return nil, fmt.Errorf("allocate page %d: %w", pageId, err)
	}

	return p, nil
}

// DeletePage marks the page's durable storage as free for reuse.
func (fm *FileManager) DeletePage(pageId util.PageID) error {
	current, err := fm.readRaw(pageId)
	if err != nil {
		return err
	}
	if current.Header.IsFree() {
		return fmt.Errorf("page %d already deallocated: %w", pageId, util.ErrPageNotFound)
	}

	p := &page.Page{Header: page.PageHeader{PageID: pageId}}
	p.Header.SetFreeFlag()
	if err := fm.WritePage(p); err != nil {
		return fmt.Errorf("delete page %d: %w", pageId, err)
	}

	fm.freeList = append(fm.freeList, pageId)
	return nil
}

/**
* CLOSE FUNCTION
**/
func (fm *FileManager) Close() error {
	if fm == nil || fm.File == nil {
		return nil // Idempotent
	}

	var err error
	if e := fm.File.Sync(); e != nil {
		err = errors.Join(err, fmt.Errorf("sync file: %w", e))
	}
	if e := fm.File.Close(); e != nil {
		err = errors.Join(err, fmt.Errorf("close file: %w", e))
	}
	fm.File = nil
	return err
}
