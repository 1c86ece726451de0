package storemmap

import (
	"container/list"
	"fmt"
	"os"
	"sync"

	"github.com/xDarkicex/bstreego/internal/obs"
)

const (
	defaultPageSize   = 64 * 1024
	defaultCachePages = 256
)

// cachedBacking serves ReadAt via os.File.ReadAt through a fixed-size
// LRU page cache, for platforms where mmap is unavailable, keyed by
// page index.
type cachedBacking struct {
	f        *os.File
	pageSize int64

	mu       sync.Mutex
	capacity int
	items    map[int64]*list.Element
	order    *list.List
}

type cachePage struct {
	index int64
	data  []byte
}

func newCachedBacking(f *os.File, pageSize int64, capacityPages int) backing {
	return &cachedBacking{
		f:        f,
		pageSize: pageSize,
		capacity: capacityPages,
		items:    make(map[int64]*list.Element, capacityPages),
		order:    list.New(),
	}
}

func (c *cachedBacking) ReadAt(p []byte, off int64) (int, error) {
	n := 0
	for n < len(p) {
		pageIdx := (off + int64(n)) / c.pageSize
		pageStart := pageIdx * c.pageSize
		inPage := (off + int64(n)) - pageStart

		page, err := c.page(pageIdx)
		if err != nil {
			return n, err
		}
		if inPage >= int64(len(page)) {
			return n, fmt.Errorf("storemmap: read past end of file at offset %d", off+int64(n))
		}
		copied := copy(p[n:], page[inPage:])
		n += copied
	}
	return n, nil
}

func (c *cachedBacking) page(idx int64) ([]byte, error) {
	c.mu.Lock()
	if el, ok := c.items[idx]; ok {
		c.order.MoveToFront(el)
		data := el.Value.(*cachePage).data
		c.mu.Unlock()
		obs.M.CacheHitsTotal.Inc()
		return data, nil
	}
	c.mu.Unlock()
	obs.M.CacheMissesTotal.Inc()
	obs.M.PagesTouchedTotal.Inc()

	buf := make([]byte, c.pageSize)
	n, err := c.f.ReadAt(buf, idx*c.pageSize)
	if n == 0 && err != nil {
		return nil, fmt.Errorf("storemmap: positioned read at page %d: %w", idx, err)
	}
	buf = buf[:n]

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[idx]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cachePage).data, nil
	}
	el := c.order.PushFront(&cachePage{index: idx, data: buf})
	c.items[idx] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cachePage).index)
		}
	}
	return buf, nil
}

func (c *cachedBacking) Close() error { return nil }
