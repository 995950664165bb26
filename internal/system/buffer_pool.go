package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool переиспользует холсты *image.RGBA одинакового размера, чтобы
// последовательный экспорт страниц не выделял новый полноразмерный буфер
// на каждую страницу.
type ImagePool struct {
	mu     sync.RWMutex
	pools  map[image.Point]*sync.Pool
	hits   atomic.Int64
	misses atomic.Int64
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

var globalPool = NewImagePool()

// DefaultPool возвращает общий пул процесса.
func DefaultPool() *ImagePool {
	return globalPool
}

func (p *ImagePool) pool(size image.Point) *sync.Pool {
	p.mu.RLock()
	pool, ok := p.pools[size]
	p.mu.RUnlock()
	if ok {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, ok = p.pools[size]; !ok {
		pool = &sync.Pool{}
		p.pools[size] = pool
	}
	return pool
}

// Get возвращает холст с началом координат (0,0) и размером rect.
// Содержимое переиспользованного холста не очищается.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	size := rect.Size()
	if v := p.pool(size).Get(); v != nil {
		p.hits.Add(1)
		return v.(*image.RGBA)
	}
	p.misses.Add(1)
	return image.NewRGBA(image.Rectangle{Max: size})
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Empty() {
		return
	}
	p.pool(img.Rect.Size()).Put(img)
}

// Stats возвращает число переиспользованных и новых холстов.
func (p *ImagePool) Stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}
