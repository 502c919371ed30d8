package render

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/brickbook/pkg/cache"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/observability"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Kind separates part images from step images. They use different ladders.
type Kind string

const (
	KindPart Kind = "part"
	KindCSI  Kind = "csi"
)

var (
	PartLadder = []int{128, 256, 512, 1024, 2048}
	CSILadder  = []int{512, 1024, 2048}
)

// Ladder returns the buffer sizes tried for kind.
func (k Kind) Ladder() []int {
	if k == KindCSI {
		return CSILadder
	}
	return PartLadder
}

// Target is something to measure. ID is the memo identity: a part name or
// a stable CSI key. Digest identifies the geometry, so an edited part never
// matches the memo entry of its old shape.
type Target struct {
	Kind   Kind
	ID     string
	Digest string
	Scene  func() Scene
}

// PartTarget measures an abstract part.
func PartTarget(p *partgraph.AbstractPart) Target {
	scene := PartScene(p)
	return Target{
		Kind:   KindPart,
		ID:     partgraph.Key(p.Name),
		Digest: scene.Digest(),
		Scene:  func() Scene { return scene },
	}
}

// CSITarget measures the cumulative instances of a step under id. The id
// is the digest of the instances' scene.
func CSITarget(id string, instances []*partgraph.PartInstance) Target {
	return Target{
		Kind:   KindCSI,
		ID:     id,
		Digest: id,
		Scene:  func() Scene { return InstancesScene(instances) },
	}
}

// Key is the memo key.
type Key struct {
	Kind     Kind
	ID       string
	Digest   string
	Scale    float64
	Rotation [3]float64
}

// KeyFor returns the memo key of t under v.
func KeyFor(t Target, v partgraph.View) Key {
	return Key{Kind: t.Kind, ID: t.ID, Digest: t.Digest, Scale: v.Scale, Rotation: v.Rotation}
}

type memoEntry struct {
	m   partgraph.Measurement
	err error
}

// Stats counts cache activity.
type Stats struct {
	Hits    int // memo hits
	Stored  int // persistent store hits
	Renders int // rasterizer calls
}

// Cache memoizes measurements per (identity, scale, rotation). A result is
// never recomputed until its key is invalidated.
type Cache struct {
	// mu guards the graphics context and the memo. Renders never overlap.
	mu       sync.Mutex
	measurer Measurer
	memo     map[Key]memoEntry
	stats    Stats

	store  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore persists measurements in c under keys from k.
func WithStore(c cache.Cache, k cache.Keyer, ttl time.Duration) Option {
	return func(rc *Cache) {
		rc.store = c
		if k != nil {
			rc.keyer = k
		}
		rc.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(rc *Cache) {
		if l != nil {
			rc.logger = l
		}
	}
}

// NewCache wraps a measurer.
func NewCache(m Measurer, opts ...Option) *Cache {
	rc := &Cache{
		measurer: m,
		memo:     make(map[Key]memoEntry),
		store:    cache.NewNullCache(),
		keyer:    cache.NewDefaultKeyer(),
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, o := range opts {
		o(rc)
	}
	return rc
}

// Stats returns a snapshot of the counters.
func (rc *Cache) Stats() Stats {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.stats
}

// Measure returns the measurement of t under v.
func (rc *Cache) Measure(ctx context.Context, t Target, v partgraph.View) (partgraph.Measurement, error) {
	key := KeyFor(t, v)

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if e, ok := rc.memo[key]; ok {
		rc.stats.Hits++
		return e.m, e.err
	}

	scene := t.Scene()
	storeKey := rc.keyer.MeasureKey(string(t.Kind), scene.Digest(), cache.MeasureKeyOpts{
		Scale:    v.Scale,
		Rotation: v.Rotation,
	})
	if m, ok := rc.load(ctx, storeKey); ok {
		rc.stats.Stored++
		rc.memo[key] = memoEntry{m: m}
		return m, nil
	}

	m, err := rc.render(ctx, t, scene, v)
	if ctx.Err() != nil {
		// Cancellation is not a property of the target.
		return m, err
	}
	rc.memo[key] = memoEntry{m: m, err: err}
	if err == nil {
		rc.save(ctx, storeKey, m)
	}
	return m, err
}

// MeasurePart measures p in its own default view and records the result on
// the part.
func (rc *Cache) MeasurePart(ctx context.Context, p *partgraph.AbstractPart) (partgraph.Measurement, error) {
	if p.Measurement.Valid {
		return p.Measurement, nil
	}
	m, err := rc.Measure(ctx, PartTarget(p), p.View)
	if err != nil {
		return m, err
	}
	p.Measurement = m
	return m, nil
}

// Invalidate drops exactly one memo entry.
func (rc *Cache) Invalidate(k Key) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.memo, k)
}

// InvalidateID drops every view and every geometry of one identity.
func (rc *Cache) InvalidateID(kind Kind, id string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for k := range rc.memo {
		if k.Kind == kind && k.ID == id {
			delete(rc.memo, k)
		}
	}
}

// Len returns the number of memoized entries.
func (rc *Cache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.memo)
}

func (rc *Cache) render(ctx context.Context, t Target, scene Scene, v partgraph.View) (partgraph.Measurement, error) {
	for _, size := range t.Kind.Ladder() {
		start := time.Now()
		res, fits, err := rc.measurer.Measure(ctx, scene, v, size)
		rc.stats.Renders++
		observability.Import().OnMeasure(ctx, string(t.Kind)+":"+t.ID, size, time.Since(start), err)
		if err != nil {
			return partgraph.Measurement{}, err
		}
		if fits {
			rc.logger.Debug("measured", "target", t.ID, "buffer", size, "w", res.Width, "h", res.Height)
			return partgraph.Measurement{
				Valid:        true,
				Width:        res.Width,
				Height:       res.Height,
				LeftInset:    res.LeftInset,
				BottomInset:  res.BottomInset,
				CenterOffset: res.CenterOffset,
			}, nil
		}
	}
	ladder := t.Kind.Ladder()
	return partgraph.Measurement{}, errors.New(errors.ErrCodeOutOfFrame,
		"%s %q does not fit a %dpx buffer", t.Kind, t.ID, ladder[len(ladder)-1])
}

type storedMeasurement struct {
	Width       int     `json:"w"`
	Height      int     `json:"h"`
	LeftInset   int     `json:"left_inset"`
	BottomInset int     `json:"bottom_inset"`
	CenterX     float64 `json:"cx"`
	CenterY     float64 `json:"cy"`
}

func (rc *Cache) load(ctx context.Context, key string) (partgraph.Measurement, bool) {
	data, hit, err := rc.store.Get(ctx, key)
	if err != nil {
		rc.logger.Warn("measurement cache read failed", "err", err)
		return partgraph.Measurement{}, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "measure")
		return partgraph.Measurement{}, false
	}
	var s storedMeasurement
	if err := json.Unmarshal(data, &s); err != nil {
		_ = rc.store.Delete(ctx, key)
		return partgraph.Measurement{}, false
	}
	observability.Cache().OnCacheHit(ctx, "measure")
	m := partgraph.Measurement{
		Valid:       true,
		Width:       s.Width,
		Height:      s.Height,
		LeftInset:   s.LeftInset,
		BottomInset: s.BottomInset,
	}
	m.CenterOffset.X, m.CenterOffset.Y = s.CenterX, s.CenterY
	return m, true
}

func (rc *Cache) save(ctx context.Context, key string, m partgraph.Measurement) {
	data, _ := json.Marshal(storedMeasurement{
		Width:       m.Width,
		Height:      m.Height,
		LeftInset:   m.LeftInset,
		BottomInset: m.BottomInset,
		CenterX:     m.CenterOffset.X,
		CenterY:     m.CenterOffset.Y,
	})
	if err := rc.store.Set(ctx, key, data, rc.ttl); err != nil {
		rc.logger.Warn("measurement cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "measure", len(data))
}
