package gavid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/uuid"
	"github.com/gordian-engine/gavid/gerasure"
	"github.com/gordian-engine/gavid/gerasure/gereedsolomon"
	"github.com/gordian-engine/gavid/gmerkle"
	"github.com/gordian-engine/gavid/gshard"
)

var (
	// ErrInvalidChunk is returned by [Processor.CollectChunk]
	// for a chunk whose parameters are unusable or whose proof does not verify.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInconsistentDispersal is returned when the collected shards
	// all verify against their root but do not form a valid encoding of any blob.
	ErrInconsistentDispersal = errors.New("shards do not re-encode to their root")
)

// ProcessorCallback receives each blob a [Processor] reconstructs.
type ProcessorCallback interface {
	ProcessBlob(root gmerkle.Digest, groupID uuid.UUID, blob []byte) error
}

// ProcessorConfig is the configuration for a [Processor].
type ProcessorConfig struct {
	// How often the background cleanup runs,
	// and how long both incomplete groups and completed roots are retained.
	CleanupInterval time.Duration

	// Creates the per-root reconstructor that chunks are fed into.
	// Defaults to [gereedsolomon.NewReconstructor] when nil.
	NewReconstructor ReconstructorFactory

	// Codec used to re-encode reconstructed blobs for the root check.
	// Defaults to [gshard.ReedSolomonCodec] when nil.
	NewCodec gshard.CodecFactory

	// Merkle options that chunks were dispersed with.
	HashOptions []gmerkle.Option
}

// ReconstructorFactory creates an incremental reconstructor for one shard set.
type ReconstructorFactory func(nData, nParity, shardSize int) (gerasure.Reconstructor, error)

func newReedSolomonReconstructor(nData, nParity, shardSize int) (gerasure.Reconstructor, error) {
	return gereedsolomon.NewReconstructor(nData, nParity, shardSize)
}

// DefaultProcessorConfig returns a ProcessorConfig with a one minute cleanup interval.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		CleanupInterval: time.Minute,
	}
}

// Processor collects chunks from any number of dispersals
// and reconstructs each blob once enough verified chunks for its root arrive.
type Processor struct {
	log *slog.Logger

	cb ProcessorCallback

	cfg ProcessorConfig

	// groups holds the chunks collected so far for each incomplete group.
	groups   map[groupKey]*chunkGroup
	groupsMu sync.RWMutex

	// completed holds groups that no longer accept chunks,
	// whether they reconstructed successfully or not.
	completed   map[groupKey]time.Time
	completedMu sync.RWMutex
}

// groupKey identifies the chunks that are reconstructed together.
// The root commits to the node count and the shards,
// but not to the fault count or padding scheme,
// so chunks disagreeing on those are collected separately.
type groupKey struct {
	root      gmerkle.Digest
	numNodes  int
	numFaults int
	padding   gshard.PaddingScheme
}

func keyOf(c *Chunk) groupKey {
	return groupKey{
		root:      c.Root,
		numNodes:  c.NumNodes,
		numFaults: c.NumFaults,
		padding:   c.Padding,
	}
}

type chunkGroup struct {
	mu sync.Mutex

	key     groupKey
	cfg     gshard.Config
	groupID uuid.UUID

	shardSize int
	rcons     gerasure.Reconstructor
	received  *bitset.BitSet

	firstSeen time.Time

	// Set under mu once the group has been finalized,
	// so that callers holding a stale pointer drop their chunk.
	done bool
}

// NewProcessor returns a new Processor.
// The caller should run [Processor.RunBackgroundCleanup] in its own goroutine.
func NewProcessor(log *slog.Logger, cb ProcessorCallback, cfg ProcessorConfig) *Processor {
	if cfg.CleanupInterval <= 0 {
		panic(fmt.Errorf("BUG: cleanup interval must be positive, got %s", cfg.CleanupInterval))
	}
	if cfg.NewReconstructor == nil {
		cfg.NewReconstructor = newReedSolomonReconstructor
	}

	return &Processor{
		log: log,
		cb:  cb,
		cfg: cfg,

		groups:    make(map[groupKey]*chunkGroup),
		completed: make(map[groupKey]time.Time),
	}
}

// RunBackgroundCleanup removes stale groups and old completed roots
// every cleanup interval, until ctx is canceled.
func (p *Processor) RunBackgroundCleanup(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("Stopping background cleanup", "cause", context.Cause(ctx))
			return
		case now := <-ticker.C:
			p.cleanup(now)
		}
	}
}

// CollectChunk verifies c and adds it to the group for its root
// and coding parameters.
// When the group reaches the data shard count,
// the blob is reconstructed, checked against the root,
// and passed to the callback.
//
// Chunks for groups that have already completed, and duplicate chunks,
// are ignored and return nil.
// A chunk carrying a forged fault count or padding scheme
// lands in a group of its own, which fails its root check
// without affecting the group of honest chunks.
func (p *Processor) CollectChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("nil chunk")
	}

	key := keyOf(c)
	if p.isCompleted(key) {
		return nil
	}

	if err := c.Config().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	if len(c.Data) == 0 {
		return fmt.Errorf("%w: empty data", ErrInvalidChunk)
	}

	ok, err := c.Verify(p.cfg.HashOptions...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	if !ok {
		p.log.Warn(
			"Rejecting chunk with invalid proof",
			"root", c.Root, "group_id", c.GroupID, "index", c.Index,
		)
		return fmt.Errorf("%w: proof does not match root %s", ErrInvalidChunk, c.Root)
	}

	g, err := p.getOrCreateGroup(key, c)
	if err != nil {
		return err
	}
	if g == nil {
		// Completed while we were verifying.
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.done {
		return nil
	}

	if g.received.Test(uint(c.Index)) {
		return nil
	}

	if len(c.Data) != g.shardSize {
		// Every chunk verified against the same root,
		// so the sender committed to shards of different sizes.
		g.done = true
		p.setCompleted(key)
		p.deleteGroup(key)
		return fmt.Errorf(
			"%w: chunk %d has %d bytes, earlier chunks have %d",
			ErrInconsistentDispersal, c.Index, len(c.Data), g.shardSize,
		)
	}

	// The reconstructor copies the shard, so c.Data remains the caller's.
	err = g.rcons.ReconstructData(context.Background(), c.Index, c.Data)
	g.received.Set(uint(c.Index))
	if err != nil {
		if errors.Is(err, gerasure.ErrIncompleteSet) {
			return nil
		}
		return fmt.Errorf("failed to collect chunk %d: %w", c.Index, err)
	}

	return p.finish(g)
}

// finish reconstructs the blob for a group holding enough shards.
// The group's mutex must be held.
func (p *Processor) finish(g *chunkGroup) error {
	g.done = true
	root := g.key.root

	// The group is marked completed before it is removed,
	// so a concurrent chunk never recreates it.
	p.setCompleted(g.key)
	p.deleteGroup(g.key)

	blob, err := p.reconstruct(root, g)
	if err != nil {
		p.log.Warn(
			"Failed to reconstruct blob",
			"root", root, "group_id", g.groupID,
			"faults", g.cfg.NumFaults, "padding", g.cfg.Padding,
			"err", err,
		)
		return err
	}

	p.log.Info(
		"Reconstructed blob",
		"root", root, "group_id", g.groupID, "size", len(blob),
	)

	if err := p.cb.ProcessBlob(root, g.groupID, blob); err != nil {
		return fmt.Errorf("failed to process blob: %w", err)
	}

	return nil
}

func (p *Processor) reconstruct(root gmerkle.Digest, g *chunkGroup) ([]byte, error) {
	joined, err := g.rcons.Data(nil, g.cfg.DataShards()*g.shardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to join data shards: %w", err)
	}
	blob, err := g.cfg.Padding.Unpad(joined)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInconsistentDispersal, err)
	}

	s, err := gshard.NewSharder(g.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sharder: %w", err)
	}

	// Every collected shard verified against the root,
	// but the sender could have committed to shards that are not a codeword.
	// Re-encoding catches that case.
	shards, err := s.Encode(context.Background(), blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInconsistentDispersal, err)
	}
	got, err := shardRoot(shards, p.cfg.HashOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to compute root of re-encoded shards: %w", err)
	}
	if got != root {
		return nil, fmt.Errorf("%w: got %s want %s", ErrInconsistentDispersal, got, root)
	}

	return blob, nil
}

// getOrCreateGroup returns the group for key,
// creating it if necessary, sized from c.
// It returns a nil group if the key completed before the group could be created.
func (p *Processor) getOrCreateGroup(key groupKey, c *Chunk) (*chunkGroup, error) {
	p.groupsMu.RLock()
	g, ok := p.groups[key]
	p.groupsMu.RUnlock()
	if ok {
		return g, nil
	}

	cfg := c.Config()
	cfg.NewCodec = p.cfg.NewCodec

	// Allocate outside the lock.
	rcons, err := p.cfg.NewReconstructor(cfg.DataShards(), cfg.NumFaults, len(c.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to create reconstructor: %w", err)
	}

	p.groupsMu.Lock()
	defer p.groupsMu.Unlock()

	if g, ok := p.groups[key]; ok {
		return g, nil
	}

	// Completion marks the key before deleting the group,
	// so with the groups lock held this check is reliable.
	if p.isCompleted(key) {
		return nil, nil
	}

	g = &chunkGroup{
		key:       key,
		cfg:       cfg,
		groupID:   c.GroupID,
		shardSize: len(c.Data),
		rcons:     rcons,
		received:  bitset.New(uint(cfg.NumNodes)),
		firstSeen: time.Now(),
	}
	p.groups[key] = g

	p.log.Debug(
		"Started chunk group",
		"root", c.Root, "group_id", c.GroupID,
		"nodes", cfg.NumNodes, "faults", cfg.NumFaults, "padding", cfg.Padding,
		"shard_size", len(c.Data),
	)

	return g, nil
}

// cleanup removes completed keys and incomplete groups
// older than the cleanup interval.
func (p *Processor) cleanup(now time.Time) {
	var expiredKeys []groupKey

	p.completedMu.RLock()
	for key, completedAt := range p.completed {
		if now.Sub(completedAt) > p.cfg.CleanupInterval {
			expiredKeys = append(expiredKeys, key)
		}
	}
	p.completedMu.RUnlock()

	if len(expiredKeys) != 0 {
		p.completedMu.Lock()
		for _, key := range expiredKeys {
			delete(p.completed, key)
		}
		p.completedMu.Unlock()
	}

	var staleGroups []groupKey

	p.groupsMu.RLock()
	for key, g := range p.groups {
		if now.Sub(g.firstSeen) > p.cfg.CleanupInterval {
			staleGroups = append(staleGroups, key)
		}
	}
	p.groupsMu.RUnlock()

	if len(staleGroups) != 0 {
		p.groupsMu.Lock()
		for _, key := range staleGroups {
			delete(p.groups, key)
		}
		p.groupsMu.Unlock()
	}

	if len(expiredKeys) != 0 || len(staleGroups) != 0 {
		p.log.Debug(
			"Cleaned up processor state",
			"expired_groups", len(expiredKeys),
			"stale_groups", len(staleGroups),
		)
	}
}

// PendingGroups returns the number of groups with chunks collected
// but not yet reconstructed.
// Chunks sharing a root but claiming different coding parameters
// count as separate groups.
func (p *Processor) PendingGroups() int {
	p.groupsMu.RLock()
	defer p.groupsMu.RUnlock()
	return len(p.groups)
}

func (p *Processor) deleteGroup(key groupKey) {
	p.groupsMu.Lock()
	defer p.groupsMu.Unlock()
	delete(p.groups, key)
}

func (p *Processor) setCompleted(key groupKey) {
	p.completedMu.Lock()
	defer p.completedMu.Unlock()
	p.completed[key] = time.Now()
}

func (p *Processor) isCompleted(key groupKey) bool {
	p.completedMu.RLock()
	defer p.completedMu.RUnlock()
	_, ok := p.completed[key]
	return ok
}
