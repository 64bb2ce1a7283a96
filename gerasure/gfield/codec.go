package gfield

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/gordian-engine/gavid/gerasure"
	"golang.org/x/sync/errgroup"
)

// MaxShards is the largest total shard count supported by GF(2^8).
const MaxShards = fieldSize

// Shards at least this long are coded in parallel column ranges.
const parallelMinBytes = 64 * 1024

// ErrShardSize is returned when present shards do not share one length.
var ErrShardSize = errors.New("shards have inconsistent sizes")

// Codec is a systematic Reed-Solomon codec satisfying [gerasure.ShardCodec].
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	nData, nParity int

	// gen is the (nData+nParity)×nData generator matrix.
	// Its first nData rows are the identity.
	gen Matrix
}

var _ gerasure.ShardCodec = (*Codec)(nil)

// New returns a Codec for the given data and parity shard counts.
// A parity count of zero is permitted; such a codec only validates shapes.
func New(nData, nParity int) (*Codec, error) {
	if nData <= 0 {
		return nil, fmt.Errorf("data shards must be > 0")
	}
	if nParity < 0 {
		return nil, fmt.Errorf("parity shards must be >= 0")
	}
	if nData+nParity > MaxShards {
		return nil, fmt.Errorf("total shards must be <= %d", MaxShards)
	}

	vm := Vandermonde(nData+nParity, nData)
	topInv, err := vm.SubMatrix(0, 0, nData, nData).Invert()
	if err != nil {
		return nil, fmt.Errorf("failed to normalize generator matrix: %w", err)
	}
	gen, err := vm.Multiply(topInv)
	if err != nil {
		return nil, fmt.Errorf("failed to build generator matrix: %w", err)
	}

	return &Codec{
		nData:   nData,
		nParity: nParity,
		gen:     gen,
	}, nil
}

// DataShards satisfies [gerasure.ShardCodec].
func (c *Codec) DataShards() int { return c.nData }

// ParityShards satisfies [gerasure.ShardCodec].
func (c *Codec) ParityShards() int { return c.nParity }

// Generator returns a copy of the generator matrix.
func (c *Codec) Generator() Matrix {
	return c.gen.SubMatrix(0, 0, len(c.gen), c.nData)
}

// EncodeParity satisfies [gerasure.ShardCodec].
// Parity entries are reused when they have sufficient capacity.
func (c *Codec) EncodeParity(shards [][]byte) error {
	if err := c.checkCount(shards); err != nil {
		return err
	}

	size := len(shards[0])
	if size == 0 {
		return fmt.Errorf("data shard 0 is empty")
	}
	for i := 1; i < c.nData; i++ {
		if len(shards[i]) != size {
			return fmt.Errorf("data shard %d has size %d, want %d: %w", i, len(shards[i]), size, ErrShardSize)
		}
	}

	outputs := shards[c.nData:]
	for i := range outputs {
		outputs[i] = resize(outputs[i], size)
	}

	if err := c.codeRows(c.gen[c.nData:], shards[:c.nData], outputs, size); err != nil {
		return fmt.Errorf("failed to encode parity: %w", err)
	}
	return nil
}

// ReconstructData satisfies [gerasure.ShardCodec].
func (c *Codec) ReconstructData(shards [][]byte) error {
	return c.reconstruct(shards, true)
}

// Reconstruct satisfies [gerasure.ShardCodec].
func (c *Codec) Reconstruct(shards [][]byte) error {
	return c.reconstruct(shards, false)
}

func (c *Codec) reconstruct(shards [][]byte, dataOnly bool) error {
	if err := c.checkCount(shards); err != nil {
		return err
	}

	size := 0
	present := 0
	dataPresent := 0
	for i, s := range shards {
		if len(s) == 0 {
			continue
		}
		if size == 0 {
			size = len(s)
		} else if len(s) != size {
			return fmt.Errorf("shard %d has size %d, want %d: %w", i, len(s), size, ErrShardSize)
		}
		present++
		if i < c.nData {
			dataPresent++
		}
	}

	if present == len(shards) || (dataOnly && dataPresent == c.nData) {
		return nil
	}
	if present < c.nData {
		return fmt.Errorf("have %d shards, need %d: %w", present, c.nData, gerasure.ErrIncompleteSet)
	}

	if dataPresent < c.nData {
		// Any nData present rows determine the data.
		valid := make([]int, 0, c.nData)
		inputs := make([][]byte, 0, c.nData)
		for i, s := range shards {
			if len(s) == 0 {
				continue
			}
			valid = append(valid, i)
			inputs = append(inputs, s)
			if len(valid) == c.nData {
				break
			}
		}

		dec, err := c.gen.SelectRows(valid).Invert()
		if err != nil {
			return fmt.Errorf("failed to invert decode matrix for rows %v: %w", valid, err)
		}

		var rows Matrix
		var outputs [][]byte
		var missing []int
		for i := range c.nData {
			if len(shards[i]) == 0 {
				rows = append(rows, dec[i])
				outputs = append(outputs, resize(shards[i], size))
				missing = append(missing, i)
			}
		}

		if err := c.codeRows(rows, inputs, outputs, size); err != nil {
			return fmt.Errorf("failed to reconstruct data shards: %w", err)
		}
		for j, i := range missing {
			shards[i] = outputs[j]
		}
	}

	if dataOnly {
		return nil
	}

	var rows Matrix
	var outputs [][]byte
	var missing []int
	for i := c.nData; i < len(shards); i++ {
		if len(shards[i]) == 0 {
			rows = append(rows, c.gen[i])
			outputs = append(outputs, resize(shards[i], size))
			missing = append(missing, i)
		}
	}
	if err := c.codeRows(rows, shards[:c.nData], outputs, size); err != nil {
		return fmt.Errorf("failed to reconstruct parity shards: %w", err)
	}
	for j, i := range missing {
		shards[i] = outputs[j]
	}

	return nil
}

func (c *Codec) checkCount(shards [][]byte) error {
	if want := c.nData + c.nParity; len(shards) != want {
		return fmt.Errorf("expected %d total shards, got %d", want, len(shards))
	}
	return nil
}

// codeRows sets outputs[i] to the product of rows[i] and the inputs,
// one byte column at a time.
// Large shards are split into column ranges coded concurrently.
func (c *Codec) codeRows(rows Matrix, inputs, outputs [][]byte, size int) error {
	if len(rows) == 0 {
		return nil
	}

	n := runtime.GOMAXPROCS(0)
	if size < parallelMinBytes || n == 1 {
		return codeRange(rows, inputs, outputs, 0, size)
	}

	step := (size + n - 1) / n
	var g errgroup.Group
	for start := 0; start < size; start += step {
		end := min(start+step, size)
		g.Go(func() error {
			return codeRange(rows, inputs, outputs, start, end)
		})
	}
	return g.Wait()
}

func codeRange(rows Matrix, inputs, outputs [][]byte, start, end int) error {
	if len(rows) != len(outputs) {
		return fmt.Errorf("have %d coding rows for %d outputs", len(rows), len(outputs))
	}
	for j, in := range inputs {
		if len(in) < end {
			return fmt.Errorf("input %d has size %d, need %d: %w", j, len(in), end, ErrShardSize)
		}
	}
	for i, out := range outputs {
		if len(out) < end {
			return fmt.Errorf("output %d has size %d, need %d: %w", i, len(out), end, ErrShardSize)
		}
		if len(rows[i]) != len(inputs) {
			return fmt.Errorf("coding row %d has %d columns for %d inputs", i, len(rows[i]), len(inputs))
		}
	}

	for i, out := range outputs {
		clear(out[start:end])
		for j, in := range inputs {
			mulAddSlice(rows[i][j], in, out, start, end)
		}
	}
	return nil
}

// resize returns a slice of length size, reusing b's backing array if possible.
func resize(b []byte, size int) []byte {
	if cap(b) >= size {
		return b[:size]
	}
	return make([]byte, size)
}
