package gmerkle_test

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"testing"

	"github.com/gordian-engine/gavid/gmerkle"
	"github.com/stretchr/testify/require"
)

func TestBuild_threeLeaves(t *testing.T) {
	t.Parallel()

	tree, err := gmerkle.Build(values("a", "b", "c"))
	require.NoError(t, err)

	ha := sha256.Sum256([]byte("a"))
	hb := sha256.Sum256([]byte("b"))
	hc := sha256.Sum256([]byte("c"))
	hab := sha256.Sum256(append(ha[:], hb[:]...))
	want := sha256.Sum256(append(hab[:], hc[:]...))

	root, err := tree.Root()
	require.NoError(t, err)
	require.Equal(t, gmerkle.Digest(want), root)

	rootHex, err := tree.RootHex()
	require.NoError(t, err)
	require.Equal(t, "7075152d03a5cd92104887b476862778ec0c87be5c2fa1c0a90f87c49fad6eff", rootHex)

	require.Equal(t, 3, tree.Len())
	leaf, ok := tree.Leaf(2)
	require.True(t, ok)
	require.Equal(t, gmerkle.Digest(hc), leaf)
	_, ok = tree.Leaf(3)
	require.False(t, ok)
}

func TestBuild_singleLeaf(t *testing.T) {
	t.Parallel()

	tree, err := gmerkle.Build(values("only"))
	require.NoError(t, err)

	root, err := tree.Root()
	require.NoError(t, err)
	require.Equal(t, gmerkle.LeafDigest([]byte("only")), root)
}

func TestBuild_empty(t *testing.T) {
	t.Parallel()

	_, err := gmerkle.Build(nil)
	require.ErrorIs(t, err, gmerkle.ErrEmpty)

	tree := gmerkle.New()
	_, err = tree.Root()
	require.ErrorIs(t, err, gmerkle.ErrEmpty)

	_, err = tree.Prove([]int{0})
	require.ErrorIs(t, err, gmerkle.ErrEmpty)
}

func TestBuild_blake2b(t *testing.T) {
	t.Parallel()

	tree, err := gmerkle.Build(values("a", "b", "c"), gmerkle.WithHash(gmerkle.BLAKE2b256))
	require.NoError(t, err)

	rootHex, err := tree.RootHex()
	require.NoError(t, err)
	require.Equal(t, "350bf288b7179755b0d6f6e91f8e6fa5b2ac2d8bcf6d0b3882b81a2d3171bc8c", rootHex)

	p, err := tree.Prove([]int{1})
	require.NoError(t, err)

	root, err := tree.Root()
	require.NoError(t, err)

	ok, err := gmerkle.Verify(p, root, []int{1}, values("b"), 3, gmerkle.WithHash(gmerkle.BLAKE2b256))
	require.NoError(t, err)
	require.True(t, ok)

	// The default hash does not verify a BLAKE2b proof.
	ok, err = gmerkle.Verify(p, root, []int{1}, values("b"), 3)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWithHash_wrongSize(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		gmerkle.WithHash(sha256.New224)
	})
}

func TestAppend_matchesBuild(t *testing.T) {
	t.Parallel()

	tree, err := gmerkle.Build(values("a", "b", "c"))
	require.NoError(t, err)
	tree.Append(values("d", "e"))

	rootHex, err := tree.RootHex()
	require.NoError(t, err)
	require.Equal(t, "d71f8983ad4ee170f8129f1ebcdd7440be7798d8e1c80420bf11f1eced610dba", rootHex)

	for total := 1; total <= 40; total++ {
		all := numbered(total)
		want, err := gmerkle.Build(all)
		require.NoError(t, err)
		wantRoot, err := want.Root()
		require.NoError(t, err)

		for split := 0; split <= total; split++ {
			t.Run(fmt.Sprintf("%d then %d", split, total-split), func(t *testing.T) {
				tree := gmerkle.New()
				tree.Append(all[:split])
				tree.Append(all[split:])

				root, err := tree.Root()
				require.NoError(t, err)
				require.Equal(t, wantRoot, root)
				require.Equal(t, total, tree.Len())
			})
		}
	}
}

func TestAppend_oneAtATime(t *testing.T) {
	t.Parallel()

	all := numbered(33)
	tree := gmerkle.New()
	for i := range all {
		tree.Append(all[i : i+1])

		want, err := gmerkle.Build(all[:i+1])
		require.NoError(t, err)

		wantRoot, err := want.Root()
		require.NoError(t, err)
		root, err := tree.Root()
		require.NoError(t, err)
		require.Equal(t, wantRoot, root, "after %d leaves", i+1)
	}
}

func TestTree_concurrentReadersAndAppender(t *testing.T) {
	t.Parallel()

	tree, err := gmerkle.Build(numbered(4))
	require.NoError(t, err)

	const nAppends = 50
	all := numbered(4 + nAppends)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 4; i < len(all); i++ {
			tree.Append(all[i : i+1])
		}
	}()

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				// Root and Prove must see a consistent tree
				// with at least the initial leaves.
				p, err := tree.Prove([]int{0})
				if err != nil {
					t.Error(err)
					return
				}
				if p.LeafCount < 4 {
					t.Errorf("leaf count went backwards: %d", p.LeafCount)
					return
				}
				if _, err := tree.Root(); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}

	wg.Wait()

	want, err := gmerkle.Build(all)
	require.NoError(t, err)
	wantRoot, err := want.Root()
	require.NoError(t, err)
	root, err := tree.Root()
	require.NoError(t, err)
	require.Equal(t, wantRoot, root)
}

func TestDigest_parse(t *testing.T) {
	t.Parallel()

	d := gmerkle.LeafDigest([]byte("x"))
	got, err := gmerkle.ParseDigest(d.String())
	require.NoError(t, err)
	require.Equal(t, d, got)

	_, err = gmerkle.ParseDigest("abcd")
	require.Error(t, err)
	_, err = gmerkle.ParseDigest("zz")
	require.Error(t, err)
}

func values(vs ...string) [][]byte {
	out := make([][]byte, len(vs))
	for i, v := range vs {
		out[i] = []byte(v)
	}
	return out
}

func numbered(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("leaf %d", i))
	}
	return out
}
