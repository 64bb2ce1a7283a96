package gereedsolomon_test

import (
	"context"
	"testing"

	"github.com/gordian-engine/gavid/gerasure"
	"github.com/gordian-engine/gavid/gerasure/gerasuretest"
	"github.com/gordian-engine/gavid/gerasure/gereedsolomon"
	"github.com/gordian-engine/gavid/gshard"
)

func TestReconstructionCompliance(t *testing.T) {
	gerasuretest.TestFixedRateErasureReconstructionCompliance(
		t,
		func(origData []byte, nData, nParity int) (gerasure.Encoder, gerasure.Reconstructor) {
			// The sharder pads the data before splitting it,
			// so the original data is a prefix of the joined data shards.
			enc, err := gshard.NewSharder(gshard.Config{
				NumNodes:  nData + nParity,
				NumFaults: nParity,
			})
			if err != nil {
				panic(err)
			}

			// We don't know the shard size until we encode.
			allShards, err := enc.Encode(context.Background(), origData)
			if err != nil {
				panic(err)
			}
			shardSize := len(allShards[0])

			rcons, err := gereedsolomon.NewReconstructor(nData, nParity, shardSize)
			if err != nil {
				panic(err)
			}

			return enc, rcons
		},
	)
}

func TestCodecCompliance(t *testing.T) {
	gerasuretest.TestShardCodecCompliance(
		t,
		func(nData, nParity int) (gerasure.ShardCodec, error) {
			return gereedsolomon.NewCodec(nData, nParity)
		},
	)
}
