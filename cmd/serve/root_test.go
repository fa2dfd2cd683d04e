package serve

import (
	"testing"

	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShards(t *testing.T) {
	shards, err := parseShards("100=dstore, 200 = lstore,")
	require.NoError(t, err)
	assert.Equal(t, []common.ServerShard{
		{ShardID: 100, Type: common.ShardTypeDebounced},
		{ShardID: 200, Type: common.ShardTypeWriteThrough},
	}, shards)

	for _, bad := range []string{"100", "x=dstore", "100=raft"} {
		_, err := parseShards(bad)
		assert.Error(t, err, bad)
	}
}
