package server

import (
	"context"

	"github.com/ValentinKolb/bKV/lib/db"
	"github.com/ValentinKolb/bKV/lib/store"
	"github.com/ValentinKolb/bKV/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request against the store of a shard and returns a response.
	// database is the engine beneath the store, used for diagnostics only.
	// If an error occurs, it should be set in the response
	Handle(ctx context.Context, req *common.Message, store store.IFlushStore, database db.KVDB) (resp *common.Message)
}
