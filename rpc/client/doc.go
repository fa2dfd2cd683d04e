// Package client provides RPCDB, the client side of the bKV RPC protocol.
//
// RPCDB implements db.KVDB against one shard of a bKV server, so a remote shard can
// be used like any local engine, including as the database beneath a local
// debounced store. On top of KVDB it exposes the flush controller of the shard
// (FlushAll, PendingCount) and Info.
//
// Usage:
//
//	c, err := client.NewRPCDB(
//		1,
//		common.ClientConfig{Endpoints: []string{"localhost:8080"}, TimeoutSecond: 5, RetryCount: 2},
//		http.NewHttpClientTransport(),
//		serializer.NewBinarySerializer(),
//	)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	err = c.Set(ctx, "toonnotes-notes", `{"state":{},"version":1}`)
//	written, failed, err := c.FlushAll(ctx)
package client
