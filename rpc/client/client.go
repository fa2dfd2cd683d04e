package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/bKV/lib/db"
	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/ValentinKolb/bKV/rpc/serializer"
	"github.com/ValentinKolb/bKV/rpc/transport"
)

// NewRPCDB connects transport and returns a database backed by a shard of a bKV server.
// Since it satisfies db.KVDB it can be used as engine beneath a local store.
func NewRPCDB(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCDB, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}
	log.Debugf("connected to shard %d", shardId)

	return &RPCDB{
		rpcClientAdapter{
			shardId:    shardId,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// RPCDB is a db.KVDB talking to a remote shard.
// How durable a successful Set is depends on the store type of the shard:
// a debounced shard acknowledges before the value is persisted.
type RPCDB struct {
	rpcClientAdapter
}

var _ db.KVDB = (*RPCDB)(nil)

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (c *RPCDB) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	resp, err := c.invoke(ctx, common.NewGetItemRequest(key))
	if err != nil {
		return "", false, err
	}
	return string(resp.Value), resp.Ok, nil
}

func (c *RPCDB) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.invoke(ctx, common.NewSetItemRequest(key, []byte(value)))
	return err
}

func (c *RPCDB) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.invoke(ctx, common.NewRemoveItemRequest(key))
	return err
}

func (c *RPCDB) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureGet | db.FeatureSet | db.FeatureDelete
	return supportedFeatures&feature == feature
}

// GetInfo reports the remote engine. If the shard cannot be reached only the
// type is set and Metadata holds the error.
func (c *RPCDB) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType:            db.ImplRemote,
		SupportedFeatures: []db.Feature{db.FeatureGet, db.FeatureSet, db.FeatureDelete},
	}

	remote, err := c.Info(context.Background())
	if err != nil {
		info.Metadata = map[string]string{"error": err.Error()}
		return info
	}
	info.SizeBytes = remote.DB.SizeBytes
	info.Metadata = remote
	return info
}

func (c *RPCDB) Close() error {
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Flush Control
// --------------------------------------------------------------------------

// FlushAll asks the shard to write all pending values now.
// It returns the number of written keys and the keys whose write failed.
// err is set if the request failed or any key failed.
func (c *RPCDB) FlushAll(ctx context.Context) (written int, failed []string, err error) {
	resp, err := c.invoke(ctx, common.NewFlushRequest())
	if resp == nil {
		return 0, nil, err
	}
	failed, decodeErr := resp.FailedKeys()
	if decodeErr != nil && err == nil {
		err = decodeErr
	}
	return int(resp.Count), failed, err
}

// PendingCount returns the number of keys the shard has not persisted yet
func (c *RPCDB) PendingCount(ctx context.Context) (int, error) {
	resp, err := c.invoke(ctx, common.NewPendingRequest())
	if err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

// Info returns the pending count and the engine info of the shard
func (c *RPCDB) Info(ctx context.Context) (common.ShardInfo, error) {
	var info common.ShardInfo
	resp, err := c.invoke(ctx, common.NewInfoRequest())
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return info, fmt.Errorf("failed to decode info: %w", err)
	}
	return info, nil
}
