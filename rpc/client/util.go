package client

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/ValentinKolb/bKV/rpc/serializer"
	"github.com/ValentinKolb/bKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("rpc/client")

// rpcClientAdapter stores everything needed to talk to one shard
type rpcClientAdapter struct {
	shardId    uint64
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke sends req to the shard and decodes the response.
// An error response, or a response of another type than the request, is returned as error.
// A response of the right type that carries an error message is returned together with that error.
func (a *rpcClientAdapter) invoke(ctx context.Context, req *common.Message) (*common.Message, error) {
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	respBytes, err := a.transport.Send(ctx, a.shardId, reqBytes)
	if err != nil {
		return nil, err
	}

	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}

	if resp.MsgType == common.MsgTError {
		return nil, fmt.Errorf("shard %d: %s", a.shardId, resp.Err)
	}
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("shard %d: unexpected response type %s for %s request", a.shardId, resp.MsgType, req.MsgType)
	}
	if resp.Err != "" {
		return resp, fmt.Errorf("shard %d: %s", a.shardId, resp.Err)
	}
	return resp, nil
}
