package server

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/bKV/lib/db"
	"github.com/ValentinKolb/bKV/lib/store"
	"github.com/ValentinKolb/bKV/rpc/common"
)

// NewIStoreServerAdapter creates an adapter that maps messages onto store.IFlushStore calls
func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(ctx context.Context, req *common.Message, s store.IFlushStore, database db.KVDB) *common.Message {
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	switch req.MsgType {
	case common.MsgTGetItem:
		val, ok := s.GetItem(ctx, req.Key)
		if !ok {
			return common.NewGetItemResponse(nil, false)
		}
		return common.NewGetItemResponse([]byte(val), true)

	case common.MsgTSetItem:
		s.SetItem(ctx, req.Key, string(req.Value))
		return common.NewSetItemResponse()

	case common.MsgTRemoveItem:
		s.RemoveItem(ctx, req.Key)
		return common.NewRemoveItemResponse()

	case common.MsgTFlush:
		results := s.FlushAll(ctx)
		var failed []string
		for _, r := range results {
			if !r.Ok() {
				failed = append(failed, r.Key)
			}
		}
		return common.NewFlushResponse(len(results), failed)

	case common.MsgTPending:
		return common.NewPendingResponse(s.PendingCount())

	case common.MsgTInfo:
		info := common.ShardInfo{Pending: s.PendingCount()}
		if database != nil {
			info.DB = database.GetInfo()
		}
		return common.NewInfoResponse(info)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
