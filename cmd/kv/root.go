package kv

import (
	"github.com/ValentinKolb/bKV/cmd/util"
	"github.com/ValentinKolb/bKV/rpc/client"
	"github.com/ValentinKolb/bKV/rpc/transport/http"
	"github.com/spf13/cobra"
)

var (
	rpcDB *client.RPCDB

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value operations against a shard of a bKV server",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	util.SetupRPCClientFlags(KeyValueCommands)

	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(rmCmd)
	KeyValueCommands.AddCommand(flushCmd)
	KeyValueCommands.AddCommand(pendingCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the RPC client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitLogging(); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	rpcDB, err = client.NewRPCDB(
		util.GetShardID(),
		*util.GetClientConfig(),
		http.NewHttpClientTransport(),
		s,
	)
	return err
}

func closeKVClient(_ *cobra.Command, _ []string) error {
	if rpcDB == nil {
		return nil
	}
	return rpcDB.Close()
}
