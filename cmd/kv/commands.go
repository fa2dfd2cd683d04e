package kv

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. On a dstore shard the value is persisted once the key has been quiet for the debounce window.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcDB.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			resp, ok, err := rpcDB.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			return nil
		},
	}
	rmCmd = &cobra.Command{
		Use:     "rm [key]",
		Aliases: []string{"del"},
		Short:   "Removes a key, dropping any value not yet persisted",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcDB.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
	flushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Persists every pending value of the shard now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			written, failed, err := rpcDB.FlushAll(cmd.Context())
			fmt.Printf("flushed=%d, failed=%d\n", written, len(failed))
			if len(failed) > 0 {
				fmt.Printf("failed keys: %s\n", strings.Join(failed, ", "))
			}
			return err
		},
	}
	pendingCmd = &cobra.Command{
		Use:   "pending",
		Short: "Prints the number of values not yet persisted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := rpcDB.PendingCount(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("pending=%d\n", n)
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information about the shard and its database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := rpcDB.Info(cmd.Context())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)
