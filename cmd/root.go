package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/bKV/cmd/kv"
	"github.com/ValentinKolb/bKV/cmd/notes"
	"github.com/ValentinKolb/bKV/cmd/serve"
	"github.com/ValentinKolb/bKV/cmd/util"
	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "bkv",
		Short: "debounced key-value store",
		Long: fmt.Sprintf(`bKV (v%s)

A key-value persistence layer that coalesces bursts of writes per key
and persists only the last value once the key has been quiet.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of bKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bKV v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(notes.NotesCommands)
	RootCmd.AddCommand(versionCmd)

	RootCmd.PersistentFlags().String("serializer", "binary", util.WrapString("serializer to use (binary, json, gob), append +snappy for compression"))
	util.SetupLogFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	err := RootCmd.Execute()
	common.SyncLoggers()
	if err != nil {
		os.Exit(1)
	}
}
