package notes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/bKV/cmd/util"
	"github.com/ValentinKolb/bKV/lib/db"
	"github.com/ValentinKolb/bKV/lib/db/engines/file"
	"github.com/ValentinKolb/bKV/lib/db/engines/sqlite"
	"github.com/ValentinKolb/bKV/lib/notes"
	"github.com/ValentinKolb/bKV/lib/store/dstore"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logger.GetLogger("cmd")

var (
	database    db.KVDB
	storage     *dstore.Store
	collection  *notes.Notes
	labelsIndex *notes.Labels

	// NotesCommands represents the notes command group
	NotesCommands = &cobra.Command{
		Use:                "notes",
		Short:              "A small notes app persisting through a local debounced store",
		Long:              "Manage notes stored in a local directory. All changes go through a debounced store and are flushed before the command exits.",
		PersistentPreRunE: openNotes,
	}
)

func init() {
	key := "notes-dir"
	NotesCommands.PersistentFlags().String(key, defaultNotesDir(), util.WrapString("Directory holding the notes"))

	key = "notes-backend"
	NotesCommands.PersistentFlags().String(key, "file", util.WrapString("Engine holding the notes (file, sqlite)"))

	key = "debounce-ms"
	NotesCommands.PersistentFlags().Int64(key, int64(dstore.DefaultDebounce/time.Millisecond), util.WrapString("Quiet period in milliseconds before a change is written"))

	NotesCommands.AddCommand(addCmd)
	NotesCommands.AddCommand(editCmd)
	NotesCommands.AddCommand(listCmd)
	NotesCommands.AddCommand(showCmd)
	NotesCommands.AddCommand(searchCmd)
	NotesCommands.AddCommand(rmCmd)
	NotesCommands.AddCommand(restoreCmd)
	NotesCommands.AddCommand(purgeCmd)
	NotesCommands.AddCommand(pinCmd)
	NotesCommands.AddCommand(archiveCmd)
	NotesCommands.AddCommand(labelsCmd)

	closeAfterRun(NotesCommands)
}

// closeAfterRun makes cmd and its children close the store once RunE returned,
// whether it failed or not. Cobra skips post-run hooks after an error.
func closeAfterRun(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			err := run(c, args)
			return errors.Join(err, closeNotes(c, args))
		}
	}
	for _, child := range cmd.Commands() {
		closeAfterRun(child)
	}
}

func defaultNotesDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "bkv", "notes")
	}
	return "notes"
}

// openDB opens the engine named by the notes-backend flag in dir
func openDB(backend, dir string) (db.KVDB, error) {
	switch backend {
	case "file":
		return file.NewFileDB(&file.DBOptions{Dir: dir, Compress: true})
	case "sqlite":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create notes dir: %w", err)
		}
		return sqlite.NewSQLiteDB(filepath.Join(dir, "notes.db"))
	default:
		return nil, fmt.Errorf("invalid notes backend %q, must be one of file, sqlite", backend)
	}
}

// writable reports whether dir still exists. Without it the store degrades to a no-op.
func writable(dir string) func() bool {
	return func() bool {
		info, err := os.Stat(dir)
		return err == nil && info.IsDir()
	}
}

func openNotes(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitLogging(); err != nil {
		return err
	}

	dir := viper.GetString("notes-dir")
	var err error
	database, err = openDB(viper.GetString("notes-backend"), dir)
	if err != nil {
		return err
	}

	storage = dstore.NewDebouncedStore(database, &dstore.Options{
		Debounce:  time.Duration(viper.GetInt64("debounce-ms")) * time.Millisecond,
		Available: writable(dir),
		Name:      "notes",
	})

	ctx := commandContext(cmd)
	if collection, err = notes.Open(ctx, storage, nil); err != nil {
		return errors.Join(err, closeNotes(cmd, nil))
	}
	if labelsIndex, err = notes.OpenLabels(ctx, storage, nil); err != nil {
		return errors.Join(err, closeNotes(cmd, nil))
	}
	return nil
}

// closeNotes writes every pending change before the process exits
func closeNotes(cmd *cobra.Command, _ []string) error {
	if storage == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), 10*time.Second)
	defer cancel()

	var failed error
	for _, result := range storage.Close(ctx) {
		log.Debugf("%s", result)
		if !result.Ok() && failed == nil {
			failed = fmt.Errorf("failed to save %s: %w", result.Key, result.Err)
		}
	}
	if err := database.Close(); err != nil && failed == nil {
		failed = err
	}
	storage, database = nil, nil
	collection, labelsIndex = nil, nil
	return failed
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
