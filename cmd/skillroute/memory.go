package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillroute/pkg/memory"
	"github.com/jingkaihe/skillroute/pkg/presenter"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Read and append persona memory",
	Long: `Persona memory is an append-only notebook per key. The router attaches the notes
stored under the top document's name to every payload it assembles.

The backend is chosen with --memory (or memory.backend) and defaults to none.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var memoryReadCmd = &cobra.Command{
	Use:   "read <key>",
	Short: "Print the notes stored under a key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runMemoryReadCmd(cmd.Context(), args[0]), "failed to read memory")
	},
}

var memoryAppendCmd = &cobra.Command{
	Use:   "append <key> [text]",
	Short: "Append a note under a key",
	Long: `Append a note under a key. The text is read from stdin when it is not given.

Examples:
  skillroute --memory sqlite memory append qa-engineer "The login page uses data-testid attributes."
  git log -1 --format=%B | skillroute --memory files memory append release-manager`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runMemoryAppendCmd(cmd.Context(), args), "failed to append memory")
	},
}

var memoryKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys that have notes",
	Run: func(cmd *cobra.Command, _ []string) {
		exitOnError(runMemoryKeysCmd(cmd.Context()), "failed to list memory keys")
	},
}

var memoryDBCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the sqlite memory database",
	Long:  `Commands for the schema of the sqlite memory backend (status, rollback).`,
}

var memoryDBStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show memory database migration status",
	Run: func(cmd *cobra.Command, _ []string) {
		exitOnError(runMemoryDBStatusCmd(cmd.Context(), os.Stdout), "failed to get migration status")
	},
}

var memoryDBRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back the last memory database migration",
	Long: `Rolls back the most recently applied migration of the sqlite memory database.
The memory commands and the router apply it again the next time they open it.`,
	Run: func(cmd *cobra.Command, _ []string) {
		exitOnError(runMemoryDBRollbackCmd(cmd.Context()), "failed to roll back migration")
	},
}

func init() {
	memoryCmd.AddCommand(memoryReadCmd)
	memoryCmd.AddCommand(memoryAppendCmd)
	memoryCmd.AddCommand(memoryKeysCmd)
	memoryDBCmd.AddCommand(memoryDBStatusCmd)
	memoryDBCmd.AddCommand(memoryDBRollbackCmd)
	memoryCmd.AddCommand(memoryDBCmd)
}

// mustMemory opens the configured backend and refuses "none"
func mustMemory(ctx context.Context) memory.Store {
	store := mustOpenMemory(ctx, mustConfig())
	if store == nil {
		presenter.Error(errors.New("memory backend is none"), "choose a backend with --memory or memory.backend")
		os.Exit(1)
	}
	return store
}

func runMemoryReadCmd(ctx context.Context, key string) error {
	store := mustMemory(ctx)
	defer store.Close()

	entries, err := store.Read(ctx, key)
	if memory.IsNotFound(err) {
		presenter.Warning(fmt.Sprintf("no memory stored for %s", key))
		return nil
	}
	if err != nil {
		return err
	}

	for i, e := range entries {
		if i > 0 {
			presenter.Separator()
		}
		presenter.Section(e.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println(e.Text)
	}
	return nil
}

func runMemoryAppendCmd(ctx context.Context, args []string) error {
	key := args[0]
	var text string
	if len(args) == 2 {
		text = args[1]
	} else {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return errors.Wrap(err, "failed to read note from stdin")
		}
		text = strings.TrimRight(string(b), "\n")
	}

	store := mustMemory(ctx)
	defer store.Close()

	entry, err := store.Append(ctx, key, text)
	if err != nil {
		return err
	}
	presenter.Success(fmt.Sprintf("stored memory %s for %s", entry.ID, entry.Key))
	return nil
}

func runMemoryKeysCmd(ctx context.Context) error {
	store := mustMemory(ctx)
	defer store.Close()

	keys, err := store.Keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		presenter.Warning("no memory stored")
		return nil
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

// openSQLiteMemory opens the configured backend, which must be sqlite,
// without migrating it
func openSQLiteMemory(ctx context.Context) (*memory.SQLite, error) {
	cfg := mustConfig()
	if !strings.EqualFold(strings.TrimSpace(cfg.Memory.Backend), memory.BackendSQLite) {
		return nil, errors.Errorf("memory db needs the %s backend, got %q", memory.BackendSQLite, cfg.Memory.Backend)
	}
	return memory.InspectSQLite(ctx, cfg.Memory.Path)
}

func runMemoryDBStatusCmd(ctx context.Context, w io.Writer) error {
	store, err := openSQLiteMemory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	states, err := store.Schema(ctx)
	if err != nil {
		return err
	}
	writeMigrationStatus(w, states)
	return nil
}

func writeMigrationStatus(w io.Writer, states []memory.MigrationState) {
	fmt.Fprintln(w, "Memory Database Migration Status")
	fmt.Fprintln(w, "================================")

	applied := 0
	for _, st := range states {
		mark := "[ ]"
		if st.Applied {
			mark = "[✓]"
			applied++
		}
		fmt.Fprintf(w, "%s %d - %s\n", mark, st.Version, st.Description)
	}
	fmt.Fprintf(w, "\nApplied: %d/%d migrations\n", applied, len(states))
}

func runMemoryDBRollbackCmd(ctx context.Context) error {
	store, err := openSQLiteMemory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	last, err := store.RollbackSchema(ctx)
	if err != nil {
		return err
	}
	if last == nil {
		presenter.Warning("No migrations to rollback")
		return nil
	}
	presenter.Success(fmt.Sprintf("Rolled back migration %d: %s", last.Version, last.Description))
	return nil
}
