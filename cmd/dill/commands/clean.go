package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/0x5457/dill/internal/config"
	"github.com/spf13/cobra"
)

// SQLite keeps these next to the database file in WAL mode.
var sidecarSuffixes = []string{"", "-wal", "-shm", "-journal"}

func NewCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the local store file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			removed, err := Clean(cfg)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", cfg.Store.Path)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean")
			}
			return nil
		},
	}
}

// Clean deletes the store file of the SQLite backends. It reports whether
// the database file existed.
func Clean(cfg *config.Config) (bool, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLVec, config.BackendSQLite:
	default:
		return false, fmt.Errorf("clean only removes local store files, not the %s backend", cfg.Store.Backend)
	}
	removed := false
	for _, suffix := range sidecarSuffixes {
		err := os.Remove(cfg.Store.Path + suffix)
		switch {
		case err == nil:
			if suffix == "" {
				removed = true
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return removed, fmt.Errorf("remove %s: %w", cfg.Store.Path+suffix, err)
		}
	}
	return removed, nil
}
