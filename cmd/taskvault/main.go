// Package main implements the taskvault CLI.
//
// taskvault keeps a small task list encrypted at rest, with an integrity
// digest to detect tampering and a backup of the prior state before every
// write. Each subcommand performs one operation against the store and
// exits; invalid input is reported as an error, never retried in a loop.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taskvault/taskvault/internal/config"
	"github.com/taskvault/taskvault/internal/storage"
	"github.com/taskvault/taskvault/internal/tasks"
)

var (
	// configFile is the optional --config flag value.
	configFile string

	// dataDir overrides the configured data directory when set.
	dataDir string

	// verbose enables debug logging.
	verbose bool

	// svc is built once in rootCmd's PersistentPreRunE and shared by the
	// subcommands.
	svc *tasks.Service
)

var rootCmd = &cobra.Command{
	Use:   "taskvault",
	Short: "Encrypted local task list",
	Long: `taskvault is a local, single-user task list stored encrypted at rest.

Every save first backs up the prior store state and records an integrity
digest of the plaintext, so tampering and corruption are detected on load.
The encryption key is generated into a key file on first use, or supplied
via the ENCRYPTION_KEY environment variable (key_source: env).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg = configWithDataDir(cfg, dataDir)
			if err := cfg.Resolve(); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		if verbose {
			cfg.Verbose = true
		}

		level := slog.LevelInfo
		if cfg.Verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		store, err := storage.NewRecordStoreFromConfig(cfg, logger)
		if err != nil {
			return err
		}
		svc = tasks.NewService(store)
		return nil
	},
}

// configWithDataDir points the store, database and key artifacts at their
// default names inside dir. The flag wins over any configured paths, since
// mixing a new data dir with old artifact paths would split the store.
func configWithDataDir(cfg config.Config, dir string) config.Config {
	defaults := config.Default()
	cfg.DataDir = dir
	cfg.StorePath = defaults.StorePath
	cfg.SQLitePath = defaults.SQLitePath
	cfg.KeyFile = defaults.KeyFile
	return cfg
}

var addCmd = &cobra.Command{
	Use:   "add <title> <description>",
	Short: "Add a new task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := svc.Add(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Task %q added with ID %d.\n", task.Title, task.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, err := svc.List()
		if err != nil {
			return err
		}
		if len(collection) == 0 {
			fmt.Println("No tasks available.")
			return nil
		}
		for _, task := range collection {
			fmt.Printf("ID: %d, Title: %s, Description: %s, Status: %s\n",
				task.ID, task.Title, task.Description, task.Status)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Update a task's status ('not done', 'in progress' or 'done')",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		status := storage.Status(args[1])
		if err := svc.SetStatus(id, status); err != nil {
			return err
		}
		fmt.Printf("Task ID %d status updated to %q.\n", id, status)
		return nil
	},
}

var retitleCmd = &cobra.Command{
	Use:   "retitle <id> <title>",
	Short: "Change a task's title",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		if err := svc.SetTitle(id, args[1]); err != nil {
			return err
		}
		fmt.Printf("Task ID %d title updated.\n", id)
		return nil
	},
}

var redescribeCmd = &cobra.Command{
	Use:   "redescribe <id> <description>",
	Short: "Change a task's description",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		if err := svc.SetDescription(id, args[1]); err != nil {
			return err
		}
		fmt.Printf("Task ID %d description updated.\n", id)
		return nil
	},
}

// parseTaskID converts a CLI argument into a positive task id.
func parseTaskID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task id %q: expected a positive integer", arg)
	}
	return id, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is ./taskvault.yaml or $HOME/taskvault.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"directory for the store, key and backup files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(retitleCmd)
	rootCmd.AddCommand(redescribeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
