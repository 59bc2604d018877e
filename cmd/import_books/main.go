package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/cli"
	"library-lending/config"
	"library-lending/library"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		dbPath string
		fresh  bool
	)
	cmd := &cobra.Command{
		Use:   "import_books CSV_FILE USERNAME",
		Short: "Seed the catalog from a name,author,pages,genre CSV file",
		Long: `import_books adds every row of CSV_FILE on behalf of USERNAME. Titles that
already exist get one more copy. With --fresh the database files are removed
first and USERNAME is signed up with an empty password.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			return run(cmd.Context(), cfg, args[0], args[1], fresh)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides LIBRARY_DB_PATH)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "remove existing database files before importing")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, csvPath, adder string, fresh bool) error {
	if fresh {
		fmt.Println("Cleaning up existing database files...")
		for _, file := range []string{cfg.DBPath, cfg.DBPath + "-shm", cfg.DBPath + "-wal"} {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
			}
		}
	}

	log := config.NewLogger(cfg, os.Stderr)
	manager, err := library.NewLibraryManager(cfg.DBPath, log, library.WithPasswordScheme(cfg.Passwords()))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer manager.Close()

	if fresh {
		if _, err := manager.SignUp(ctx, adder, ""); err != nil {
			return err
		}
	}

	fmt.Printf("Importing books from %s as %s...\n", csvPath, adder)
	sum, err := manager.ImportBooksFromFile(ctx, csvPath, adder)
	if err != nil {
		return err
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("New titles: %d\n", sum.Created)
	fmt.Printf("Extra copies: %d\n", sum.Incremented)
	fmt.Printf("Skipped: %d\n", len(sum.Skipped))
	for _, s := range sum.Skipped {
		fmt.Printf("  %s\n", s)
	}

	books, err := manager.GetAllBooks(ctx)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}
	if len(books) == 0 {
		return nil
	}
	fmt.Println("\nCatalog:")
	fmt.Printf("%-4s %-50s %-30s %s\n", "ID", "Name", "Author", "Qty")
	fmt.Println(strings.Repeat("-", 92))
	for _, b := range books {
		fmt.Printf("%-4d %-50s %-30s %d\n", b.ID, cli.TruncateString(b.Name, 50), cli.TruncateString(b.Author, 30), b.Quantity)
	}
	return nil
}
