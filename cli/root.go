// Package cli is the library command surface. Every command opens the
// database named by LIBRARY_DB_PATH (or --db), runs one engine operation and
// exits.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-lending/config"
	"library-lending/library"
)

type app struct {
	stdin  io.Reader
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	dbPath  string
	verbose bool

	cfg *config.Config
	log *slog.Logger
	lm  *library.LibraryManager
}

// NewRootCommand builds the command tree reading prompts from in and
// printing to out. Log lines go to errOut.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{stdin: in, in: bufio.NewReader(in), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "library",
		Short: "library - lending and reading tracker",
		Long: `library manages a small lending library: members sign up, add books,
borrow and return copies, and track what they read and love.

Use "library [command] --help" to see the options of a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides LIBRARY_DB_PATH)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every operation at debug level")

	root.AddCommand(
		a.startCmd(),
		a.signUpCmd(), a.deleteUserCmd(), a.signInCmd(),
		a.addBookCmd(), a.deleteBookCmd(), a.listBooksCmd(),
		a.searchByNameCmd(), a.searchByAuthorCmd(),
		a.borrowBookCmd(), a.returnBookCmd(), a.markReadCmd(), a.favBookCmd(),
		a.myBooksCmd(), a.statisticsCmd(),
		a.mostReadBooksCmd(), a.mostReadGenresCmd(), a.mostReadAuthorsCmd(), a.recentlyAddedCmd(),
		a.serveCmd(),
	)
	return root
}

// Execute runs the command tree against the process streams.
func Execute() {
	if err := NewRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run opens the library around fn and always closes it again.
func (a *app) run(fn func(ctx context.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(); err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd.Context(), args)
	}
}

func (a *app) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	a.cfg = cfg
	a.log = config.NewLogger(cfg, a.errOut)

	lm, err := library.NewLibraryManager(cfg.DBPath, a.log, library.WithPasswordScheme(cfg.Passwords()))
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	a.lm = lm
	return nil
}

func (a *app) close() error {
	if a.lm == nil {
		return nil
	}
	err := a.lm.Close()
	a.lm = nil
	return err
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// prompt prints label and returns the next trimmed input line.
func (a *app) prompt(label string) (string, error) {
	a.printf("%s", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptInt keeps asking until the answer parses as an integer.
func (a *app) promptInt(label string) (int, error) {
	for {
		s, err := a.prompt(label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, nil
		}
		a.printf("Error: %q is not a valid integer.\n", s)
	}
}

// readPassword reads a password with masking when stdin is a terminal, or a
// plain line otherwise.
func (a *app) readPassword(label string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.printf("%s", label)
		b, err := term.ReadPassword(int(f.Fd()))
		a.printf("\n")
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return a.prompt(label)
}

// passwordArg takes the password from args[i] or prompts for it.
func (a *app) passwordArg(args []string, i int, label string) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	return a.readPassword(label)
}

func parseBookID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid book ID: %s", s)
	}
	return id, nil
}

// TruncateString shortens s to at most maxLen runes, marking the cut with
// an ellipsis when there is room for one.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
