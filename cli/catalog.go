package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/library"
)

func (a *app) addBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add_book USERNAME",
		Short: "Add a book, or one more copy of a title already on the shelf",
		Long: `Add a book on behalf of USERNAME. The name, author, page count and genre
are prompted for. Adding a title that already exists (same name and author)
increments its quantity instead.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) error {
			var (
				nb  library.NewBook
				err error
			)
			if nb.Name, err = a.prompt("Enter the name of the book: "); err != nil {
				return err
			}
			if nb.Author, err = a.prompt("Enter the author of the book: "); err != nil {
				return err
			}
			if nb.Pages, err = a.promptInt("Enter the number of pages: "); err != nil {
				return err
			}
			if nb.Genre, err = a.prompt("Enter the genre of the book: "); err != nil {
				return err
			}

			res, err := a.lm.AddBook(ctx, nb, args[0])
			if err != nil {
				return err
			}
			if res.Outcome == library.Incremented {
				a.printf("Book '%s' by %s already exists. Quantity incremented.\n", nb.Name, nb.Author)
				return nil
			}
			a.printf("Book added successfully (ID %d).\n", res.BookID)
			return nil
		}),
	}
}

func (a *app) deleteBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete_book BOOK_ID",
		Short: "Delete a book and its loans, reads and favorites",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			if err := a.lm.DeleteBook(ctx, id); err != nil {
				return err
			}
			a.printf("Book with ID %d deleted successfully.\n", id)
			return nil
		}),
	}
}

func (a *app) listBooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list_books",
		Short: "List every book in the catalog",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ []string) error {
			books, err := a.lm.GetAllBooks(ctx)
			if err != nil {
				return err
			}
			if len(books) == 0 {
				a.printf("No books in library.\n")
				return nil
			}
			a.printf("%-5s %-30s %-25s %-15s %-6s %s\n", "ID", "Name", "Author", "Genre", "Pages", "Available")
			a.printf("%s\n", strings.Repeat("-", 95))
			for _, b := range books {
				a.printf("%-5d %-30s %-25s %-15s %-6d %d\n",
					b.ID,
					TruncateString(b.Name, 30),
					TruncateString(b.Author, 25),
					TruncateString(b.Genre, 15),
					b.Pages,
					b.Quantity)
			}
			return nil
		}),
	}
}

func (a *app) printMatches(books []*library.Book, none string) {
	if len(books) == 0 {
		a.printf("%s\n", none)
		return
	}
	for _, b := range books {
		a.printf("Book ID: %d, Name: %s, Author: %s\n", b.ID, b.Name, b.Author)
	}
}

func (a *app) searchByNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search_by_name BOOK_NAME",
		Short: "Search books whose name contains BOOK_NAME",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) error {
			books, err := a.lm.Database().SearchBooksByName(ctx, args[0])
			if err != nil {
				return err
			}
			a.printMatches(books, "No books found with that name.")
			return nil
		}),
	}
}

func (a *app) searchByAuthorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search_by_author AUTHOR",
		Short: "Search books whose author contains AUTHOR",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) error {
			books, err := a.lm.Database().SearchBooksByAuthor(ctx, args[0])
			if err != nil {
				return err
			}
			a.printMatches(books, "No books found by that author.")
			return nil
		}),
	}
}
