package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// bookAndUser is the shared BOOK_ID USERNAME argument shape.
func (a *app) bookAndUser(fn func(ctx context.Context, bookID int64, user string) error) func(*cobra.Command, []string) error {
	return a.run(func(ctx context.Context, args []string) error {
		id, err := parseBookID(args[0])
		if err != nil {
			return err
		}
		return fn(ctx, id, args[1])
	})
}

func (a *app) borrowBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow_book BOOK_ID USERNAME",
		Short: "Borrow one copy of a book",
		Args:  cobra.ExactArgs(2),
		RunE: a.bookAndUser(func(ctx context.Context, bookID int64, user string) error {
			if _, err := a.lm.Borrow(ctx, bookID, user); err != nil {
				return err
			}
			a.printf("Book borrowed successfully.\n")
			return nil
		}),
	}
}

func (a *app) returnBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return_book BOOK_ID USERNAME",
		Short: "Return a borrowed copy",
		Args:  cobra.ExactArgs(2),
		RunE: a.bookAndUser(func(ctx context.Context, bookID int64, user string) error {
			res, err := a.lm.Return(ctx, bookID, user)
			if err != nil {
				return err
			}
			if res.Degenerate {
				a.printf("Book returned successfully (closed an unattributed loan).\n")
				return nil
			}
			a.printf("Book returned successfully.\n")
			return nil
		}),
	}
}

func (a *app) markReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark_read BOOK_ID USERNAME",
		Short: "Record that a user read a book",
		Args:  cobra.ExactArgs(2),
		RunE: a.bookAndUser(func(ctx context.Context, bookID int64, user string) error {
			if _, err := a.lm.MarkRead(ctx, bookID, user); err != nil {
				return err
			}
			a.printf("Book marked as read successfully.\n")
			return nil
		}),
	}
}

func (a *app) favBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fav_book BOOK_ID USERNAME",
		Short: "Add a book to a user's favorites",
		Args:  cobra.ExactArgs(2),
		RunE: a.bookAndUser(func(ctx context.Context, bookID int64, user string) error {
			if _, err := a.lm.Favorite(ctx, bookID, user); err != nil {
				return err
			}
			a.printf("Book added to favorites successfully.\n")
			return nil
		}),
	}
}

func (a *app) myBooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "my_books USERNAME",
		Short: "List the books a user has read or favorited",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) error {
			shelf, err := a.lm.Reports.MyBooks(ctx, args[0])
			if err != nil {
				return err
			}
			if len(shelf) == 0 {
				a.printf("You haven't read or favorited any books yet.\n")
				return nil
			}
			a.printf("Your Books:\n")
			for _, e := range shelf {
				a.printf("Book ID: %d, Name: %s, Author: %s, Status: %s\n", e.BookID, e.Name, e.Author, e.Status)
			}
			return nil
		}),
	}
}

func (a *app) statisticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "statistics USERNAME",
		Short: "Show a user's reading statistics",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) error {
			s, err := a.lm.Reports.Statistics(ctx, args[0])
			if err != nil {
				return err
			}
			a.printf("Your Reading Statistics:\n")
			a.printf("Number of Books Read: %d\n", s.BooksRead)
			a.printf("Number of Authors Read: %d\n", s.AuthorsRead)
			a.printf("Number of Genres Read: %d\n", s.GenresRead)
			a.printf("Total Pages Read: %d\n", s.PagesRead)
			return nil
		}),
	}
}
