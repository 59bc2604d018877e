package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *app) mostReadBooksCmd() *cobra.Command {
	var genre string
	cmd := &cobra.Command{
		Use:   "most_read_books",
		Short: "Show the 10 most-read books",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ []string) error {
			rows, err := a.lm.Reports.MostReadBooks(ctx, genre)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				a.printf("No read books found.\n")
				return nil
			}
			a.printf("\nMost Read Books:\n\n")
			for _, r := range rows {
				a.printf("Book ID: %d, Name: %s, Author: %s, Read Count: %d\n", r.BookID, r.Name, r.Author, r.ReadCount)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&genre, "genre", "", "only books of this genre")
	return cmd
}

func (a *app) mostReadGenresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "most_read_genres",
		Short: "Show the 5 most-read genres",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ []string) error {
			rows, err := a.lm.Reports.MostReadGenres(ctx)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				a.printf("No read genres found.\n")
				return nil
			}
			a.printf("\nMost Read Genres:\n\n")
			for _, r := range rows {
				a.printf("Genre: %s, Read Count: %d\n", r.Genre, r.ReadCount)
			}
			return nil
		}),
	}
}

func (a *app) mostReadAuthorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "most_read_authors",
		Short: "Show the 3 most-read authors",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ []string) error {
			rows, err := a.lm.Reports.MostReadAuthors(ctx)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				a.printf("No read authors found.\n")
				return nil
			}
			a.printf("\nMost Read Authors:\n\n")
			for _, r := range rows {
				a.printf("Author: %s, Read Count: %d\n", r.Author, r.ReadCount)
			}
			return nil
		}),
	}
}

func (a *app) recentlyAddedCmd() *cobra.Command {
	var genre string
	cmd := &cobra.Command{
		Use:   "recently_added",
		Short: "Show the 5 most recently added books",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ []string) error {
			rows, err := a.lm.Reports.RecentlyAdded(ctx, genre)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				a.printf("No recent books found.\n")
				return nil
			}
			a.printf("\nRecent Books:\n\n")
			for _, r := range rows {
				addedBy := "unknown"
				if r.AddedBy != nil {
					addedBy = strconv.FormatInt(*r.AddedBy, 10)
				}
				a.printf("Book ID: %d, Name: %s, Author: %s, Added: %s, Added By: %s\n",
					r.BookID, r.Name, r.Author, r.DateAdded.Format("2006-01-02 15:04"), addedBy)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&genre, "genre", "", "only books of this genre")
	return cmd
}
