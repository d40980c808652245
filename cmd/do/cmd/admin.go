package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func AdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrators",
	}

	setAdmin := func(use, short string, isAdmin bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <email>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd.Context())
				if err != nil {
					return err
				}
				defer func() { _ = a.Close() }()

				user, err := a.UserService.ByEmail(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("no user with email %s: %w", args[0], err)
				}
				profile, err := a.UserService.SetAdmin(cmd.Context(), user.ID, isAdmin)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is_admin=%t\n", user.Email, profile.IsAdmin)
				return nil
			},
		}
	}

	cmd.AddCommand(setAdmin("promote", "Grant admin rights", true))
	cmd.AddCommand(setAdmin("demote", "Revoke admin rights", false))

	cmd.AddCommand(&cobra.Command{
		Use:   "users [search]",
		Short: "List users with their share usage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var search string
			if len(args) == 1 {
				search = args[0]
			}
			users, err := a.UserService.Users(cmd.Context(), search)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tADMIN\tFILES\tSIZE\tJOINED")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\t%s\n",
					u.ID, u.DisplayName(), u.IsAdmin, u.FileCount,
					humanize.IBytes(uint64(u.TotalSize)), humanize.Time(u.CreatedAt))
			}
			return tw.Flush()
		},
	})

	return cmd
}
