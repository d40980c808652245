package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NotifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Send pending download and expiry notifications once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			result, err := a.NotificationService.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "access notifications: %d\nexpiry notifications: %d\n",
				result.AccessNotifications, result.ExpiryNotifications)
			return nil
		},
	}
}
