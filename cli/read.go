package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/coursewire/coursewire-go/config"
	"github.com/coursewire/coursewire-go/rest"
)

var readCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark one notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid notification id %q", args[0])
		}

		client := restClient()
		if err := client.MarkRead(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("Notification %d marked as read\n", id)
		return nil
	},
}

var readAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark all notifications as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := restClient()
		if err := client.MarkAllRead(context.Background()); err != nil {
			return err
		}
		fmt.Println("All notifications marked as read")
		return nil
	},
}

func restClient() *rest.Client {
	cfg := config.GetClientConfig()
	return rest.NewClient(cfg.API.URL, cfg.API.Timeout, credentialStore())
}
