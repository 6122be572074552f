package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/notification"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification commands",
	Long:  `Inspect the submission notice channel configured for this environment`,
}

var notifyApplicationID string

// notifyTestCmd resends the submission notice of an existing application
// through the configured sender.
var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a submission notice for an application",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		deps, err := initializeDependencies(cfg)
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer deps.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		operator := internal.Identity{ID: "cli", Role: internal.RoleAdmin}
		app, err := deps.Applications.GetApplication(ctx, notifyApplicationID, operator)
		if err != nil {
			log.Fatalf("failed to load application %s: %v", notifyApplicationID, err)
		}

		submittedAt := time.Now()
		if app.SubmittedAt != nil {
			submittedAt = *app.SubmittedAt
		}

		result := deps.Dispatcher.Dispatch(ctx, notification.Notice{
			ApplicationID:     app.ID,
			ApplicationNumber: app.ApplicationNumber,
			MemberID:          app.UserID,
			Amount:            app.Amount,
			SubmittedAt:       submittedAt,
		})
		if !result.Success {
			log.Fatalf("notice for %s was not delivered: %v", app.ApplicationNumber, result.Err)
		}
		fmt.Println("Notice delivered for", app.ApplicationNumber)
	},
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyApplicationID, "application-id", "", "application to send the notice for")
	_ = notifyTestCmd.MarkFlagRequired("application-id")
	notifyCmd.AddCommand(notifyTestCmd)
}
