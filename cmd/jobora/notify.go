package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	testEmail string
	testPhone string
	testUser  string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification through each configured channel",
	RunE:  runNotifyTest,
}

func init() {
	notifyTestCmd.Flags().StringVar(&testEmail, "email", "", "address to send the test email to")
	notifyTestCmd.Flags().StringVar(&testPhone, "phone", "", "number to send the test SMS to")
	notifyTestCmd.Flags().StringVar(&testUser, "user", "test-user", "user id for the test push")
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	email, push, sms := buildSenders(cfg, httpClient, logger)
	ctx := context.Background()

	if testEmail != "" {
		if err := email.SendEmail(ctx, testEmail, "Jobora test notification",
			"<p>This is a test notification from Jobora.</p>",
			"This is a test notification from Jobora."); err != nil {
			logger.Error("test email failed", "error", err)
		} else {
			logger.Info("test email sent", "to", testEmail)
		}
	}

	if err := push.SendPush(ctx, testUser, "Jobora test", "This is a test notification from Jobora.", cfg.Notification.BaseURL); err != nil {
		logger.Error("test push failed", "error", err)
	} else {
		logger.Info("test push sent", "user", testUser)
	}

	if testPhone != "" {
		if err := sms.SendSMS(ctx, testPhone, "Jobora test notification"); err != nil {
			logger.Error("test sms failed", "error", err)
		} else {
			logger.Info("test sms sent", "to", testPhone)
		}
	}

	return nil
}
