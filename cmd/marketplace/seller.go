package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iamsyg/artisian-dashboard/internal/app"
	"github.com/iamsyg/artisian-dashboard/internal/config"
	"github.com/iamsyg/artisian-dashboard/pkg/logger"
)

var sellerCmd = &cobra.Command{
	Use:   "seller",
	Short: "Manage seller records",
}

// marketplace seller verify <user_id>
var sellerVerifyCmd = &cobra.Command{
	Use:   "verify <user_id>",
	Short: "Mark a seller as verified so it may list products",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setVerified(cmd, args[0], true)
	},
}

// marketplace seller unverify <user_id>
var sellerUnverifyCmd = &cobra.Command{
	Use:   "unverify <user_id>",
	Short: "Revoke a seller's verification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setVerified(cmd, args[0], false)
	},
}

func init() {
	sellerCmd.AddCommand(sellerVerifyCmd)
	sellerCmd.AddCommand(sellerUnverifyCmd)
}

func setVerified(cmd *cobra.Command, userID string, verified bool) error {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	log := logger.New("marketplace", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	seller, err := app.SetSellerVerified(ctx, cfg, log, userID, verified)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seller %s (user %s) verified=%t\n", seller.ID, seller.UserID, seller.IsSeller)
	return nil
}
