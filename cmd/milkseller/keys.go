package main

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/milkseller/internal/accesskey"
	accesskeydomain "github.com/smallbiznis/milkseller/internal/accesskey/domain"
	"github.com/smallbiznis/milkseller/internal/clock"
	"github.com/smallbiznis/milkseller/internal/config"
	"github.com/smallbiznis/milkseller/internal/migration"
	"github.com/smallbiznis/milkseller/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	keyName string
	keyRole string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API access keys",
}

// keysCreateCmd bootstraps the first admin key; later keys can go through the API.
var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an access key and print its token once",
	RunE: func(cmd *cobra.Command, args []string) error {
		var created *accesskeydomain.SecretResponse
		app := fx.New(
			fx.NopLogger,
			fx.Provide(zap.NewProduction),
			fx.Provide(config.Load),
			clock.Module,
			db.Module,
			migration.Module,
			accesskey.Module,
			fx.Invoke(func(svc accesskeydomain.Service) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				resp, err := svc.Create(ctx, accesskeydomain.CreateRequest{Name: keyName, Role: keyRole})
				if err != nil {
					return err
				}
				created = resp
				return nil
			}),
		)
		if err := app.Err(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "key_id: %s\ntoken:  %s\n", created.KeyID, created.Token)
		fmt.Fprintln(cmd.ErrOrStderr(), "store the token now, it cannot be shown again")
		return nil
	},
}

func init() {
	keysCreateCmd.Flags().StringVar(&keyName, "name", "", "key name")
	keysCreateCmd.Flags().StringVar(&keyRole, "role", accesskeydomain.RoleAdmin, "admin or customer")
	_ = keysCreateCmd.MarkFlagRequired("name")
	keysCmd.AddCommand(keysCreateCmd)
}
