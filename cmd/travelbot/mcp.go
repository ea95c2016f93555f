package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/comigor/travelbot/internal/mcpserver"
	"github.com/comigor/travelbot/pkg/tools"
)

func newMCPCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the travel tools over MCP stdio for one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, _, err := a.store.FindOrCreateUser(cmd.Context(), name, email)
			if err != nil {
				return err
			}
			scope := tools.Scope{UserID: user.ID, SessionID: "mcp-" + uuid.NewString()}
			srv, err := mcpserver.New(a.registry, tools.NewDispatcher(a.registry, a.cfg.Agent), scope, version)
			if err != nil {
				return err
			}
			return srv.ServeStdio()
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "user name")
	cmd.Flags().StringVar(&email, "email", "", "user email (identifies the user)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
