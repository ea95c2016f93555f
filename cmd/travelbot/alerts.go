package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/comigor/travelbot/internal/store"
)

func newAlertsCmd() *cobra.Command {
	alerts := &cobra.Command{
		Use:   "alerts",
		Short: "Manage safety alerts",
	}
	alerts.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Import safety alerts from a YAML file",
		Long: `Import safety alerts from a YAML list, for example:

  - destination: Goa
    alert_type: weather
    severity: high
    description: Heavy monsoon rain, avoid beaches
    valid_until: 2025-09-30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := importAlerts(cmd.Context(), a.store, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d safety alerts.\n", n)
			return nil
		},
	})
	return alerts
}

// importAlerts validates the whole file before writing anything.
func importAlerts(ctx context.Context, st store.Store, r io.Reader) (int, error) {
	var alerts []store.SafetyAlert
	if err := yaml.NewDecoder(r).Decode(&alerts); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("parse alerts: %w", err)
	}

	for i, a := range alerts {
		if strings.TrimSpace(a.Destination) == "" {
			return 0, fmt.Errorf("alert %d: destination is required", i+1)
		}
		if a.ValidUntil != nil && *a.ValidUntil != "" {
			if _, err := time.Parse(store.DateLayout, *a.ValidUntil); err != nil {
				return 0, fmt.Errorf("alert %d: valid_until must be YYYY-MM-DD: %w", i+1, err)
			}
		}
	}

	for i := range alerts {
		if _, err := st.CreateSafetyAlert(ctx, &alerts[i]); err != nil {
			return i, err
		}
	}
	return len(alerts), nil
}
