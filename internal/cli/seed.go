package cli

import (
	"fmt"

	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/seed"
	"github.com/spf13/cobra"
)

func NewSeedCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load health centers, tests and events from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := seed.Load(file)
			if err != nil {
				return err
			}
			db, err := openDB(opts.Config)
			if err != nil {
				return err
			}
			defer closeDB(db)

			n, err := seed.Apply(cmd.Context(), database.NewTxRunner(db, retryPolicy(opts.Config)), doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d centers, %d tests, %d center services, %d events\n",
				n.Centers, n.Tests, n.CenterServices, n.Events)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "seed document")
	return cmd
}
