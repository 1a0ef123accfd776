package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/ErlanBelekov/instance-scheduler/internal/usecase"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var (
		file string
		key  string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load schedules and periods into the store",
		Long: `Import a JSON or YAML list of schedule and period records.

The format follows the file extension. Every record is validated before
anything is written.

Examples:
  # Import a local file
  schedctl import --file periods.yaml

  # Import an object from the configuration bucket
  schedctl import --key automated_config.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" && key != "" {
				return errors.New("use either --file or --key")
			}

			var data []byte
			if file != "" {
				var err error
				if data, err = os.ReadFile(file); err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				// Decode before touching the store so a bad file fails fast.
				if _, err := usecase.DecodeRecords(file, data); err != nil {
					return err
				}
			}

			_, deps, err := openDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()

			uc := deps.ConfigUsecase()
			var n int
			if file != "" {
				n, err = uc.ImportDocument(cmd.Context(), file, data)
			} else {
				n, err = uc.Import(cmd.Context(), key)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Local JSON or YAML file")
	cmd.Flags().StringVar(&key, "key", "", "Object key in the configuration bucket (defaults to SCHEDULER_S3_CONFIG_OBJECT_KEY)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		out   string
		key   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump every stored schedule and period",
		Long: `Export the store as a list of records sorted by kind then name.

Without --out or --key the dump is written to stdout as JSON.

Examples:
  schedctl export --out dump.yaml
  schedctl export --key backups/config.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out != "" && key != "" {
				return errors.New("use either --out or --key")
			}
			if out != "" && !force && fileExists(out) {
				return fmt.Errorf("%s exists, pass --force to overwrite", out)
			}

			_, deps, err := openDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()

			uc := deps.ConfigUsecase()
			if key != "" {
				n, err := uc.ExportTo(cmd.Context(), key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", n, key)
				return nil
			}

			records, err := uc.Export(cmd.Context())
			if err != nil {
				return err
			}

			name := out
			if name == "" {
				name = "stdout.json"
			}
			data, err := usecase.EncodeRecords(name, records, true)
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", len(records), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Local file, JSON or YAML by extension")
	cmd.Flags().StringVar(&key, "key", "", "Object key in the configuration bucket")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite --out if it exists")
	return cmd
}
