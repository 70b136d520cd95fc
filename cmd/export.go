// File: cmd/export.go
package cmd

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pwscript/internal/exporter"
	"github.com/xkilldash9x/pwscript/internal/runner"
)

func newExportCmd() *cobra.Command {
	var (
		output string
		name   string
	)

	exportCmd := &cobra.Command{
		Use:   "export <script>",
		Short: "Convert a script into a Playwright test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buffer, err := runner.LoadScript(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = buffer.Name()
			}
			src := exporter.ExportScript(buffer.Lines(), name)

			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), src)
				return nil
			}
			path, err := homedir.Expand(output)
			if err != nil {
				return fmt.Errorf("failed to expand path %s: %w", output, err)
			}
			if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", args[0], path)
			return nil
		},
	}

	exportCmd.Flags().StringVarP(&output, "output", "o", "", "write the test to this file instead of stdout")
	exportCmd.Flags().StringVar(&name, "name", "", "test name (default is the script file name)")
	return exportCmd
}
