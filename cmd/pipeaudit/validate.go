package main

import (
	"fmt"

	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/ppiankov/pipeaudit/internal/reporter"
	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <report.json>",
		Short: "Validate a report against the report schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			violations, err := reporter.ValidateFile(args[0])
			if err != nil {
				return err
			}
			if len(violations) > 0 {
				for _, v := range violations {
					cmd.Printf("  - %s\n", v)
				}
				return fmt.Errorf("%w: %s has %d violation(s)", errInvalidReport, args[0], len(violations))
			}
			cmd.Printf("%s: valid (schema %s)\n", args[0], models.ReportVersion)
			return nil
		},
	}
}
