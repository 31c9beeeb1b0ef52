package create

import "fmt"

// validate checks the command arguments before any work starts. The input
// file only matters for the spreadsheet path; the ticket path is driven
// entirely by environment variables.
func validate(o *RunOptions) error {
	if !o.FromJira && o.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	return nil
}
