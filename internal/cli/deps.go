package cli

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pyshare-dev/pyshare/internal/fileutil"
	"github.com/pyshare-dev/pyshare/internal/share"
	"github.com/spf13/cobra"
)

func RunDeps(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, jsonFlagName)
	if err != nil {
		return err
	}

	plan, err := s.pipeline().Plan(args[0])
	if err != nil {
		return err
	}

	rows := plan.Dependencies()
	if asJSON {
		return fileutil.PrintJSON(cmd.OutOrStdout(), rows)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), renderDependencyTable(rows, len(plan.Splice.Definitions)))
	return err
}

func renderDependencyTable(rows []share.DependencyRow, definitions int) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Function", "Inlines", "Calls", "Called by"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	for _, row := range rows {
		resolved := "-"
		if len(row.Resolved) > 0 {
			resolved = strings.Join(row.Resolved, " -> ")
		}
		table.Append([]string{row.Function, resolved, joinOrDash(row.Calls), joinOrDash(row.CalledBy)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Functions %d", len(rows)),
		fmt.Sprintf("%d definitions", definitions),
		"",
		"",
	})

	table.Render()

	return tableBuffer.String()
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
