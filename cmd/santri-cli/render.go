package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/service"
	"github.com/noah-isme/santri-dokumen-api/pkg/database"
)

var (
	good = color.New(color.FgGreen).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	bad  = color.New(color.FgRed).SprintFunc()
)

func badge(b string) string {
	switch b {
	case string(models.DocumentValid):
		return good(b)
	case string(models.DocumentUnverified), string(models.DocumentNeedsRevision):
		return warn(b)
	default:
		return bad(b)
	}
}

func percent(p int) string {
	s := fmt.Sprintf("%d%%", p)
	switch {
	case p >= 100:
		return good(s)
	case p >= 50:
		return warn(s)
	default:
		return bad(s)
	}
}

func renderRequirements(w io.Writer, reqs []models.DocumentRequirement) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"No", "Code", "Document", "Tag", "Condition"})
	table.SetAutoWrapText(false)
	for i, r := range reqs {
		table.Append([]string{strconv.Itoa(i + 1), r.Code, r.Name, string(r.Tag), r.Condition})
	}
	table.Render()
}

func renderCompleteness(w io.Writer, result *models.CompletenessResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Code", "Document", "Tag", "Status"})
	table.SetAutoWrapText(false)
	for _, item := range result.Items {
		table.Append([]string{item.Code, item.Name, string(item.Tag), badge(item.Badge)})
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d/%d", result.Completed, result.Total), percent(result.Percentage)})
	table.Render()
}

func renderCohort(w io.Writer, rows []service.StudentCompleteness, below int) int {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"NIS", "Name", "Category", "Done", "Progress"})
	shown := 0
	for _, row := range rows {
		if below > 0 && row.Result.Percentage >= below {
			continue
		}
		table.Append([]string{
			row.Student.NIS,
			row.Student.FullName,
			string(row.Student.Category),
			fmt.Sprintf("%d/%d", row.Result.Completed, row.Result.Total),
			percent(row.Result.Percentage),
		})
		shown++
	}
	table.Render()
	return shown
}

func renderMigrations(w io.Writer, statuses []database.MigrationStatus) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Migration", "Applied", "At"})
	for _, s := range statuses {
		applied := warn("pending")
		if s.Applied {
			applied = good("yes")
		}
		table.Append([]string{s.ID, applied, s.AppliedAt})
	}
	table.Render()
}
