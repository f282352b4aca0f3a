package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dd0wney/cluso-tara/pkg/model"
)

// RiskRegisterCSV writes the risk register as CSV, one row per threat
// scenario, worst risk first.
func (g *Generator) RiskRegisterCSV(w io.Writer, p *model.Project) (retErr error) {
	rows, _, err := g.registerRows(p)
	if err != nil {
		return err
	}

	csvWriter := csv.NewWriter(w)
	defer func() {
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil && retErr == nil {
			retErr = fmt.Errorf("flush risk register: %w", err)
		}
	}()

	header := []string{
		"ScenarioID",
		"Scenario",
		"ThreatID",
		"Threat",
		"Asset",
		"Source",
		"Potential",
		"Feasibility",
		"Impact",
		"Risk",
		"Treatment",
	}
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("write risk register header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.ScenarioID,
			row.ScenarioTitle,
			row.ThreatID,
			row.ThreatTitle,
			row.AssetTitle,
			row.Source,
			row.Potential.String(),
			row.Feasibility.String(),
			row.Impact.String(),
			row.Risk.String(),
			string(row.Treatment),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("write risk register row: %w", err)
		}
	}
	return nil
}

// RiskRegisterMarkdown writes the risk register as a Markdown document
// with a summary line and one table row per threat scenario.
func (g *Generator) RiskRegisterMarkdown(w io.Writer, p *model.Project) error {
	rows, result, err := g.registerRows(p)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Risk Register: %s\n\n", p.Title)
	fmt.Fprintf(&b, "Generated %s. %d threat scenarios",
		time.Now().UTC().Format(time.RFC3339), len(rows))
	if len(rows) > 0 {
		fmt.Fprintf(&b, ", worst risk %s", rows[0].Risk)
	}
	b.WriteString(".\n")
	if n := result.Stats.Warnings; n > 0 {
		fmt.Fprintf(&b, "\n%d modeling warnings were raised during recalculation.\n", n)
	}

	b.WriteString("\n| Scenario | Title | Threat | Asset | Source | Potential | Feasibility | Impact | Risk | Treatment |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			mdCell(row.ScenarioID),
			mdCell(row.ScenarioTitle),
			mdCell(row.ThreatTitle),
			mdCell(row.AssetTitle),
			row.Source,
			row.Potential,
			row.Feasibility,
			row.Impact,
			row.Risk,
			row.Treatment,
		)
	}

	_, err = io.WriteString(w, b.String())
	return err
}

// mdCell escapes a value for use inside a Markdown table cell.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
