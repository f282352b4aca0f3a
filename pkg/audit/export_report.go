package audit

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// ExportReport generates a summary report of history events
func (e *Exporter) ExportReport(writer io.Writer, options *ExportOptions) error {
	events, err := e.readEvents(options)
	if err != nil {
		return err
	}

	// Calculate statistics
	stats := e.calculateStatistics(events)

	if _, err := fmt.Fprintf(writer, "History Log Report\n"); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	if _, err := fmt.Fprintf(writer, "==================\n\n"); err != nil {
		return fmt.Errorf("failed to write report separator: %w", err)
	}
	if options.StartTime != nil && options.EndTime != nil {
		if _, err := fmt.Fprintf(writer, "Period: %s to %s\n",
			options.StartTime.Format(time.RFC3339),
			options.EndTime.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to write report period: %w", err)
		}
	}
	if _, err := fmt.Fprintf(writer, "\nTotal Events: %d\n\n", stats.TotalEvents); err != nil {
		return fmt.Errorf("failed to write total events: %w", err)
	}

	if _, err := fmt.Fprintf(writer, "Events by Severity:\n"); err != nil {
		return fmt.Errorf("failed to write severity section: %w", err)
	}
	for severity, count := range stats.BySeverity {
		if _, err := fmt.Fprintf(writer, "  %s: %d\n", severity, count); err != nil {
			return fmt.Errorf("failed to write severity stat: %w", err)
		}
	}

	if _, err := fmt.Fprintf(writer, "\nEvents by Action:\n"); err != nil {
		return fmt.Errorf("failed to write action section: %w", err)
	}
	for action, count := range stats.ByAction {
		if _, err := fmt.Fprintf(writer, "  %s: %d\n", action, count); err != nil {
			return fmt.Errorf("failed to write action stat: %w", err)
		}
	}

	if _, err := fmt.Fprintf(writer, "\nEvents by Status:\n"); err != nil {
		return fmt.Errorf("failed to write status section: %w", err)
	}
	for status, count := range stats.ByStatus {
		if _, err := fmt.Fprintf(writer, "  %s: %d\n", status, count); err != nil {
			return fmt.Errorf("failed to write status stat: %w", err)
		}
	}

	if _, err := fmt.Fprintf(writer, "\nTop Projects:\n"); err != nil {
		return fmt.Errorf("failed to write projects section: %w", err)
	}
	for i, project := range stats.TopProjects {
		if i >= 10 {
			break
		}
		if _, err := fmt.Fprintf(writer, "  %s: %d events\n", project.ProjectID, project.Count); err != nil {
			return fmt.Errorf("failed to write project stat: %w", err)
		}
	}

	if _, err := fmt.Fprintf(writer, "\nTop Entities:\n"); err != nil {
		return fmt.Errorf("failed to write entities section: %w", err)
	}
	for i, entity := range stats.TopEntities {
		if i >= 10 {
			break
		}
		if _, err := fmt.Fprintf(writer, "  %s (%s): %d events\n", entity.EntityID, entity.EntityType, entity.Count); err != nil {
			return fmt.Errorf("failed to write entity stat: %w", err)
		}
	}

	return nil
}

// calculateStatistics calculates statistics from events
func (e *Exporter) calculateStatistics(events []*PersistentEvent) ReportStatistics {
	stats := ReportStatistics{
		TotalEvents: len(events),
		BySeverity:  make(map[Severity]int),
		ByAction:    make(map[Action]int),
		ByStatus:    make(map[Status]int),
	}

	projectCounts := make(map[string]int)
	entityCounts := make(map[string]int)

	for _, event := range events {
		stats.BySeverity[event.Severity]++
		stats.ByAction[event.Action]++
		stats.ByStatus[event.Status]++

		if event.ProjectID != "" {
			projectCounts[event.ProjectID]++
		}

		if event.EntityID != "" {
			key := fmt.Sprintf("%s:%s", event.EntityType, event.EntityID)
			entityCounts[key]++
		}
	}

	for projectID, count := range projectCounts {
		stats.TopProjects = append(stats.TopProjects, ProjectStat{ProjectID: projectID, Count: count})
	}

	for key, count := range entityCounts {
		parts := strings.SplitN(key, ":", 2)
		stats.TopEntities = append(stats.TopEntities, EntityStat{
			EntityType: EntityType(parts[0]),
			EntityID:   parts[1],
			Count:      count,
		})
	}

	// Sort by count (descending); ties break on id so reports are stable
	sort.Slice(stats.TopProjects, func(i, j int) bool {
		if stats.TopProjects[i].Count != stats.TopProjects[j].Count {
			return stats.TopProjects[i].Count > stats.TopProjects[j].Count
		}
		return stats.TopProjects[i].ProjectID < stats.TopProjects[j].ProjectID
	})
	sort.Slice(stats.TopEntities, func(i, j int) bool {
		if stats.TopEntities[i].Count != stats.TopEntities[j].Count {
			return stats.TopEntities[i].Count > stats.TopEntities[j].Count
		}
		return stats.TopEntities[i].EntityID < stats.TopEntities[j].EntityID
	})

	return stats
}
