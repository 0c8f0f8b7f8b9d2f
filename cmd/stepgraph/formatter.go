package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/deepnoodle-ai/stepgraph"
)

// consoleFormatter prints step progress in color
type consoleFormatter struct{}

func (f *consoleFormatter) PrintStepStart(checkpointID string, functionName string) {
	color.Cyan("  → %s", functionName)
}

func (f *consoleFormatter) PrintStepOutput(step *stepgraph.Step) {
	line := fmt.Sprintf("    ✓ %s (%s) %s", step.OutputType, step.Duration.Round(time.Microsecond), preview(step.Output))
	if step.Cost != nil {
		line += fmt.Sprintf(" [%d tokens]", step.Cost.Total())
	}
	color.Green("%s", line)
}

func (f *consoleFormatter) PrintStepError(step *stepgraph.Step) {
	color.Red("    ✗ %s: %s", step.Error.Kind, step.Error.Message)
}

func preview(value any) string {
	if value == nil {
		return ""
	}
	data, err := json.Marshal(value)
	text := string(data)
	if err != nil {
		text = fmt.Sprint(value)
	}
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) > 80 {
		text = text[:77] + "..."
	}
	return text
}

func printReport(report *stepgraph.Report) {
	fmt.Println()
	color.Magenta("Dependency report:")
	if report.Acyclic {
		color.Green("  acyclic: yes")
	} else {
		color.Red("  acyclic: no")
		for _, cycle := range report.Cycles {
			color.Red("    cycle: %s", strings.Join(cycle, " → "))
		}
		if report.CyclesTruncated {
			color.Red("    (more cycles not listed)")
		}
	}
	if len(report.MissingDependencies) > 0 {
		color.Yellow("  missing dependencies: %s", strings.Join(report.MissingDependencies, ", "))
	}
	for i, group := range report.ExecutionGroups {
		fmt.Printf("  group %d: %s\n", i, strings.Join(group, ", "))
	}
	if len(report.CriticalPath) > 0 {
		fmt.Printf("  critical path (%d nodes): %s\n", len(report.CriticalPath), strings.Join(report.CriticalPath, " → "))
	}
	fmt.Printf("  initial: %s\n", strings.Join(report.Roles.Initial, ", "))
	fmt.Printf("  terminal: %s\n", strings.Join(report.Roles.Terminal, ", "))
	if len(report.Roles.Isolated) > 0 {
		fmt.Printf("  isolated: %s\n", strings.Join(report.Roles.Isolated, ", "))
	}
}

func printSummaries(summaries []*stepgraph.GraphSummary) {
	if len(summaries) == 0 {
		color.Blue("No saved graphs")
		return
	}
	for _, s := range summaries {
		fmt.Printf("%s  %s  checkpoints %d/%d  steps %d (%d failed)  tokens %d\n",
			s.GraphID, s.SavedAt.Format("2006-01-02 15:04:05"),
			s.CompletedCheckpoints, s.Checkpoints, s.Steps, s.FailedSteps, s.TotalTokens)
	}
}
