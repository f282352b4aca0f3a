package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "validate":
		handleValidate(os.Args[2:])
	case "recalculate":
		handleRecalculate(os.Args[2:])
	case "import":
		handleImport(os.Args[2:])
	case "export":
		handleExport(os.Args[2:])
	case "list":
		handleList(os.Args[2:])
	case "report":
		handleReport(os.Args[2:])
	case "history":
		handleHistory(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("tara v%s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	usage := `TARA CLI - Threat Analysis & Risk Assessment project tools

Usage:
  tara <command> [options]

Available Commands:
  validate     Validate a portable project file and show recalculation warnings
  recalculate  Recalculate a portable project file and write the derived snapshot
  import       Import a portable project file into a local project store
  export       Export a stored project to a portable file
  list         List projects in a local project store
  report       Render a risk register, attack-path report or DOT graph
  history      Export the persistent history log
  help         Show this help message
  version      Show version information

Use "tara <command> --help" for more information about a command.
`
	fmt.Print(usage)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
