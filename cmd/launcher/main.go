package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	var err error
	switch os.Args[1] {
	case "--version", "version":
		fmt.Printf("launcher %s\n", Version)
		return
	case "--help", "-h", "help":
		printUsage()
		return
	case "list":
		err = runList(os.Args[2:])
	case "install":
		err = runInstall(os.Args[2:])
	case "uninstall":
		err = runUninstall(os.Args[2:])
	case "launch":
		err = runLaunch(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  launcher list [options]             List catalog packages and install state")
	fmt.Println("  launcher install [options] <id>...  Download, verify and install packages")
	fmt.Println("  launcher uninstall [options] <id>   Remove an installed package")
	fmt.Println("  launcher launch [options] <id>      Start an installed package")
	fmt.Println("  launcher status [options]           Show installation records")
	fmt.Println("  launcher --version                  Show version information")
	fmt.Println()
	fmt.Println("Common options:")
	fmt.Println("  -c, --config <path>  Lua config file (default: $XDG_CONFIG_HOME/VyltrexLauncher/launcher.lua)")
	fmt.Println("  -v, --verbose        Increase log verbosity (repeatable)")
}
