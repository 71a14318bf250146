package cli

import (
	"fmt"
	"strings"

	"sndiag/internal/commands"
	"sndiag/internal/config"
	"sndiag/internal/output"
	"sndiag/internal/version"
)

func Run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		output.Printf("warning: reading sndiag config failed: %s\n", err)
		cfg = config.Default()
	}
	output.SetDebug(cfg.IsDebug())
	output.Debugf("config loaded: %s\n", config.ConfigPath())

	if len(args) < 2 {
		return commands.RunServe(nil)
	}

	switch args[1] {
	case "-h", "--help", "help":
		output.Println(usage())
		return 0
	case "-v", "--version", "version":
		output.Printf("sndiag %s (%s)\n", version.Version, version.Build)
		return 0
	case "serve":
		return commands.RunServe(args[2:])
	case "mcp":
		return commands.RunMCP(args[2:])
	case "check":
		return commands.RunCheck(args[2:])
	default:
		// treat anything else as serve flags
		return commands.RunServe(args[1:])
	}
}

func usage() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "sndiag - ServiceNow embeddables diagnostics server")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Usage:")
	fmt.Fprintln(b, "  sndiag [flags]              start the HTTP + MCP server")
	fmt.Fprintln(b, "  sndiag <command> [flags]")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Flags:")
	fmt.Fprintln(b, "  -p, --port PORT       listen port (default 8005)")
	fmt.Fprintln(b, "  -b, --bind ADDR       bind address (default 0.0.0.0)")
	fmt.Fprintln(b, "  -i, --instance URL    default ServiceNow instance URL")
	fmt.Fprintln(b, "      --debug           enable debug mode")
	fmt.Fprintln(b, "  -h, --help            show help")
	fmt.Fprintln(b, "  -v, --version         show version")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Commands:")
	fmt.Fprintln(b, "  serve    start the HTTP + MCP server (default)")
	fmt.Fprintln(b, "  mcp      serve MCP tools over stdio")
	fmt.Fprintln(b, "  check    run the full diagnostic report once and print JSON")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Examples:")
	fmt.Fprintln(b, "  sndiag -p 9090 -b 127.0.0.1")
	fmt.Fprintln(b, "  sndiag check -i https://example.service-now.com -u admin --pass secret")
	fmt.Fprintln(b, "  sndiag check -i https://example.service-now.com -n my_component --json")
	fmt.Fprintln(b, "  sndiag mcp")
	return b.String()
}
