package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"sndiag/internal/config"
	"sndiag/internal/logger"
	"sndiag/internal/output"
	"sndiag/internal/servicenow"
)

// RunCheck performs the full diagnostic suite once and prints the report
// as indented JSON. Exit code 1 when any check fails.
func RunCheck(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		return 1
	}

	instance := cfg.ServiceNow.InstanceURL
	username := cfg.ServiceNow.Username
	password := cfg.ServiceNow.Password
	domain := ""
	name := ""
	quiet := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--instance", "-i":
			if i+1 < len(args) {
				i++
				instance = args[i]
			}
		case "--user", "-u":
			if i+1 < len(args) {
				i++
				username = args[i]
			}
		case "--password", "--pass":
			if i+1 < len(args) {
				i++
				password = args[i]
			}
		case "--domain", "-d":
			if i+1 < len(args) {
				i++
				domain = args[i]
			}
		case "--name", "-n":
			if i+1 < len(args) {
				i++
				name = args[i]
			}
		case "--json":
			quiet = true
		case "--debug":
			cfg.Log.Mode = "debug"
			cfg.Log.Level = "debug"
		}
	}

	if instance == "" {
		fmt.Fprintln(os.Stderr, "instance URL required: pass --instance or set SND_SN_INSTANCE")
		return 1
	}

	logger.Init(cfg.Log)

	client := servicenow.NewClient(cfg.RequestTimeout())
	creds := servicenow.Credentials{Username: username, Password: password}
	base := servicenow.NormalizeInstanceURL(instance)

	// --name narrows the one-shot to a single embeddable prefix check
	if name != "" {
		res := client.CheckEmbeddableActivated(context.Background(), base, creds, name)
		if err := printJSON(res); err != nil {
			return 1
		}
		if !res.Success || !res.AllActive {
			return 1
		}
		return 0
	}

	report := client.RunAllChecks(context.Background(), base, creds, domain)
	if err := printJSON(report); err != nil {
		return 1
	}

	failed := report.FailedChecks()
	if !quiet {
		if len(failed) == 0 {
			output.Println(output.Colorize("success", "✓ "+report.Summary()))
		} else {
			output.Println(output.Colorize("danger", "✗ "+report.Summary()))
		}
	}
	if len(failed) > 0 {
		return 1
	}
	return 0
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "report encode failed: %v\n", err)
		return err
	}
	fmt.Println(string(data))
	return nil
}
