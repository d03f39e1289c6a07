package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultBridgeYAML = `# pueue-webui — bridge config
# Priority: CLI flag > this file > default.

addr:         "127.0.0.1:9093"
metrics_addr: ":9094"
log_level:    "info"       # debug | info | warn | error

poll_schedule: "@every 5s" # status poller; "" disables
cache_ttl_ms:  500

# otel_endpoint: "localhost:4318"  # uncomment to enable OpenTelemetry tracing

# Daemon connectivity is resolved from the pueue config file, with
# PUEUE_CONFIG / PUEUE_DIRECTORY / PUEUE_RUNTIME_DIRECTORY /
# PUEUE_SOCKET_PATH environment overrides. PUEUE_CLI_FALLBACK=0 disables
# the CLI fallback; PUEUE_BIN overrides the fallback executable.
`

// newInitCmd returns an "init" subcommand that writes a default config file.
func newInitCmd(serviceName, defaultYAML string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: fmt.Sprintf(`Write default configuration for %s.

If --config is given the file is written to that path.
Otherwise it is written to ~/.%s/%s.yaml.
Fails if the file already exists unless --force is passed.`, serviceName, serviceName, serviceName),
		RunE: func(_ *cobra.Command, _ []string) error {
			dest := cfgFile
			if dest == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("home dir: %w", err)
				}
				dest = filepath.Join(home, "."+serviceName, serviceName+".yaml")
			}

			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("mkdir: %w", err)
			}

			if !force {
				if _, err := os.Stat(dest); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("stat %s: %w", dest, err)
				}
			}

			if err := os.WriteFile(dest, []byte(defaultYAML), 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Printf("config written to %s\n", dest)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")
	return cmd
}
