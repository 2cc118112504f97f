package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/open-edge-platform/docker-provisioner/internal/config"
	"github.com/open-edge-platform/docker-provisioner/internal/provision"
	"github.com/open-edge-platform/docker-provisioner/internal/utils/logger"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	cfgFile  string
	logLevel string
	logFile  string

	loadedConfig *config.Config
)

func main() {
	installSignalHandler()

	root := createRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(provision.ExitCode(err))
	}
}

func installSignalHandler() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		log := logger.Logger()
		log.Errorf("Interrupted by signal %s", s)
		if path := logger.FilePath(); path != "" {
			log.Infof("Full log: %s", path)
		}
		if num, ok := s.(syscall.Signal); ok {
			os.Exit(128 + int(num))
		}
		os.Exit(1)
	}()
}

func createRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "docker-provisioner",
		Short: "Provision Docker Engine on Ubuntu hosts",
		Long: `docker-provisioner installs Docker Engine from Docker's official APT
repository: it removes conflicting packages, registers the repository and its
signing key, installs the Docker packages, starts the service and grants the
invoking user access to the docker group.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (overrides configuration)")
	root.PersistentFlags().Bool("verbose", false, "Shorthand for --log-level debug")

	root.AddCommand(createInstallCommand())
	root.AddCommand(createCheckCommand())
	root.AddCommand(createVersionCommand())
	attachLoggingHooks(root)

	return root
}

// attachLoggingHooks wires config loading and logger setup into every
// subcommand so flags are parsed before the logger level is chosen.
func attachLoggingHooks(root *cobra.Command) {
	for _, cmd := range root.Commands() {
		cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
			return setupRun(cmd)
		}
	}
}

func setupRun(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	loadedConfig = cfg

	level := resolveRequestedLogLevel(cmd)
	if level == "" {
		level = cfg.Logging.Level
	}

	file := logFile
	if file == "" {
		file = cfg.Logging.File
	}

	return logger.Init(level, file)
}

// resolveRequestedLogLevel picks the log level from the flags: an explicit
// --log-level always wins, --verbose maps to debug, otherwise the
// configuration default applies.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if verboseRequested(cmd.Flags()) || verboseRequested(cmd.InheritedFlags()) {
		return "debug"
	}
	return ""
}

func verboseRequested(flags *pflag.FlagSet) bool {
	fl := flags.Lookup("verbose")
	return fl != nil && fl.Value.String() == "true"
}

func createInstallCommand() *cobra.Command {
	var assumeYes bool
	var skipVerify bool
	var user string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install Docker Engine on this host",
		Long: `Run the full provisioning pipeline against this host.

Examples:
  docker-provisioner install
  docker-provisioner install --yes --skip-verify
  docker-provisioner install --user jenkins --config custom.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := provision.New(loadedConfig, provision.Options{
				AssumeYes:     assumeYes,
				SkipSmokeTest: skipVerify,
				User:          user,
			})

			status, err := p.Run()
			if err != nil {
				return err
			}

			switch status {
			case provision.StatusAborted:
				color.New(color.FgYellow).Println("Aborted: existing installation left untouched.")
			default:
				color.New(color.FgGreen).Println("Docker Engine is installed and running.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Proceed without confirmation when Docker is already installed")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "Skip the hello-world smoke test")
	cmd.Flags().StringVar(&user, "user", "", "User granted docker group access (default: the invoking user)")

	return cmd
}

func createCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify this host can be provisioned without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := provision.New(loadedConfig, provision.Options{})
			if err := p.Preflight(); err != nil {
				return err
			}
			color.New(color.FgGreen).Println("Host is ready for provisioning.")
			return nil
		},
	}
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docker-provisioner version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("docker-provisioner %s\n", version)
		},
	}
}
