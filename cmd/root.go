package cmd

import (
	"fmt"
	"os"

	"github.com/CloudNativeWorks/vpm-bootstrap/internal/config"
	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	endpoint string
	logLevel string
	copyTo   string
	noWait   bool
	Cfg      *config.Config
	Version  string
)

var RootCmd = &cobra.Command{
	Use:   "vpm-bootstrap",
	Short: "Download the VRChat package manager bootstrap package",
	Long: `vpm-bootstrap asks the VRChat API for its configuration, downloads the
bootstrap unitypackage it points to and keeps it in a temporary file until
you have imported it into the editor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFetch,
}

func Execute(version string) error {
	Version = version
	return RootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	RootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "config endpoint URL (overrides config file)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config file)")
	RootCmd.Flags().StringVar(&copyTo, "copy-to", "", "also copy the package to this path before it is removed")
	RootCmd.Flags().BoolVar(&noWait, "no-wait", false, "do not wait for enter before removing the package")
}

func initConfig() {
	var err error

	Cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Configuration could not be loaded: %v\n", err)
		os.Exit(1)
	}

	// Command line flags win over file and environment
	if endpoint != "" {
		Cfg.API.Endpoint = endpoint
	}
	if logLevel != "" {
		Cfg.Logging.Level = logLevel
	}
	if copyTo != "" {
		Cfg.Staging.CopyTo = copyTo
	}
	if noWait {
		Cfg.Prompt.Wait = false
	}
	if Version != "" && Cfg.API.UserAgent == config.DefaultConfig().API.UserAgent {
		Cfg.API.UserAgent = "vpm-bootstrap/" + Version
	}

	if err := logger.Init(Cfg.LoggerConfig("root")); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Logger could not be initialized: %v\n", err)
		os.Exit(1)
	}
}
