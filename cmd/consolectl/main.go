// Command consolectl drives the video-search platform from a terminal: jobs,
// searches, uploads, cameras and streams, violence detection and incidents.
package main

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/config"
	"github.com/your-org/vsconsole/internal/observability"
	"github.com/your-org/vsconsole/internal/schema"
)

var (
	configPath string
	noColor    bool
	jsonOutput bool
	assumeYes  bool

	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

var rootCmd = &cobra.Command{
	Use:           "consolectl",
	Short:         "Operate the video-search platform from a terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompts")

	rootCmd.AddCommand(jobsCmd, searchCmd, uploadCmd, camerasCmd, streamsCmd,
		violenceCmd, incidentsCmd, routesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// console bundles what every command needs.
type console struct {
	cfg    *config.Config
	client *backend.Client
}

func newConsole() (*console, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	// Commands print to stdout; logs only surface warnings on stderr.
	observability.SetupLogger("warn", "text")

	validator, err := schema.NewCameraValidator()
	if err != nil {
		return nil, err
	}
	return &console{
		cfg: cfg,
		client: backend.New(backend.Options{
			QueryURL:      cfg.Backends.QueryURL,
			StorageURL:    cfg.Backends.StorageURL,
			CameraURL:     cfg.Backends.CameraURL,
			ViolenceURL:   cfg.Backends.ViolenceURL,
			HTTPClient:    &http.Client{Timeout: cfg.Backends.Timeout},
			UploadTimeout: cfg.Upload.Timeout,
			Validator:     validator,
		}),
	}, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
