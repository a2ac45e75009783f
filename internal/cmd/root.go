package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atikulmunna/tailview/internal/config"
	"github.com/atikulmunna/tailview/internal/hub"
	"github.com/atikulmunna/tailview/internal/locator"
	"github.com/atikulmunna/tailview/internal/logging"
	"github.com/atikulmunna/tailview/internal/model"
	"github.com/atikulmunna/tailview/internal/output"
	"github.com/atikulmunna/tailview/internal/pipeline"
)

var (
	cfgFile        string
	outputFmt      string
	levelFilter    string
	producerFilter string
	timeFmt        string
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "tailview",
	Short: "tailview - live viewer for a workspace's debug logs",
	Long: `tailview follows the producer debug logs written under a workspace's
log directory, parses each line into a structured entry, and streams them to
your terminal or to a browser over a websocket.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.tailview.yaml)")
	pf.StringVarP(&outputFmt, "output", "o", "auto", "output format: text, json, auto")
	pf.StringVarP(&levelFilter, "level", "l", "", "show only these levels (comma-separated: error,warn,info,debug,unknown)")
	pf.StringVarP(&producerFilter, "producer", "p", "", "show only these producers (comma-separated)")
	pf.StringVar(&timeFmt, "time", "short", "timestamp display: iso, short")
	pf.String("log-level", "info", "diagnostic log level: debug, info, warn, error")
	pf.String("log-format", "text", "diagnostic log format: text, json")
	pf.String("root-marker", locator.DefaultRootMarker, "workspace marker directory")
	pf.String("log-dir", locator.DefaultLogDir, "log directory name under the marker")
	pf.String("pattern", "*", "file name pattern for log files")
	pf.String("format", "standard", "line format: standard, legacy, either")
	pf.Int("max-lines", 10000, "maximum entries retained in memory")
	pf.Duration("debounce", 0, "change debounce interval (default 75ms)")
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"log-level":   "log_level",
	"log-format":  "log_format",
	"root-marker": "root_marker",
	"log-dir":     "log_dir",
	"pattern":     "file_pattern",
	"format":      "line_format",
	"max-lines":   "max_lines",
	"debounce":    "debounce",
	"addr":        "addr",
}

// loadConfig builds the effective configuration for cmd. Only flags the user
// actually set override the config file and environment.
func loadConfig(cmd *cobra.Command, workspace string) (config.Config, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	if workspace != "" {
		v.Set("workspace", workspace)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
	if used := v.ConfigFileUsed(); used != "" {
		slog.Debug("loaded config file", "path", used)
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}

// newPipeline builds a Pipeline for cfg publishing on h.
func newPipeline(cfg config.Config, h *hub.Hub) (*pipeline.Pipeline, error) {
	loc := locator.New(cfg.Workspace, cfg.RootMarker, cfg.LogDir)
	return pipeline.New(pipeline.Options{
		Locator:          loc,
		MaxLines:         cfg.MaxLines,
		InitialReadBytes: cfg.InitialReadBytes,
		ReadChunkBytes:   cfg.ReadChunkBytes,
		Debounce:         cfg.Debounce,
		FilePattern:      cfg.FilePattern,
		Format:           cfg.Format(),
		Logger:           slog.Default(),
	}, h)
}

// newRenderer picks the entry renderer for --output. "auto" writes colored
// text to a terminal and JSON lines otherwise.
func newRenderer(format string, mode output.TimeMode) output.Renderer {
	switch strings.ToLower(format) {
	case "json":
		return output.NewJSONRenderer()
	case "text":
		return output.NewTextRenderer(mode)
	default:
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return output.NewTextRenderer(mode)
		}
		return output.NewJSONRenderer()
	}
}

// selection is the producer and level choice given on the command line.
// An empty list selects everything.
type selection struct {
	producers []string
	levels    []model.Level
}

func parseSelection(producers, levels string) selection {
	var s selection
	s.producers = splitList(producers, strings.ToLower)
	for _, l := range splitList(levels, strings.ToLower) {
		s.levels = append(s.levels, model.Level(l))
	}
	return s
}

func splitList(s string, norm func(string) string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, norm(part))
		}
	}
	return out
}

// resolve fills unselected dimensions from what is currently known.
func (s selection) resolve(known []string) ([]string, []model.Level) {
	producers, levels := s.producers, s.levels
	if len(producers) == 0 {
		producers = known
	}
	if len(levels) == 0 {
		levels = model.AllLevels
	}
	return producers, levels
}
