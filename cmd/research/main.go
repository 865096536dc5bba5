package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const defaultBaseURL = "http://localhost:8000"

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

type profile struct {
	BaseURL  string `yaml:"baseUrl"`
	Interval string `yaml:"pollInterval,omitempty"`
}

type cliConfig struct {
	CurrentProfile string             `yaml:"currentProfile"`
	Profiles       map[string]profile `yaml:"profiles"`
}

func newUI() *ui {
	return &ui{
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

func main() {
	baseURL := getenv("RESEARCH_BASE_URL", defaultBaseURL)
	profileName := getenv("RESEARCH_PROFILE", "")
	interval := time.Second
	ui := newUI()

	root := &cobra.Command{
		Use:   "research",
		Short: "AI web research CLI",
		Long:  "Submit research questions, follow their progress, export reports and chat.",
	}
	root.SetHelpTemplate(helpTemplate(ui))
	root.SilenceUsage = true

	root.PersistentFlags().StringVar(&baseURL, "base-url", baseURL, "Base URL of the research API")
	root.PersistentFlags().StringVar(&profileName, "profile", profileName, "Config profile")
	root.PersistentFlags().DurationVar(&interval, "interval", interval, "Poll interval while watching a task")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, _, _ := loadConfig()
		prof := cfg.Profiles[resolveProfileName(profileName, cfg)]
		flags := cmd.Flags()
		if !flags.Changed("base-url") {
			if v := strings.TrimSpace(os.Getenv("RESEARCH_BASE_URL")); v != "" {
				baseURL = v
			} else if prof.BaseURL != "" {
				baseURL = prof.BaseURL
			}
		}
		if !flags.Changed("interval") && prof.Interval != "" {
			d, err := time.ParseDuration(prof.Interval)
			if err != nil {
				return fmt.Errorf("profile pollInterval: %w", err)
			}
			interval = d
		}
		return nil
	}

	root.AddCommand(initCmd(&profileName, ui))
	root.AddCommand(askCmd(&baseURL, &interval, ui))
	root.AddCommand(watchCmd(&baseURL, &interval, ui))
	root.AddCommand(getCmd(&baseURL, ui))
	root.AddCommand(exportCmd(&baseURL, ui))
	root.AddCommand(chatCmd(&baseURL, ui))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
}

func initCmd(profileName *string, ui *ui) *cobra.Command {
	var (
		baseURL  string
		interval string
		noPrompt bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize CLI config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]

			if baseURL == "" {
				baseURL = prof.BaseURL
			}
			if baseURL == "" {
				baseURL = defaultBaseURL
			}
			if interval == "" {
				interval = prof.Interval
			}
			if !noPrompt {
				reader := bufio.NewReader(os.Stdin)
				baseURL = prompt(reader, "Base URL", baseURL)
				interval = prompt(reader, "Poll interval (optional)", interval)
			}
			if interval != "" {
				if _, err := time.ParseDuration(interval); err != nil {
					return fmt.Errorf("poll interval: %w", err)
				}
			}

			prof.BaseURL = strings.TrimSpace(baseURL)
			prof.Interval = strings.TrimSpace(interval)
			if cfg.Profiles == nil {
				cfg.Profiles = map[string]profile{}
			}
			cfg.Profiles[active] = prof
			if cfg.CurrentProfile == "" || *profileName != "" {
				cfg.CurrentProfile = active
			}
			if err := saveConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("%s Initialized profile '%s' at %s\n", ui.ok("[OK]"), active, cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL of the research API")
	cmd.Flags().StringVar(&interval, "interval", "", "Poll interval, e.g. 500ms")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Do not prompt for values")
	return cmd
}

func askCmd(baseURL *string, interval *time.Duration, ui *ui) *cobra.Command {
	var (
		noWatch bool
		export  bool
	)
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Start a research task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			c := newClient(*baseURL)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Submitting query..."
			spin.Start()
			id, err := c.submit(ctx, query)
			spin.Stop()
			if err != nil {
				return err
			}
			fmt.Printf("%s Task started: %s\n", ui.ok("[OK]"), id)
			if noWatch {
				return nil
			}
			task, err := follow(ctx, c, id, *interval, ui)
			if err != nil {
				return err
			}
			printResult(os.Stdout, task, ui)
			if export {
				return runExport(ctx, c, task, "", ui)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Return after submitting")
	cmd.Flags().BoolVar(&export, "export", false, "Export a PDF report when done")
	return cmd
}

func watchCmd(baseURL *string, interval *time.Duration, ui *ui) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow a task until it is done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			task, err := follow(ctx, newClient(*baseURL), args[0], *interval, ui)
			if err != nil {
				return err
			}
			printResult(os.Stdout, task, ui)
			return nil
		},
	}
}

func getCmd(baseURL *string, ui *ui) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*baseURL)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Fetching task..."
			spin.Start()
			task, err := c.get(cmd.Context(), args[0])
			spin.Stop()
			if err != nil {
				return err
			}
			if raw {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(task)
			}
			fmt.Printf("%s %s\n", ui.info("Status:"), task.Status)
			for _, s := range task.Steps {
				fmt.Printf("  %s %s\n", ui.dim("-"), s)
			}
			if task.Result != nil {
				printResult(os.Stdout, task, ui)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "Print the raw JSON task")
	return cmd
}

func exportCmd(baseURL *string, ui *ui) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a finished task as a PDF report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*baseURL)
			task, err := c.get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), c, task, out, ui)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Also download the PDF to this file")
	return cmd
}

func chatCmd(baseURL *string, ui *ui) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the research assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), newClient(*baseURL), os.Stdin, os.Stdout, isTerminal(int(os.Stdin.Fd())), ui)
		},
	}
}

func follow(ctx context.Context, c *client, id string, interval time.Duration, ui *ui) (*taskResp, error) {
	p := newProgress(os.Stderr, ui, isTerminal(int(os.Stderr.Fd())))
	task, err := watchTask(ctx, c, id, interval, p.step)
	p.stop()
	return task, err
}

func runExport(ctx context.Context, c *client, task *taskResp, out string, ui *ui) error {
	spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
	spin.Suffix = " Rendering report..."
	spin.Start()
	reportURL, err := c.export(ctx, task)
	spin.Stop()
	if err != nil {
		return err
	}
	fmt.Printf("%s Report: %s\n", ui.ok("[OK]"), reportURL)
	if out == "" {
		return nil
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := c.download(ctx, reportURL, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("%s Saved %s\n", ui.ok("[OK]"), out)
	return nil
}

// runChat reads one question per line and keeps the running history.
func runChat(ctx context.Context, c *client, in io.Reader, out io.Writer, interactive bool, ui *ui) error {
	var history []chatMessage
	scanner := bufio.NewScanner(in)
	if interactive {
		fmt.Fprintf(out, "%s Type a question, or /quit to leave.\n", ui.title("research chat"))
	}
	for {
		if interactive {
			fmt.Fprint(out, ui.info("> "))
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		reply, err := c.chat(ctx, history, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply)
		history = append(history,
			chatMessage{Role: "user", Content: line},
			chatMessage{Role: "assistant", Content: reply},
		)
	}
}

func printResult(w io.Writer, task *taskResp, ui *ui) {
	if task.Result == nil {
		fmt.Fprintln(w, ui.warn("No result yet."))
		return
	}
	fmt.Fprintf(w, "\n%s\n%s\n", ui.title("Summary"), strings.TrimSpace(task.Result.Summary))
	if len(task.Result.Sources) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", ui.title("Sources"))
	for i, s := range task.Result.Sources {
		fmt.Fprintf(w, "%d. %s %s\n   %s\n", i+1, s.Title, ui.dim(fmt.Sprintf("(%d/100)", s.Reliability)), ui.info(s.URL))
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func helpTemplate(ui *ui) string {
	title := ui.title("research")
	return fmt.Sprintf(`%s - CLI for AI web research

Usage:
  {{.UseLine}}

Commands:
{{range .Commands}}{{if (or .IsAvailableCommand .IsAdditionalHelpTopicCommand)}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

Flags:
  {{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

Global Flags:
  {{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

Config:
  %s

Examples:
  research init --base-url http://localhost:8000
  research ask "state of solid-state batteries" --export
  research watch 0b6f4c2e-...
  research export 0b6f4c2e-... -o report.pdf
  research chat

`, title, configPath())
}

func configPath() string {
	if v := strings.TrimSpace(os.Getenv("RESEARCH_CONFIG_DIR")); v != "" {
		return filepath.Join(v, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".research", "config.yaml")
}

func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

func loadConfig() (cliConfig, string, error) {
	path := configPath()
	var cfg cliConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cliConfig{Profiles: map[string]profile{}}, path, nil
		}
		return cfg, path, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, path, err
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]profile{}
	}
	return cfg, path, nil
}

func saveConfig(cfg cliConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func resolveProfileName(flag string, cfg cliConfig) string {
	if strings.TrimSpace(flag) != "" {
		return strings.TrimSpace(flag)
	}
	if v := strings.TrimSpace(os.Getenv("RESEARCH_PROFILE")); v != "" {
		return v
	}
	if cfg.CurrentProfile != "" {
		return cfg.CurrentProfile
	}
	return "default"
}

func prompt(r *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}
