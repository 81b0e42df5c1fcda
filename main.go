package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"topgrade-gui/app"
	"topgrade-gui/config"
	"topgrade-gui/log"
	"topgrade-gui/session"
	"topgrade-gui/session/prompt"
	"topgrade-gui/ui"
	"topgrade-gui/web"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version     = "0.3.0"
	programFlag string
	plainFlag   bool
	startFlag   bool
	localeFlag  string
	addrFlag    string
	// exitCode is the status the process exits with, the child's in plain mode.
	exitCode int

	rootCmd = &cobra.Command{
		Use:   "topgrade-gui [flags] [-- upgrade args]",
		Short: "Topgrade GUI - run topgrade and answer its password and confirmation prompts.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			plain := plainFlag || !term.IsTerminal(int(os.Stdout.Fd()))
			log.Initialize(plain)
			defer log.Close()

			cfg := config.LoadConfig()
			applyLogLevel(cfg)
			opts, err := sessionOptions(cfg, args)
			if err != nil {
				return err
			}

			if plain {
				code, err := app.RunPlain(ctx, app.PlainOptions{
					Session:    opts,
					In:         os.Stdin,
					Out:        os.Stdout,
					RecordRuns: true,
				})
				exitCode = code
				return err
			}

			return app.Run(ctx, app.Options{
				Session:    opts,
				AutoStart:  startFlag,
				Locale:     localeFlag,
				RecordRuns: true,
			})
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve [-- upgrade args]",
		Short: "Serve upgrade sessions to browsers over a websocket",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Initialize(true)
			defer log.Close()

			cfg := config.LoadConfig()
			applyLogLevel(cfg)
			opts, err := sessionOptions(cfg, args)
			if err != nil {
				return err
			}

			addr := addrFlag
			if addr == "" {
				addr = cfg.ListenAddr
			}
			fmt.Printf("Serving %s on ws://%s/ws\n", opts.Command, addr)
			return web.NewServer(ctx, web.Options{Session: opts, RecordRuns: true}).ListenAndServe(ctx, addr)
		},
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Forget the run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(false)
			defer log.Close()

			if err := config.SaveState(config.DefaultState()); err != nil {
				return fmt.Errorf("failed to reset run history: %w", err)
			}
			fmt.Println("Run history has been reset")
			return nil
		},
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recent upgrade runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(false)
			defer log.Close()

			state := config.LoadState()
			if len(state.Runs) == 0 {
				fmt.Println("No runs recorded")
				return nil
			}
			messages := ui.MessagesFor(ui.DetectLocale())
			for i := range state.Runs {
				run := &state.Runs[i]
				fmt.Printf("%s  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04"), ui.FormatLastRun(run, messages))
			}
			return nil
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "Print debug information like config paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(false)
			defer log.Close()

			cfg := config.LoadConfig()

			configPath, err := config.ConfigPath()
			if err != nil {
				return fmt.Errorf("failed to get config directory: %w", err)
			}
			configJson, _ := json.MarshalIndent(cfg, "", "  ")

			fmt.Printf("Config: %s\n%s\n", configPath, configJson)
			fmt.Printf("Upgrade command: %s\n", cfg.Command())
			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of topgrade-gui",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("topgrade-gui version %s\n", version)
		},
	}
)

func applyLogLevel(cfg *config.Config) {
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		log.WarningLog.Printf("%v", err)
	}
}

// sessionOptions builds the session from the config. --program replaces the
// configured command and its arguments; trailing arguments replace the configured
// arguments or extend the --program command line.
func sessionOptions(cfg *config.Config, args []string) (session.Options, error) {
	command := cfg.Command()
	cmdArgs := cfg.UpgradeArgs
	if programFlag != "" {
		fields := strings.Fields(programFlag)
		if len(fields) == 0 {
			return session.Options{}, fmt.Errorf("invalid program %q", programFlag)
		}
		command = fields[0]
		cmdArgs = append(fields[1:], args...)
	} else if len(args) > 0 {
		cmdArgs = args
	}

	return session.Options{
		Command:    command,
		Args:       cmdArgs,
		Env:        cfg.BuildEnv(os.Environ()),
		Rows:       cfg.Rows,
		Cols:       cfg.Cols,
		ScanWindow: cfg.ScanWindow,
		Matcher:    prompt.NewMatcher().WithPasswordPhrases(cfg.PasswordPhrases),
	}, nil
}

func init() {
	rootCmd.Flags().StringVarP(&programFlag, "program", "p", "",
		"Program to run instead of topgrade (e.g. 'topgrade --dry-run')")
	rootCmd.Flags().BoolVar(&plainFlag, "plain", false,
		"Run without the TUI, answering prompts from stdin")
	rootCmd.Flags().BoolVarP(&startFlag, "start", "s", false,
		"Start the upgrade right away instead of showing the welcome screen")
	rootCmd.Flags().StringVar(&localeFlag, "locale", "",
		"UI language (en, pt). Defaults to LC_ALL, LC_MESSAGES or LANG")

	serveCmd.Flags().StringVar(&addrFlag, "addr", "",
		"Address to listen on. Defaults to listen_addr from the config")
	serveCmd.Flags().StringVarP(&programFlag, "program", "p", "",
		"Program to run instead of topgrade")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
