package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/linksift/linksift/internal/app"
	"github.com/linksift/linksift/internal/cache"
	"github.com/linksift/linksift/internal/connectivity"
	"github.com/linksift/linksift/internal/domain"
	"github.com/linksift/linksift/internal/libredirect"
	"github.com/linksift/linksift/internal/logger"
	"github.com/linksift/linksift/internal/resolver"
	"github.com/linksift/linksift/internal/version"
)

var (
	// resolve flags
	resolveTimeout  time.Duration
	userAgent       string
	directoryFile   string
	preferencesFile string
	rulesFile       string
	allowDarknets   bool
	skipSubstitute  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "linksift",
	Short:   "URL resolution and target selection daemon",
	Version: version.Version,
	Long: `linksift unwraps redirect chains behind shared links, swaps known
service hosts for privacy-friendly frontends, and computes the list of
installed applications able to handle the final URL.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the resolution daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.New().Run()
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve one URL and print the outcome as JSON",
	Long: `Resolve runs the pipeline once without the daemon: no caches, no
remote service. Useful for debugging a link by hand.`,
	Example: `  linksift resolve https://bit.ly/example
  linksift resolve --directory directory.yaml https://twitter.com/some/status`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().DurationVarP(&resolveTimeout, "timeout", "t", 5*time.Second, "Connect timeout for redirect probing")
	resolveCmd.Flags().StringVar(&userAgent, "user-agent", "Mozilla/5.0 (compatible; linksift)", "User-Agent sent on probes")
	resolveCmd.Flags().StringVar(&directoryFile, "directory", "", "Frontend directory file (yaml); empty disables substitution")
	resolveCmd.Flags().StringVar(&preferencesFile, "preferences", "", "Substitution preferences file (yaml); empty enables every service with defaults")
	resolveCmd.Flags().StringVar(&rulesFile, "rules", "", "Dynamic substitution rules file (yaml)")
	resolveCmd.Flags().BoolVar(&allowDarknets, "allow-darknets", false, "Resolve onion/i2p/lokinet hosts")
	resolveCmd.Flags().BoolVar(&skipSubstitute, "no-substitute", false, "Skip the frontend substitution stage")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
}

type resolveOutput struct {
	Input        string                     `json:"input"`
	FinalURL     string                     `json:"final_url"`
	Result       string                     `json:"result"`
	ResolvedURL  string                     `json:"resolved_url,omitempty"`
	Error        string                     `json:"error,omitempty"`
	Substitution *domain.SubstitutionResult `json:"substitution,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	rawURL := args[0]
	log := logger.Nop()

	var substituter resolver.Substituter
	if directoryFile != "" && !skipSubstitute {
		directory, err := libredirect.LoadDirectory(directoryFile)
		if err != nil {
			return fmt.Errorf("load directory: %w", err)
		}
		prefs, err := libredirect.LoadPreferences(preferencesFile)
		if err != nil {
			return fmt.Errorf("load preferences: %w", err)
		}
		if preferencesFile == "" {
			// One-shot runs have no saved preferences; substitute every
			// known service with its default frontend.
			prefs = libredirect.Preferences{Enabled: directory.ServiceKeys()}
		}
		engine := libredirect.NewEngine(directory, prefs)
		if rulesFile != "" {
			rules, err := libredirect.LoadDynamicRules(rulesFile)
			if err != nil {
				return fmt.Errorf("load dynamic rules: %w", err)
			}
			engine.SetDynamicRules(rules)
		}
		substituter = engine
	}

	orchestrator := resolver.NewOrchestrator(
		cache.New(nil, nil),
		resolver.NewLocal(userAgent, 1<<20),
		nil,
		connectivity.NewChecker("dns.google", 2*time.Second, log),
		"",
		log,
	)
	pipeline := resolver.NewPipeline(orchestrator, substituter, rulesFile != "", log)

	outcome := pipeline.Run(cmd.Context(), domain.ResolveRequest{
		URL:            rawURL,
		ConnectTimeout: resolveTimeout,
		AllowDarknets:  allowDarknets,
	})

	out := resolveOutput{
		Input:        rawURL,
		FinalURL:     outcome.FinalURL,
		Result:       "skipped",
		Substitution: outcome.Substitution,
	}
	if result := outcome.Result; result != nil {
		out.Result = result.Type.String()
		if resolved, ok := result.ResolvedURL(); ok {
			out.ResolvedURL = resolved
		}
		if result.Err != nil {
			out.Error = result.Err.Error()
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
