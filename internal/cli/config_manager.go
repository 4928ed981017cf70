package cli

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/dyike/pricemove/config"
)

func newConfigCmd(s *session) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := s.manager()
			if err != nil {
				return err
			}
			out, err := toml.Marshal(masked(mgr.Get().WithEnv()))
			if err != nil {
				return err
			}
			fmt.Fprint(s.out, string(out))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := s.manager()
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, mgr.Path())
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := s.manager()
			if err != nil {
				return err
			}
			return validateConfig(s, mgr.Get().WithEnv())
		},
	})

	return configCmd
}

func validateConfig(s *session, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		displayError(s.out, err)
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		displayError(s.out, err)
		return err
	}

	check := func(name string, ok bool, hint string) {
		if ok {
			fmt.Fprintf(s.out, "%-16s %s\n", name, completedStyle.Render("configured"))
			return
		}
		fmt.Fprintf(s.out, "%-16s %s %s\n", name, errorStyle.Render("missing"), labelStyle.Render(hint))
	}
	check("LLM ("+cfg.LLMProvider+")", cfg.LLMAPIKey() != "", "analyses cannot run")
	check("FMP peers", cfg.FMPAPIKey != "", "peer comparison disabled")
	if cfg.NewsProvider == "finnhub" {
		check("Finnhub", cfg.FinnhubAPIKey != "", "news requests will fail")
	}
	if cfg.QuoteProvider == "longport" {
		check("Longport", cfg.LongportAppKey != "" && cfg.LongportAccessToken != "", "quotes unavailable")
	}

	if cfg.LLMAPIKey() == "" {
		return fmt.Errorf("no API key for llm provider %s", cfg.LLMProvider)
	}
	displaySuccess(s.out, "Configuration is valid")
	return nil
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + "****" + v[len(v)-2:]
}

func masked(cfg config.Config) config.Config {
	for _, p := range []*string{
		&cfg.DeepSeekAPIKey, &cfg.OpenAIAPIKey, &cfg.AnthropicAPIKey, &cfg.GeminiAPIKey,
		&cfg.FMPAPIKey, &cfg.FinnhubAPIKey,
		&cfg.LongportAppKey, &cfg.LongportAppSecret, &cfg.LongportAccessToken,
	} {
		*p = mask(*p)
	}
	return cfg
}
