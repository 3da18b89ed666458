package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings such as the backend URL, highlight colours and
how chat replies are produced when the assistant is unreachable.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a setting.

Keys:
  backend.base_url        Reader API root (http or https URL)
  backend.timeout         Per-request timeout, e.g. 30s
  backend.rate_limit      Requests per second
  backend.burst           Requests allowed in a burst
  auth.url                Auth service root
  auth.api_key            Auth service project key
  highlight.text_color    Colour of text highlights, e.g. #FFE28F
  highlight.area_color    Colour of area highlights
  chat.fallback           static or llm
  llm.base_url            OpenAI-compatible API root for the llm fallback
  llm.model               Model name
  llm.api_key             API key, if the endpoint needs one
  outbox.max_attempts     Replays before a change is skipped
  outbox.replay_interval  How often the reader replays the outbox`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE:  runSettingsPath,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the LLM used for offline chat replies",
	Long:  `Interactively configure an OpenAI-compatible model and switch chat.fallback to llm.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Backend]")
	cmd.Printf("  Base URL: %s\n", settings.Backend.BaseURL)
	cmd.Printf("  Timeout: %s\n", settings.Backend.Timeout)
	cmd.Printf("  Rate limit: %g/s (burst %d)\n", settings.Backend.RateLimit, settings.Backend.Burst)
	cmd.Println()

	cmd.Println("[Auth]")
	cmd.Printf("  URL: %s\n", settings.Auth.URL)
	if settings.Auth.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Auth.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	cmd.Println()

	cmd.Println("[Highlight]")
	cmd.Printf("  Text colour: %s\n", settings.Highlight.TextColor)
	cmd.Printf("  Area colour: %s\n", settings.Highlight.AreaColor)
	cmd.Println()

	cmd.Println("[Chat]")
	cmd.Printf("  Fallback: %s\n", settings.Chat.Fallback.Description())
	cmd.Println()

	cmd.Println("[LLM]")
	status := "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Outbox]")
	cmd.Printf("  Max attempts: %d\n", settings.Outbox.MaxAttempts)
	cmd.Printf("  Replay interval: %s\n", settings.Outbox.ReplayInterval)

	if settings.Chat.Fallback == domain.FallbackLLM && !settings.LLM.IsConfigured() {
		cmd.Println()
		cmd.Println("Warning: chat.fallback is llm but no model is configured.")
		cmd.Println("Run 'marginalia settings llm' to fix.")
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	value, ok := settingsService.Value(args[0])
	if !ok {
		return fmt.Errorf("%s is not set", args[0])
	}
	cmd.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("%s updated.\n", args[0])
	return nil
}

func runSettingsPath(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	cmd.Println(settingsService.Path())
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select an endpoint")
	presets := []struct {
		name    string
		baseURL string
	}{
		{"Ollama (local)", "http://localhost:11434/v1"},
		{"LM Studio (local)", "http://localhost:1234/v1"},
		{"OpenAI", "https://api.openai.com/v1"},
		{"Other", ""},
	}
	for i, p := range presets {
		cmd.Printf("  %d. %s\n", i+1, p.name)
	}
	cmd.Print("Choice [1]: ")
	choice := parseChoice(readLine(reader), len(presets), 1)

	baseURL := presets[choice-1].baseURL
	if baseURL == "" {
		cmd.Print("Base URL: ")
		baseURL = readLine(reader)
	}

	cmd.Print("Model: ")
	model := readLine(reader)
	if model == "" {
		return errors.New("model is required")
	}

	cmd.Print("API key (leave empty if none): ")
	apiKey := readPassword(cmd, reader)
	cmd.Println()

	updates := [][2]string{
		{"llm.base_url", baseURL},
		{"llm.model", model},
	}
	if apiKey != "" {
		updates = append(updates, [2]string{"llm.api_key", apiKey})
	}
	updates = append(updates, [2]string{"chat.fallback", string(domain.FallbackLLM)})

	for _, u := range updates {
		if err := settingsService.Set(u[0], u[1]); err != nil {
			return err
		}
	}

	cmd.Println("LLM configured. Chat replies fall back to it when the assistant is unreachable.")
	return nil
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
