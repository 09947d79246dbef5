// Package setup holds the interactive terminal pieces: the riskd configuration
// wizard, the asset picker and the risk report renderer.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/cryptorisk/config"
)

// DefaultConfigFile is where RunTUI writes the generated configuration.
const DefaultConfigFile = "riskd.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers collected by the wizard.
type answers struct {
	listenAddr     string
	logLevel       string
	requestTimeout string
	maxAttempts    string
	coinGeckoKey   string
	enableBybit    bool
	corsOrigins    string
}

func defaultAnswers() answers {
	d := config.Default()
	return answers{
		listenAddr:     d.ListenAddr,
		logLevel:       d.LogLevel,
		requestTimeout: d.RequestTimeout.String(),
		maxAttempts:    strconv.Itoa(d.Retry.MaxAttempts),
		corsOrigins:    strings.Join(d.CORSOrigins, ","),
	}
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	if path == "" {
		path = DefaultConfigFile
	}
	a := defaultAnswers()
	var confirm bool

	showStep := func(step string) {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("RISKD CONFIG WIZARD"))
		fmt.Println(stepStyle.Render(step))
	}

	showStep("STEP 1: SERVER")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Defaults are prefilled, press enter to keep them.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&a.listenAddr).
				Validate(validateNotEmpty),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("Info", "info"),
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&a.logLevel),
			huh.NewInput().
				Title("CORS origins").
				Description("Comma separated").
				Value(&a.corsOrigins),
		),
	).Run()
	if err != nil {
		return err
	}

	showStep("STEP 2: MARKET DATA")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Upstream request timeout").
				Description("Per attempt, e.g. 10s").
				Value(&a.requestTimeout).
				Validate(validateDuration),
			huh.NewInput().
				Title("Attempts per upstream request").
				Value(&a.maxAttempts).
				Validate(validateAttempts),
			huh.NewInput().
				Title("CoinGecko API key").
				Description("Optional demo key").
				EchoMode(huh.EchoModePassword).
				Value(&a.coinGeckoKey),
			huh.NewConfirm().
				Title("Use Bybit between Binance and CoinGecko?").
				Value(&a.enableBybit),
		),
	).Run()
	if err != nil {
		return err
	}

	showStep("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Listen: %s\nLog level: %s\nTimeout: %s\nAttempts: %s\nBybit: %t\n",
		a.listenAddr, a.logLevel, a.requestTimeout, a.maxAttempts, a.enableBybit,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	data, err := yaml.Marshal(a.configTmp())
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nRun: riskd -config %s", path, path)))
	return nil
}

func (a answers) configTmp() config.ConfigTmp {
	var c config.ConfigTmp
	c.ListenAddr = strings.TrimSpace(a.listenAddr)
	c.LogLevel = a.logLevel
	c.RequestTimeout = strings.TrimSpace(a.requestTimeout)
	c.Retry.MaxAttempts, _ = strconv.Atoi(strings.TrimSpace(a.maxAttempts))
	c.CoinGecko.APIKey = strings.TrimSpace(a.coinGeckoKey)
	c.Bybit.Enabled = a.enableBybit

	for _, origin := range strings.Split(a.corsOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			c.CORSOrigins = append(c.CORSOrigins, origin)
		}
	}
	return c
}

func validateNotEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a duration like 10s")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateAttempts(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 1 || n > 10 {
		return fmt.Errorf("must be between 1 and 10")
	}
	return nil
}
