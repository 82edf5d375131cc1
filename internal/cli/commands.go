package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SPYQWER1/aiagents-stock/config"
	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/display"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/service"
)

// cliContext hands each subcommand a config snapshot from the shared
// Manager. Environment variables override the file on every read.
type cliContext struct {
	mgr   *config.Manager
	debug bool
}

func (c *cliContext) config() *config.Config {
	cfg := c.mgr.Get()
	config.ApplyEnvOverrides(&cfg)
	if c.debug {
		cfg.Debug = true
	}
	return &cfg
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cc := &cliContext{}

	rootCmd := &cobra.Command{
		Use:   "aiagents-stock",
		Short: "AI 多智能体股票分析",
		Long: `aiagents-stock 是一个基于大语言模型的多智能体股票分析系统。
六位分析师并发分析 A股/港股/美股，经过团队讨论后给出最终投资决策。`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			mgr, err := config.NewManager(
				config.WithConfigPath(path),
				config.WithInitialConfig(config.DefaultConfig()),
			)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cc.mgr = mgr
			cc.debug, _ = cmd.Flags().GetBool("debug")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(cc)
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd(cc))
	rootCmd.AddCommand(newBatchCmd(cc))
	rootCmd.AddCommand(newHistoryCmd(cc))
	rootCmd.AddCommand(newConfigCmd(cc))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().String("config", "", "Configuration file path")

	return rootCmd
}

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd(cc *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [SYMBOL]",
		Short: "分析单只股票",
		Long: `对单只股票运行完整的多智能体分析。
Example: aiagents-stock analyze 600036 --analysts technical,fundamental`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var symbol string
			var err error
			if len(args) > 0 {
				symbol = dataflows.NormalizeSymbol(args[0])
			} else {
				symbol, err = promptForSymbol()
				if err != nil {
					return err
				}
			}

			period, _ := cmd.Flags().GetString("period")
			analysts, _ := cmd.Flags().GetStringSlice("analysts")
			interactive, _ := cmd.Flags().GetBool("interactive")
			if interactive && len(analysts) == 0 {
				analysts, err = promptForAnalysts()
				if err != nil {
					return err
				}
			}

			return runAnalyzeCommand(cc.config(), symbol, period, analysts)
		},
	}

	cmd.Flags().String("period", "daily", "K线周期")
	cmd.Flags().StringSlice("analysts", nil, "启用的分析师 (technical,fundamental,fund_flow,risk_management,market_sentiment,news_analyst)，默认全部")
	cmd.Flags().BoolP("interactive", "i", false, "交互式选择分析师")

	return cmd
}

// newBatchCmd creates the batch command
func newBatchCmd(cc *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [SYMBOL...]",
		Short: "批量分析多只股票",
		Long: `在有界的工作池上并发分析多只股票，单只失败或超时不影响其他股票。
Example: aiagents-stock batch 600036 000001 0700.HK`,
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := make([]string, 0, len(args))
			for _, arg := range args {
				symbols = append(symbols, dataflows.NormalizeSymbol(arg))
			}

			if file, _ := cmd.Flags().GetString("file"); file != "" {
				fromFile, err := readSymbolsFile(file)
				if err != nil {
					return err
				}
				symbols = append(symbols, fromFile...)
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no symbols given, pass them as arguments or via --file")
			}

			period, _ := cmd.Flags().GetString("period")
			analysts, _ := cmd.Flags().GetStringSlice("analysts")

			return runBatchCommand(cc.config(), symbols, period, analysts)
		},
	}

	cmd.Flags().String("file", "", "股票代码列表文件，每行一个代码")
	cmd.Flags().String("period", "daily", "K线周期")
	cmd.Flags().StringSlice("analysts", nil, "启用的分析师，默认全部")

	return cmd
}

// newHistoryCmd creates the history command
func newHistoryCmd(cc *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [ID]",
		Short: "查看历史分析记录",
		Long: `不带参数时列出最近的分析记录，带记录 ID 时展示完整报告。
Example: aiagents-stock history --limit 20`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := buildApp(ctx, cc.config())
			if err != nil {
				return err
			}
			defer app.Close()

			if len(args) == 1 {
				analysis, err := app.analysis.History(ctx, args[0])
				if err != nil {
					return fmt.Errorf("load analysis %s: %w", args[0], err)
				}
				fmt.Println(display.RenderAnalysis(analysis, domain.CanonicalRoles))
				return nil
			}

			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := app.repo.ListRecent(ctx, limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			fmt.Print(display.RenderHistory(entries))
			return nil
		},
	}

	cmd.Flags().Int("limit", 10, "最多列出的记录数")

	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("aiagents-stock v1.0.0")
			fmt.Println("AI 多智能体股票分析系统")
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(cc *cliContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "配置管理",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "显示当前配置",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cc.config(), cc.mgr.Path())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "校验配置和依赖",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cc.config())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "修改配置文件中的一项",
		Long: `通过 Manager 更新配置文件，写入前校验。
Example: aiagents-stock config set kline_days 120`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cc.mgr.Get()
			if err := applyConfigKey(&cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := cc.mgr.Update(cfg); err != nil {
				return err
			}
			fmt.Println(display.Success(fmt.Sprintf("%s 已更新，写入 %s", args[0], cc.mgr.Path())))
			return nil
		},
	})

	return configCmd
}

// runAnalyzeCommand executes the single-stock analysis workflow
func runAnalyzeCommand(cfg *config.Config, symbol, period string, analysts []string) error {
	ctx := context.Background()

	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if err := dataflows.ValidateSymbol(symbol); err != nil {
		return err
	}

	roles, err := resolveRequestedRoles(analysts)
	if err != nil {
		return err
	}

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Printf("🚀 开始分析 %s (%s)\n", symbol, dataflows.ClassifySymbol(symbol))

	analysis, performErr := app.analysis.Analyze(ctx, service.AnalyzeRequest{
		Symbol:       symbol,
		Period:       period,
		EnabledRoles: analysts,
	})
	if analysis != nil {
		fmt.Println(display.RenderAnalysis(analysis, roles))
	}
	if performErr != nil {
		return fmt.Errorf("analysis failed: %w", performErr)
	}

	fmt.Println(display.Success("分析完成"))
	return nil
}

// runBatchCommand executes the batch analysis workflow
func runBatchCommand(cfg *config.Config, symbols []string, period string, analysts []string) error {
	ctx := context.Background()

	roles, err := resolveRequestedRoles(analysts)
	if err != nil {
		return err
	}

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Printf("🚀 开始批量分析 %d 只股票\n", len(symbols))

	results := app.batch.Run(ctx, symbols, period, analysts)

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Println(display.Error(fmt.Errorf("%s: %w", res.Symbol, res.Err)))
			continue
		}
		fmt.Println(display.RenderAnalysis(res.Analysis, roles))
	}

	if failed > 0 {
		fmt.Printf("⚠️  %d/%d 只股票分析失败\n", failed, len(results))
	} else {
		fmt.Println(display.Success("批量分析完成"))
	}
	return nil
}

// resolveRequestedRoles mirrors the service default: empty means all roles.
// Unknown keys are rejected here so bad input fails before any network call.
func resolveRequestedRoles(keys []string) ([]domain.AgentRole, error) {
	if len(keys) == 0 {
		return domain.CanonicalRoles, nil
	}
	return domain.ParseRoles(keys)
}

// applyConfigKey sets one editable config field from its JSON key.
func applyConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "deepseek_api_key":
		cfg.DeepSeekAPIKey = value
	case "deepseek_base_url":
		cfg.DeepSeekBaseURL = value
	case "deepseek_model":
		cfg.DeepSeekModel = value
	case "longport_app_key":
		cfg.LongportAppKey = value
	case "longport_app_secret":
		cfg.LongportAppSecret = value
	case "longport_access_token":
		cfg.LongportAccessToken = value
	case "kline_days":
		return setIntField(&cfg.KlineDays, key, value)
	case "analyst_timeout_sec":
		return setIntField(&cfg.AnalystTimeoutSec, key, value)
	case "batch_workers":
		return setIntField(&cfg.BatchWorkers, key, value)
	case "batch_timeout_sec":
		return setIntField(&cfg.BatchTimeoutSec, key, value)
	case "cache_enabled":
		return setBoolField(&cfg.CacheEnabled, key, value)
	case "debug":
		return setBoolField(&cfg.Debug, key, value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func setIntField(dst *int, key, value string) error {
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return fmt.Errorf("%s expects an integer, got %q", key, value)
	}
	*dst = n
	return nil
}

func setBoolField(dst *bool, key, value string) error {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		*dst = true
	case "false", "0", "no", "off":
		*dst = false
	default:
		return fmt.Errorf("%s expects a boolean, got %q", key, value)
	}
	return nil
}

func readSymbolsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbols file: %w", err)
	}
	defer f.Close()

	var symbols []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbols = append(symbols, dataflows.NormalizeSymbol(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}
	return symbols, nil
}

// showConfig displays the current configuration
func showConfig(cfg *config.Config, configPath string) {
	fmt.Println("📋 当前配置:")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("Config File:          %s\n", configPath)
	fmt.Printf("Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Printf("Data Directory:       %s\n", cfg.DataDir)
	fmt.Printf("Cache Directory:      %s\n", cfg.DataCacheDir)
	fmt.Printf("Database Path:        %s\n", cfg.DBPath)
	fmt.Println()
	fmt.Printf("DeepSeek Model:       %s\n", cfg.DeepSeekModel)
	fmt.Printf("DeepSeek Base URL:    %s\n", cfg.DeepSeekBaseURL)
	fmt.Println()
	fmt.Printf("Kline Days:           %d\n", cfg.KlineDays)
	fmt.Printf("Analyst Timeout:      %ds\n", cfg.AnalystTimeoutSec)
	fmt.Printf("Batch Workers:        %d\n", cfg.BatchWorkers)
	fmt.Printf("Batch Timeout:        %ds\n", cfg.BatchTimeoutSec)
	fmt.Println()
	fmt.Printf("Cache Enabled:        %t\n", cfg.CacheEnabled)
	fmt.Printf("Debug Mode:           %t\n", cfg.Debug)
	fmt.Println()

	fmt.Println("🔌 API Configuration:")
	fmt.Println("─────────────────────")
	if cfg.DeepSeekAPIKey != "" {
		fmt.Println("DeepSeek API:         ✅ Configured")
	} else {
		fmt.Println("DeepSeek API:         ❌ Not configured")
	}
	if cfg.LongportAppKey != "" && cfg.LongportAppSecret != "" && cfg.LongportAccessToken != "" {
		fmt.Println("Longport API:         ✅ Configured (港股可用)")
	} else {
		fmt.Println("Longport API:         ❌ Not configured (港股不可用)")
	}
}

// validateConfig validates the configuration and dependencies
func validateConfig(cfg *config.Config) error {
	fmt.Println("🔍 校验配置...")
	fmt.Println("═══════════════════════════════════════")

	fmt.Print("📁 Checking directories... ")
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Println("❌")
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Println("✅")

	fmt.Print("⚙️  Checking configuration values... ")
	if err := cfg.Validate(); err != nil {
		fmt.Println("❌")
		return err
	}
	fmt.Println("✅")

	fmt.Print("🔑 Checking API keys... ")
	var warnings []string
	if cfg.DeepSeekAPIKey == "" {
		warnings = append(warnings, "DEEPSEEK_API_KEY 未配置，无法调用分析师")
	}
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		warnings = append(warnings, "Longport 凭证未配置，港股行情不可用")
	}
	if len(warnings) > 0 {
		fmt.Println("⚠️")
		for _, warning := range warnings {
			fmt.Printf("  ⚠️  %s\n", warning)
		}
	} else {
		fmt.Println("✅")
	}

	fmt.Println()
	if len(warnings) == 0 {
		fmt.Println("✅ 配置校验通过!")
	} else {
		fmt.Printf("⚠️  配置校验完成，共 %d 条警告。\n", len(warnings))
	}
	return nil
}

// runInteractiveMode starts the interactive analysis loop. Config file
// edits made while the loop is waiting apply to the next run.
func runInteractiveMode(cc *cliContext) error {
	fmt.Println("🚀 欢迎使用 aiagents-stock 多智能体股票分析")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := cc.mgr.Watch(ctx, func(cfg config.Config) {
		fmt.Printf("🔄 配置已重新加载: %s\n", cc.mgr.Path())
	}); err != nil {
		fmt.Println(display.Error(fmt.Errorf("config watch unavailable: %w", err)))
	}

	for {
		symbol, err := promptForSymbol()
		if err != nil {
			// survey returns an error on Ctrl-C, treat it as exit
			fmt.Println("\n👋 再见!")
			return nil
		}

		analysts, err := promptForAnalysts()
		if err != nil {
			fmt.Println("\n👋 再见!")
			return nil
		}

		if err := runAnalyzeCommand(cc.config(), symbol, "daily", analysts); err != nil {
			fmt.Println(display.Error(err))
		}

		fmt.Println("\n" + strings.Repeat("-", 60))
		var again bool
		if err := askContinue(&again); err != nil || !again {
			fmt.Println("👋 再见!")
			return nil
		}
		fmt.Println()
	}
}

func askContinue(again *bool) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("继续分析下一只股票? (y/N): ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	answer := strings.TrimSpace(strings.ToLower(line))
	*again = answer == "y" || answer == "yes"
	return nil
}
