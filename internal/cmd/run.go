package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/qcbench/qcbench/internal/config"
	"github.com/qcbench/qcbench/internal/engine"
	"github.com/qcbench/qcbench/internal/inference"
	"github.com/qcbench/qcbench/internal/judge/providers"
	"github.com/qcbench/qcbench/internal/judgeorch"
	"github.com/qcbench/qcbench/internal/lifecycle"
	"github.com/qcbench/qcbench/internal/logger"
	"github.com/qcbench/qcbench/internal/retry"
	"github.com/qcbench/qcbench/internal/runlog"
	"github.com/qcbench/qcbench/internal/store"
	"github.com/qcbench/qcbench/internal/tagresolver"
)

// NewRunCommand builds the `qcbench run` command: the Controller's Run
// operation (spec.md §4.1), exposing the full flag surface of spec.md §6.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Test quantized model variants against an inference server and judge them",
		Long: `run drives one benchmark: it tests each requested model variant against an
inference server, captures log-probabilities and timing, and judges each
variant against a base variant using a local or cloud judge model.

Examples:
  qcbench run --model llama3:8b --quants "llama3:q4_0,llama3:q8_0"
  qcbench run --model llama3:8b --quants "llama3:*" --base llama3:fp16 --judge @claude:$ANTHROPIC_API_KEY/claude-sonnet-4
  qcbench run --model llama3:8b --quants "llama3:q4_0" --ondemand --judgemode parallel`,
		RunE: runRun,
	}

	cmd.Flags().String("model", "", "target model name (required)")
	cmd.Flags().String("quants", "", "comma-separated variant specifiers, e.g. \"llama3:q4_0,llama3:*\" (required)")
	cmd.Flags().String("base", "", "tag to elect as the comparison base (default: the first fp16/f16/fp32/f32/bf16 variant, else the first variant listed)")
	cmd.Flags().String("judge", "", "judge specifier: \"@provider:key/model\", a model on the inference server, or empty to disable")
	cmd.Flags().String("judgebest", "", "best-answer judge specifier, same format as --judge")
	cmd.Flags().String("judgemode", "serial", "judge scheduling mode: serial or parallel")
	cmd.Flags().Int("judgectx", 0, "judge context length override (0 = auto: 2*testCtx+2048)")
	cmd.Flags().Duration("timeout", 120*time.Second, "per-request timeout (stored on the run parameters; no request applies it)")
	cmd.Flags().Int("seed", 0, "generation seed")
	cmd.Flags().Float64("temperature", 0.7, "generation temperature")
	cmd.Flags().Float64("top-p", 0.9, "generation top-p")
	cmd.Flags().Int("top-k", 40, "generation top-k")
	cmd.Flags().Float64("repeat-penalty", 1.1, "generation repeat penalty")
	cmd.Flags().Float64("frequency-penalty", 0, "generation frequency penalty")
	cmd.Flags().Bool("think", false, "enable thinking mode, forwarded verbatim to the inference server")
	cmd.Flags().String("thinklevel", "", "thinking level string, forwarded verbatim in place of --think when set")
	cmd.Flags().Bool("force", false, "re-run every variant, ignoring prior completion")
	cmd.Flags().Bool("rejudge", false, "re-run every judgment without retesting")
	cmd.Flags().Bool("ondemand", false, "pull missing models before testing and delete them on success")
	cmd.Flags().Bool("nounloadall", false, "skip the proactive unload-all before each variant")
	cmd.Flags().Bool("verbose", false, "verbose flag (stored on the run parameters and the console logger; no output depends on it)")
	cmd.Flags().String("output", "", "results document path (default: derived from --model)")
	cmd.Flags().String("testsuite", "", "test suite path (.yaml, .yml, or .md; default: built-in suite)")
	cmd.Flags().String("logfile", "", "write logs to this directory instead of the console")
	cmd.Flags().Bool("quiet", false, "discard progress output entirely")
	cmd.Flags().String("repository", "", "repository label recorded in the results document")
	cmd.Flags().String("endpoint", "http://localhost:11434", "inference server base URL")
	cmd.Flags().String("config", "", "path to .qcbench/config.yaml (default: discovered via QC_HOME)")

	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("quants")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	p, cliCfg, err := paramsFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cliCfg.configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := buildLogger(cfg, cliCfg)
	if err != nil {
		return err
	}
	defer closeLog()

	client := inference.NewClient(cliCfg.endpoint, &http.Client{})
	resolver := tagresolver.New(client, tagresolver.NewHuggingFaceLister(nil))
	judges := providers.DefaultRegistry()
	lm := lifecycle.New(client)
	lm.UnloadPollInterval = cfg.Lifecycle.UnloadPollInterval
	lm.UnloadMaxWait = cfg.Lifecycle.UnloadMaxWait
	lm.SettleDelay = cfg.Lifecycle.SettleDelay
	lm.PullQuickAttempts = cfg.Retry.PullQuickAttempts
	lm.PullQuickDelay = cfg.Retry.PullQuickDelay
	lm.PullSlowAttempts = cfg.Retry.PullSlowAttempts
	lm.PullSlowDelay = cfg.Retry.PullSlowDelay
	lm.PullSlowDelayCap = cfg.Retry.PullSlowDelayCap
	e := engine.New(client, lm, resolver, judges, retryTuning(cfg), log)
	e.Manifests = tagresolver.NewHuggingFaceManifestFetcher(nil)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	startedAt := time.Now()
	result, runErr := e.Run(ctx, p)
	recordRunHistory(cfg, p, result, startedAt)

	if runErr != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "Error: %v\n", runErr)
	}
	if result.OutputPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "results: %s\n", result.OutputPath)
	}
	if result.ExitCode != engine.ExitSuccess {
		os.Exit(result.ExitCode)
	}
	return nil
}

// cliConfig bundles the flags that shape collaborator construction rather
// than the engine.Params run inputs themselves.
type cliConfig struct {
	endpoint   string
	logFile    string
	verbose    bool
	quiet      bool
	configPath string
}

func paramsFromFlags(cmd *cobra.Command) (engine.Params, cliConfig, error) {
	f := cmd.Flags()

	model, _ := f.GetString("model")
	quants, _ := f.GetString("quants")
	variants := splitCommaList(quants)
	if len(variants) == 0 {
		return engine.Params{}, cliConfig{}, fmt.Errorf("--quants must name at least one variant specifier")
	}

	judgemodeStr, _ := f.GetString("judgemode")
	var mode judgeorch.Mode
	switch judgemodeStr {
	case "serial", "":
		mode = judgeorch.ModeSerial
	case "parallel":
		mode = judgeorch.ModeParallel
	default:
		return engine.Params{}, cliConfig{}, fmt.Errorf("--judgemode must be serial or parallel, got %q", judgemodeStr)
	}

	seed, _ := f.GetInt("seed")
	temperature, _ := f.GetFloat64("temperature")
	topP, _ := f.GetFloat64("top-p")
	topK, _ := f.GetInt("top-k")
	repeatPenalty, _ := f.GetFloat64("repeat-penalty")
	frequencyPenalty, _ := f.GetFloat64("frequency-penalty")
	think, _ := f.GetBool("think")
	thinkLevel, _ := f.GetString("thinklevel")

	var thinkValue any = think
	if thinkLevel != "" {
		thinkValue = thinkLevel
	}

	base, _ := f.GetString("base")
	judge, _ := f.GetString("judge")
	judgeBest, _ := f.GetString("judgebest")
	judgeCtx, _ := f.GetInt("judgectx")
	timeout, _ := f.GetDuration("timeout")
	force, _ := f.GetBool("force")
	rejudge, _ := f.GetBool("rejudge")
	onDemand, _ := f.GetBool("ondemand")
	noUnloadAll, _ := f.GetBool("nounloadall")
	verbose, _ := f.GetBool("verbose")
	output, _ := f.GetString("output")
	testSuite, _ := f.GetString("testsuite")
	logFile, _ := f.GetString("logfile")
	quiet, _ := f.GetBool("quiet")
	repository, _ := f.GetString("repository")
	endpoint, _ := f.GetString("endpoint")
	configPath, _ := f.GetString("config")

	p := engine.Params{
		TargetModel:        model,
		VariantSpecifiers:  variants,
		TestSuitePath:      testSuite,
		BaseTag:            base,
		JudgeSpecifier:     judge,
		JudgeBestSpecifier: judgeBest,
		JudgeMode:          mode,
		RunOptions: store.RunOptions{
			Temperature:      temperature,
			Seed:             seed,
			TopP:             topP,
			TopK:             topK,
			RepeatPenalty:    repeatPenalty,
			FrequencyPenalty: frequencyPenalty,
			Think:            think,
			ThinkLevel:       thinkLevel,
		},
		Think:              thinkValue,
		Timeout:            timeout,
		JudgeContextLength: judgeCtx,
		Force:              force,
		Rejudge:            rejudge,
		OnDemand:           onDemand,
		NoUnloadAll:        noUnloadAll,
		Verbose:            verbose,
		OutputPath:         output,
		Repository:         repository,
	}

	return p, cliConfig{endpoint: endpoint, logFile: logFile, verbose: verbose, quiet: quiet, configPath: configPath}, nil
}

func loadConfig(explicitPath string) (*config.Config, error) {
	if explicitPath != "" {
		return config.Load(explicitPath)
	}
	home, err := config.GetQCHome()
	if err != nil {
		return config.DefaultConfig(), nil
	}
	return config.Load(filepath.Join(home, "config.yaml"))
}

func buildLogger(cfg *config.Config, cli cliConfig) (engine.Logger, func(), error) {
	noop := func() {}
	if cli.quiet {
		return logger.NewNoOpLogger(), noop, nil
	}
	if cli.logFile != "" {
		fl, err := logger.NewFileLogger(cli.logFile, cfg.LogLevel)
		if err != nil {
			return nil, noop, fmt.Errorf("create file logger: %w", err)
		}
		return fl, func() { fl.Close() }, nil
	}
	cl := logger.NewConsoleLogger(os.Stdout, cfg.LogLevel)
	cl.SetVerbose(cli.verbose)
	return cl, noop, nil
}

func retryTuning(cfg *config.Config) engine.RetryTuning {
	return engine.RetryTuning{
		Normal: retry.NormalPolicy(cfg.Retry.NormalMaxAttempts, cfg.Retry.NormalBaseDelay, cfg.Retry.NormalMaxDelay),
		Judge:  retry.JudgePolicy(cfg.Retry.JudgeMaxAttempts, cfg.Retry.JudgeMinDelay, cfg.Retry.JudgeMaxDelay),
	}
}

// recordRunHistory appends a ledger row for this invocation (SPEC_FULL.md
// §6). The ledger is pure observability: a failure to write it is logged
// to stderr and never changes the run's own exit code.
func recordRunHistory(cfg *config.Config, p engine.Params, result engine.Result, startedAt time.Time) {
	if !cfg.RunLog.Enabled {
		return
	}
	dbPath, err := config.GetRunLogDBPath(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not resolve run history ledger path: %v\n", err)
		return
	}
	ledger, err := runlog.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open run history ledger: %v\n", err)
		return
	}
	defer ledger.Close()

	suiteName := p.TestSuitePath
	if suiteName == "" {
		suiteName = "default"
	}

	if _, err := ledger.RecordRun(context.Background(), runlog.Entry{
		TargetModel:    p.TargetModel,
		SuiteName:      suiteName,
		VariantTags:    p.VariantSpecifiers,
		StartedAt:      startedAt,
		EndedAt:        time.Now(),
		ExitCode:       result.ExitCode,
		PulledOnDemand: result.PulledOnDemand,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record run history: %v\n", err)
	}
}

func splitCommaList(s string) []string {
	var out []string
	for _, piece := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(piece); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
