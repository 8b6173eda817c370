package scheduler

import (
	"context"
	"fmt"
	"strings"

	"BiasSentinel/internal/analyzer"
	"BiasSentinel/internal/model"
	"BiasSentinel/internal/notifier"
	"BiasSentinel/internal/verifier"
	"BiasSentinel/internal/weights"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const sendRetries = 3

// Scheduler manages all cron tasks and operator commands.
type Scheduler struct {
	Cron      *cron.Cron
	Runner    *analyzer.Runner
	Retrainer *analyzer.Retrainer
	Verifier  *verifier.Verifier
	Weights   *weights.Manager
	Notifier  notifier.Notifier
	Symbols   []string
	Ctx       context.Context
	logger    zerolog.Logger
}

// NewScheduler creates a new Scheduler. A nil notifier discards messages.
func NewScheduler(ctx context.Context, runner *analyzer.Runner, rt *analyzer.Retrainer, v *verifier.Verifier, wm *weights.Manager, n notifier.Notifier, symbols []string, logger zerolog.Logger) *Scheduler {
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Runner:    runner,
		Retrainer: rt,
		Verifier:  v,
		Weights:   wm,
		Notifier:  n,
		Symbols:   symbols,
		Ctx:       ctx,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the analysis and verification tasks.
func (s *Scheduler) RegisterAll(analysisCron, verifyCron string) error {
	if _, err := s.Cron.AddFunc(analysisCron, s.analysisTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	if _, err := s.Cron.AddFunc(verifyCron, s.verifyTask); err != nil {
		return fmt.Errorf("register verify task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunAnalysisNow executes the analysis task immediately (RUN_ON_START).
func (s *Scheduler) RunAnalysisNow() {
	s.analysisTask()
}

func (s *Scheduler) analysisTask() {
	s.logger.Info().Strs("symbols", s.Symbols).Msg("running analysis task")
	results := s.Runner.AnalyzeAll(s.Ctx, s.Symbols)

	var (
		reports []*model.AnalysisReport
		failed  []string
	)
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res.Symbol)
			continue
		}
		reports = append(reports, res.Report)
	}

	msg := notifier.FormatBiasSummary(reports)
	if len(failed) > 0 {
		msg += fmt.Sprintf("\n❌ failed: %s", strings.Join(failed, ", "))
	}
	s.trySend(msg)
}

// verifyTask grades due predictions. Retraining stays operator-triggered.
func (s *Scheduler) verifyTask() {
	s.logger.Info().Msg("running verify task")
	sum, err := s.Verifier.Run(s.Ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("verify")
		return
	}
	if sum.Checked > 0 {
		s.trySend(notifier.FormatVerifySummary(sum))
	}
}

// HandleCommand processes an operator command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Telegram appends @botname in group chats
	name := strings.SplitN(fields[0], "@", 2)[0]
	var arg string
	if len(fields) > 1 {
		arg = strings.ToUpper(fields[1])
	}

	switch name {
	case "/bias":
		if arg == "" {
			return notifier.FormatBiasSummary(s.Runner.Latest().All())
		}
		if rep, ok := s.Runner.Latest().Get(arg); ok {
			return notifier.FormatBiasReport(rep)
		}
		return s.analyzeOne(ctx, arg)
	case "/analyze":
		if arg == "" {
			s.analysisTask()
			return ""
		}
		return s.analyzeOne(ctx, arg)
	case "/weights":
		return notifier.FormatWeights(s.Weights.Snapshot())
	case "/retrain":
		out, err := s.Retrainer.Run(ctx)
		if err != nil {
			return fmt.Sprintf("❌ retrain failed: %v", err)
		}
		return notifier.FormatRetrainOutcome(out)
	case "/verify":
		sum, err := s.Verifier.Run(ctx)
		if err != nil {
			return fmt.Sprintf("❌ verify failed: %v", err)
		}
		return notifier.FormatVerifySummary(sum)
	default:
		return helpText
	}
}

const helpText = "Available commands:\n" +
	"• /bias [SYMBOL]\n" +
	"• /analyze [SYMBOL]\n" +
	"• /weights\n" +
	"• /retrain\n" +
	"• /verify"

func (s *Scheduler) analyzeOne(ctx context.Context, symbol string) string {
	rep, err := s.Runner.AnalyzeSymbol(ctx, symbol)
	if err != nil {
		return fmt.Sprintf("❌ analysis failed for %s: %v", symbol, err)
	}
	return notifier.FormatBiasReport(rep)
}

func (s *Scheduler) trySend(text string) {
	var err error
	if rs, ok := s.Notifier.(interface {
		SendWithRetry(ctx context.Context, text string, maxRetries int) error
	}); ok {
		err = rs.SendWithRetry(s.Ctx, text, sendRetries)
	} else {
		err = s.Notifier.Send(s.Ctx, text)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}
