package core

import (
	"ircprobe/config"
	"ircprobe/internal/events"
	"ircprobe/internal/metrics"
	"ircprobe/internal/scenario"
	"ircprobe/internal/session"
	"ircprobe/internal/transport"
	"ircprobe/util"
)

// Build constructs the Mode the configuration asks for.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	scs := buildScenarios(cfg)
	if cfg.DryRun {
		return buildPlan(cfg, scs, logger)
	}
	return buildRun(cfg, scs, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildRun(cfg *config.Config, scs []*scenario.Scenario, logger *util.Logger) (Mode, error) {
	dialer, err := buildDialer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &RunMode{
		Scenarios: scs,
		Options: scenario.Options{
			Dialer:          dialer,
			ConnectAttempts: cfg.ConnectAttempts,
			Timeout:         cfg.Timeout,
			SettlePause:     cfg.SettlePause,
			Session: session.Options{
				Pacer:      buildPacer(cfg),
				ShortPause: cfg.ShortPause,
				Pause:      cfg.Pause,
				ReadSize:   cfg.ReadSize,
				Recorder:   events.NewRecorder(),
				Metrics:    metrics.New(),
				Logger:     logger,
			},
		},
		EventsPath:   cfg.EventsPath,
		GoldenPath:   cfg.GoldenPath,
		UpdateGolden: cfg.UpdateGolden,
		Strict:       cfg.Strict,
		Stats:        cfg.Stats,
		SelfTest:     cfg.SelfTest,
		Logger:       logger,
	}, nil
}

func buildPlan(cfg *config.Config, scs []*scenario.Scenario, logger *util.Logger) (Mode, error) {
	m := &PlanMode{
		Scenarios: scs,
		Pacing:    describePacing(cfg),
		Timeout:   cfg.Timeout,
		Logger:    logger,
	}
	if cfg.SelfTest {
		return m, nil
	}
	dialer, err := buildDialer(cfg, logger)
	if err != nil {
		return nil, err
	}
	m.Dialer = dialer
	return m, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildScenarios resolves the selected scenario names into runnable
// scenarios with their targets.  Host and password fall back to each
// scenario's own default.
func buildScenarios(cfg *config.Config) []*scenario.Scenario {
	var out []*scenario.Scenario
	for _, name := range cfg.ExpandScenarios() {
		switch name {
		case config.ScenarioEndToEnd:
			out = append(out, scenario.EndToEnd(scenario.Target{
				Host:     cfg.HostFor(config.DefaultE2EHost),
				Port:     cfg.PortOrDefault(),
				Password: cfg.PasswordFor(config.DefaultE2EPassword),
			}))
		case config.ScenarioModes:
			out = append(out, scenario.Modes(scenario.Target{
				Host:     cfg.HostFor(config.DefaultModeHost),
				Port:     cfg.PortOrDefault(),
				Password: cfg.PasswordFor(config.DefaultModePassword),
			}))
		}
	}
	return out
}

// buildDialer creates the transport every session of the run shares.
func buildDialer(cfg *config.Config, logger *util.Logger) (transport.Dialer, error) {
	if cfg.SelfTest {
		return &transport.TCPDialer{Timeout: cfg.Timeout}, nil
	}
	return transport.New(cfg, logger)
}

// buildPacer picks reply matching unless fixed sleeps were requested.
func buildPacer(cfg *config.Config) session.Pacer {
	if cfg.FixedPacing {
		return session.FixedPacer{}
	}
	return session.ReplyPacer{Timeout: cfg.ReplyTimeout}
}

func describePacing(cfg *config.Config) string {
	if cfg.FixedPacing {
		return "fixed pauses " + cfg.ShortPause.String() + "/" + cfg.Pause.String()
	}
	return "reply matching, timeout " + cfg.ReplyTimeout.String()
}
