package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kay-lambdadelta/multiemu-sub003/audio/otosink"
	"github.com/kay-lambdadelta/multiemu-sub003/config"
	"github.com/kay-lambdadelta/multiemu-sub003/datarecording"
	"github.com/kay-lambdadelta/multiemu-sub003/logging"
	"github.com/kay-lambdadelta/multiemu-sub003/machine"
	"github.com/kay-lambdadelta/multiemu-sub003/mainthread"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/monitoring"
	"github.com/kay-lambdadelta/multiemu-sub003/tracing"
)

type runOptions struct {
	cycles   uint64
	quantum  uint64
	envFiles []string
	restore  string
	save     string
	audio    bool
	hold     bool
	monitor  int
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run <machine.yaml>",
	Short: "Assemble a machine and advance it.",
	Long: `Assemble the machine of a description and advance it by the ` +
		`given number of master cycles, in steps of the configured quantum.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.LoadSettings(runOpts.envFiles...)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("quantum") {
			settings.Quantum = runOpts.quantum
		}

		if cmd.Flags().Changed("monitor") {
			settings.MonitorPort = runOpts.monitor
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runMachine(ctx, args[0], settings, runOpts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.Uint64Var(&runOpts.cycles, "cycles", 0, "master cycles to advance")
	f.Uint64Var(&runOpts.quantum, "quantum", config.DefaultQuantum,
		"master cycles advanced per step")
	f.StringSliceVar(&runOpts.envFiles, "env", nil, "env files to load settings from")
	f.StringVar(&runOpts.restore, "restore", "", "snapshot to restore before running")
	f.StringVar(&runOpts.save, "save", "", "file to save a snapshot to after running")
	f.BoolVar(&runOpts.audio, "audio", false, "play the audio outputs of the machine")
	f.BoolVar(&runOpts.hold, "hold", false,
		"keep the monitor serving after the run until interrupted")
	f.IntVar(&runOpts.monitor, "monitor", 0,
		"port of the monitoring server, -1 picks a free port")
}

func runMachine(
	ctx context.Context,
	path string,
	settings config.Settings,
	opts runOptions,
	out io.Writer,
) (err error) {
	if settings.Quantum == 0 {
		return errors.New("multiemu: quantum must be positive")
	}

	d, err := config.LoadDescription(path)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, settings.LogVerbosity).WithName(d.Name)

	s, err := assemble(ctx, d, path, logger)
	if err != nil {
		return err
	}
	defer s.close()

	cfg := s.machine.Config()

	counter := tracing.NewPeriodCountTracer(tracing.AllTasks)
	tracing.CollectTrace(cfg.Scheduler, counter)
	tracing.CollectTrace(s.machine.Table(), counter)

	if settings.LogVerbosity >= logging.LevelTasks {
		hook := logging.NewHook(logger)
		cfg.Scheduler.AcceptHook(hook)
		s.machine.Table().AcceptHook(hook)
	}

	if settings.RecordDB != "" {
		finish, recErr := record(s, settings.RecordDB, d.Name, path)
		if recErr != nil {
			return recErr
		}

		defer func() { err = errors.Join(err, finish()) }()
	}

	if opts.audio {
		release, err := playAudio(s)
		if err != nil {
			return err
		}
		defer release()
	}

	var monitor *monitoring.Monitor
	if settings.MonitorPort != 0 {
		port := settings.MonitorPort
		if port < 0 {
			port = 0
		}

		monitor = monitoring.NewMonitor(s.inbox, s.runner).
			WithPortNumber(port).
			WithOpenBrowser(settings.OpenBrowser).
			WithLogger(logger)
		monitor.RegisterComponents(cfg.Registry)

		if _, err := monitor.StartServer(); err != nil {
			return err
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			_ = monitor.StopServer(shutdownCtx)
		}()
	}

	if opts.restore != "" {
		if err := restore(ctx, s, opts.restore); err != nil {
			return err
		}
	}

	if err := advance(ctx, s, monitor, opts.cycles, settings.Quantum); err != nil {
		return err
	}

	if opts.save != "" {
		if err := save(ctx, s, opts.save); err != nil {
			return err
		}
	}

	if monitor != nil && opts.hold {
		logger.Info("run complete, serving the monitor until interrupted")
		<-ctx.Done()
	}

	return summarize(out, s, counter)
}

func advance(
	ctx context.Context,
	s *session,
	monitor *monitoring.Monitor,
	cycles, quantum uint64,
) error {
	var bar *monitoring.ProgressBar
	if monitor != nil {
		bar = monitor.CreateProgressBar("advance", cycles)
		defer monitor.CompleteProgressBar(bar)
	}

	for done := uint64(0); done < cycles; {
		if ctx.Err() != nil {
			s.logger.Info("interrupted", "cycle", s.runner.Now())
			return nil
		}

		step := min(quantum, cycles-done)

		err := s.post(ctx, func(reply chan<- error) machine.Message {
			return machine.AdvanceMachine{Cycles: step, Reply: reply}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}

		if err != nil {
			return err
		}

		done += step

		if bar != nil {
			bar.IncrementFinished(step)
		}
	}

	return nil
}

func record(s *session, path, name, descPath string) (func() error, error) {
	recorder, err := datarecording.New(path)
	if err != nil {
		return nil, err
	}

	exec, err := datarecording.NewExecRecorder(recorder)
	if err != nil {
		return nil, errors.Join(err, recorder.Close())
	}

	tracer, err := tracing.NewDBTracer(recorder, tracing.AllTasks)
	if err != nil {
		return nil, errors.Join(err, recorder.Close())
	}

	tracing.CollectTrace(s.machine.Config().Scheduler, tracer)
	tracing.CollectTrace(s.machine.Table(), tracer)

	exec.Start()
	exec.Set("Machine", name)
	exec.Set("Description", descPath)
	exec.Set("Instance", s.machine.ID())

	return func() error {
		s.close()
		exec.Set("Final Cycle", strconv.FormatUint(s.runner.Now(), 10))

		return errors.Join(tracer.Err(), exec.End(), recorder.Close())
	}, nil
}

func playAudio(s *session) (func(), error) {
	var players []*mainthread.Owned[*otosink.Player]

	release := func() {
		for _, p := range players {
			err := p.Close(func(player *otosink.Player) {
				_ = player.Close()
			})
			if err != nil {
				s.logger.Error(err, "cannot release audio player")
			}
		}
	}

	for i, out := range s.machine.Config().AudioOutputs {
		// oto opens a single device context per process.
		if i > 0 {
			s.logger.Info("audio output not played", "output", out.FullName())
			continue
		}

		player, err := otosink.NewPlayer(out)
		if err != nil {
			release()
			return nil, err
		}

		owned, err := mainthread.New(player)
		if err != nil {
			_ = player.Close()
			release()

			return nil, err
		}

		players = append(players, owned)
		player.Start()

		s.logger.Info("playing audio", "output", out.FullName(),
			"rate", out.SampleRate)
	}

	return release, nil
}

func save(ctx context.Context, s *session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	err = s.post(ctx, func(reply chan<- error) machine.Message {
		return machine.SnapshotMachine{Destination: f, Reply: reply}
	})

	return errors.Join(err, f.Close())
}

func restore(ctx context.Context, s *session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return s.post(ctx, func(reply chan<- error) machine.Message {
		return machine.RestoreMachine{Source: f, Reply: reply}
	})
}

func summarize(out io.Writer, s *session, counter *tracing.PeriodCountTracer) error {
	fmt.Fprintf(out, "machine %s stopped at cycle %d\n\n", s.machine.ID(), s.runner.Now())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tRUNS\tPERIODS")

	for _, key := range counter.Tasks() {
		fmt.Fprintf(tw, "%s\t%d\t%d\n",
			key.Owner.Child(key.Task), counter.Runs(key), counter.Periods(key))
	}

	fmt.Fprintf(tw, "\nunclaimed accesses\t%d\n", counter.Faults(memory.Unclaimed))
	fmt.Fprintf(tw, "faulted accesses\t%d\n", counter.Faults(memory.Faulted))

	return tw.Flush()
}
