package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/misterclayt0n/lazaro-timer/internal/cue"
	"github.com/misterclayt0n/lazaro-timer/internal/history"
	"github.com/misterclayt0n/lazaro-timer/internal/metrics"
	"github.com/misterclayt0n/lazaro-timer/internal/models"
	"github.com/misterclayt0n/lazaro-timer/internal/prescription"
	"github.com/misterclayt0n/lazaro-timer/internal/timer"
	"github.com/misterclayt0n/lazaro-timer/internal/utils"
)

var (
	runExercise    string
	runNoLog       bool
	runMute        bool
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run <workout-file>",
	Short: "Run the timer through every exercise of a workout file",
	Long: `Run the timer through a workout file (TOML, YAML or JSON).

While the timer runs, type a command and press enter:
  p        pause or resume
  s        skip the current phase
  e        open data entry now
  n        next set or round
  r N      set the round count of a block
  x N      select sub-exercise N
  m        toggle audio cues
  q        quit
In data entry, type "reps [weight]" or press enter to keep the prescription.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkout,
}

func runWorkout(cmd *cobra.Command, args []string) error {
	workout, err := prescription.Load(args[0])
	if err != nil {
		return err
	}

	exercises := workout.Exercises
	if runExercise != "" {
		p, ok := prescription.Find(workout, runExercise)
		if !ok {
			return fmt.Errorf("exercise %q not found in %s", runExercise, workout.Name)
		}
		exercises = []models.Prescription{p}
	}

	log := logrus.WithField("workout", workout.Name)

	var store history.Store
	if !runNoLog {
		st, err := openStorage()
		if err != nil {
			return err
		}
		defer st.Close()
		store = st
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.SetupPrometheus()
	mgr := metrics.NewManager("lazaro", "timer", reg)

	addr := runMetricsAddr
	if addr == "" {
		addr = appConfig.Metrics.Addr
	}
	if addr != "" {
		srv := metrics.NewServer(addr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.WithField("addr", addr).Info("serving metrics")
	}

	holder := timer.NewHolder(timer.Options{
		TickInterval:     appConfig.Timer.TickInterval(),
		CountdownSeconds: appConfig.Timer.CountdownSeconds,
		Logger:           log.WithField("component", "timer"),
	})
	defer holder.Reset()

	engine := holder.Engine()
	engine.SetAudioEnabled(appConfig.Timer.Audio && !runMute)
	engine.Subscribe(cue.New(cue.NewBell(os.Stdout)))
	engine.Subscribe(mgr.Observe)

	events, unsubscribe := engine.SubscribeChan(256)
	defer unsubscribe()

	r := &runner{
		engine:  engine,
		events:  events,
		input:   readLines(os.Stdin),
		store:   store,
		metrics: mgr,
		out:     os.Stdout,
		log:     log,
	}

	printBoxedHeader(strings.ToUpper(workout.Name))
	for i, p := range exercises {
		quit, err := r.runExercise(ctx, p, i+1, len(exercises))
		if err != nil {
			return err
		}
		if quit {
			break
		}
	}

	r.summary()
	return nil
}

// readLines delivers stdin line by line and closes the channel at EOF.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

type runner struct {
	engine  *timer.Engine
	events  <-chan timer.Event
	input   <-chan string
	store   history.Store
	metrics *metrics.Manager
	out     io.Writer
	log     logrus.FieldLogger

	rec    *history.Recorder
	rounds int
	logged []models.HistoryEntry
}

func (r *runner) runExercise(ctx context.Context, p models.Prescription, index, total int) (bool, error) {
	r.engine.InitializeForExercise(p)
	r.drain()

	r.rec = nil
	r.rounds = 0
	if r.store != nil {
		r.rec = history.NewRecorder(r.store, p, r.log.WithField("exercise", p.Name))
		unsubscribe := r.engine.Subscribe(r.rec.Observe)
		defer unsubscribe()
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s %s\n", bold(fmt.Sprintf("[%d/%d] %s", index, total, p.Name)), describePrescription(p))
	for i, sub := range p.SubExercises {
		fmt.Fprintf(r.out, "  %d. %s %s\n", i+1, sub.Name, describePrescription(sub))
	}
	fmt.Fprintln(r.out, "Press enter to start, q to quit.")

	for started := false; !started; {
		select {
		case <-ctx.Done():
			return true, nil
		case line, ok := <-r.input:
			if !ok || strings.TrimSpace(line) == "q" {
				return true, nil
			}
			started = true
		}
	}
	done, entry, unwatch := watchPhases(r.engine)
	defer unwatch()
	r.engine.Start()

	for {
		select {
		case <-ctx.Done():
			r.engine.Stop()
			return true, nil

		case ev := <-r.events:
			r.render(ev, p)

		case <-done:
			r.renderPending(p)
			return false, r.finish()

		case <-entry:
			if r.input == nil {
				r.engine.ExitDataEntry()
			}

		case line, ok := <-r.input:
			if !ok {
				// Without input the timer still runs to completion and
				// every set keeps its prescription.
				r.input = nil
				r.engine.ExitDataEntry()
				continue
			}
			if r.handle(line, p) {
				r.engine.Stop()
				return true, r.finish()
			}
		}
	}
}

// watchPhases follows the phase changes the run loop acts on. The rendering
// channel may drop events, this listener never does: done is closed when the
// exercise completes and entry signals each time data entry opens, with
// repeats coalesced.
func watchPhases(e *timer.Engine) (done, entry <-chan struct{}, unsubscribe func()) {
	doneCh := make(chan struct{})
	entryCh := make(chan struct{}, 1)
	var once sync.Once

	unsubscribe = e.Subscribe(func(ev timer.Event) {
		if ev.Type != timer.EventPhaseChange {
			return
		}
		switch ev.State.Phase {
		case timer.PhaseComplete:
			once.Do(func() { close(doneCh) })
		case timer.PhaseEntry:
			select {
			case entryCh <- struct{}{}:
			default:
			}
		}
	})
	return doneCh, entryCh, unsubscribe
}

// handle applies one line of user input and reports whether to quit.
func (r *runner) handle(line string, p models.Prescription) bool {
	fields := strings.Fields(line)
	state := r.engine.State()

	if state.Phase == timer.PhaseEntry {
		if len(fields) == 0 {
			r.engine.ExitDataEntry()
			return false
		}
		if reps, weight, err := parseResult(line); err == nil {
			if r.rec != nil {
				w := float32(0)
				if weight != nil {
					w = *weight
				} else if p.Weight != nil {
					w = *p.Weight
				}
				r.rec.SetResult(reps, w)
			}
			r.engine.ExitDataEntry()
			return false
		}
	}

	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "p":
		if state.Phase == timer.PhasePaused {
			r.engine.Resume()
		} else {
			r.engine.Pause()
		}
	case "s":
		r.engine.Skip()
	case "e":
		r.engine.EnterDataEntry()
	case "n":
		r.engine.AdvanceSet()
		if p.Type == models.ExerciseAMRAP {
			r.rounds++
			r.setRounds(r.rounds)
		}
	case "r":
		if n, err := argInt(fields); err == nil && n >= 0 {
			r.rounds = n
			r.setRounds(n)
		} else {
			fmt.Fprintln(r.out, "\nusage: r <rounds>")
		}
	case "x":
		if n, err := argInt(fields); err == nil {
			r.engine.SetCurrentSubExercise(n - 1)
		} else {
			fmt.Fprintln(r.out, "\nusage: x <sub-exercise number>")
		}
	case "m":
		r.engine.SetAudioEnabled(!state.AudioEnabled)
	case "q":
		return true
	default:
		fmt.Fprintln(r.out, "\ncommands: p s e n r x m q")
	}
	return false
}

func (r *runner) setRounds(n int) {
	if r.rec != nil {
		r.rec.SetRounds(n)
	}
}

func (r *runner) render(ev timer.Event, p models.Prescription) {
	switch ev.Type {
	case timer.EventTick:
		if ev.MinuteMarker > 0 {
			fmt.Fprintf(r.out, "\n%s\n", color.New(color.FgMagenta, color.Bold).Sprintf("minute %d", ev.MinuteMarker))
		}
		fmt.Fprintf(r.out, "\r%s\033[K", statusLine(ev.State, p))

	case timer.EventCountdownTick:
		fmt.Fprintf(r.out, "\r%s  %s\033[K", statusLine(ev.State, p),
			color.New(color.FgRed, color.Bold).Sprintf("%d", ev.CountdownValue))

	case timer.EventPhaseChange:
		fmt.Fprintf(r.out, "\n%s\n", phaseColor(ev.State).Sprint(statusLine(ev.State, p)))
		if ev.State.Phase == timer.PhaseEntry {
			fmt.Fprintln(r.out, "Log the set: reps [weight], or enter to keep the prescription.")
		}
	}
}

func (r *runner) finish() error {
	if r.rec == nil {
		return nil
	}
	for _, e := range r.rec.Entries() {
		r.metrics.ObserveEntry(e)
		r.logged = append(r.logged, e)
	}
	if err := r.rec.Err(); err != nil {
		return fmt.Errorf("Failed to log history: %w", err)
	}
	return nil
}

func (r *runner) summary() {
	fmt.Fprintln(r.out)
	printBoxedHeader("SUMMARY")
	if r.store == nil {
		printMetric("Logging", "disabled")
		return
	}

	var sets, blocks, work int
	var volume float32
	for _, e := range r.logged {
		work += e.WorkSeconds
		if e.ExerciseType.IsBlock() {
			blocks++
			continue
		}
		sets++
		volume += e.Weight * float32(e.Reps)
	}
	printMetric("Sets logged", sets)
	printMetric("Blocks logged", blocks)
	printMetric("Volume", fmt.Sprintf("%.1f", volume))
	printMetric("Time under work", utils.FormatClock(work))
}

// renderPending renders whatever is still buffered for display.
func (r *runner) renderPending(p models.Prescription) {
	for {
		select {
		case ev := <-r.events:
			r.render(ev, p)
		default:
			return
		}
	}
}

func (r *runner) drain() {
	for {
		select {
		case <-r.events:
		default:
			return
		}
	}
}

// statusLine renders one line describing the state of the running exercise.
func statusLine(s timer.State, p models.Prescription) string {
	phase := s.Phase
	label := strings.ToUpper(string(phase))
	if phase == timer.PhasePaused {
		phase = s.PausedPhase
		label = "PAUSED " + strings.ToUpper(string(phase))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %d/%d", label, unitWord(p.Type), s.CurrentSet, s.TotalSets)

	switch {
	case phase == timer.PhaseIdle || phase == timer.PhaseComplete:
	case s.Mode == timer.ModeCountUp && phase == timer.PhaseContinuous:
		fmt.Fprintf(&b, "  %s elapsed", utils.FormatClock(s.ElapsedSeconds))
	default:
		fmt.Fprintf(&b, "  %s left", utils.FormatClock(s.RemainingSeconds))
	}

	if s.TotalSubExercises > 0 && s.CurrentSubExercise < len(p.SubExercises) {
		fmt.Fprintf(&b, "  | %s (%d/%d)", p.SubExercises[s.CurrentSubExercise].Name, s.CurrentSubExercise+1, s.TotalSubExercises)
	}
	if !s.AudioEnabled {
		b.WriteString("  (muted)")
	}
	return b.String()
}

func unitWord(t models.ExerciseType) string {
	switch t {
	case models.ExerciseEMOM:
		return "minute"
	case models.ExerciseAMRAP, models.ExerciseCircuit:
		return "round"
	case models.ExerciseInterval:
		return "interval"
	}
	return "set"
}

func phaseColor(s timer.State) *color.Color {
	switch s.Phase {
	case timer.PhaseCountdown:
		return color.New(color.FgYellow, color.Bold)
	case timer.PhaseWork, timer.PhaseContinuous:
		return color.New(color.FgGreen, color.Bold)
	case timer.PhaseRest:
		return color.New(color.FgBlue, color.Bold)
	case timer.PhaseEntry:
		return color.New(color.FgCyan, color.Bold)
	case timer.PhaseComplete:
		return color.New(color.FgMagenta, color.Bold)
	case timer.PhasePaused:
		return color.New(color.FgRed)
	}
	return color.New(color.Reset)
}

// describePrescription summarizes the prescribed dose, e.g. "5x5 @ 100kg".
func describePrescription(p models.Prescription) string {
	var parts []string
	switch {
	case p.Reps != nil:
		parts = append(parts, fmt.Sprintf("%dx%d", p.Sets, *p.Reps))
	case p.Sets > 1:
		parts = append(parts, fmt.Sprintf("%d %s", p.Sets, utils.Plural(p.Sets, unitWord(p.Type))))
	}
	if p.Weight != nil {
		unit := ""
		if p.WeightUnit != nil {
			unit = *p.WeightUnit
		}
		parts = append(parts, fmt.Sprintf("@ %g%s", *p.Weight, unit))
	}
	if p.WorkTimeSeconds != nil {
		parts = append(parts, "work "+utils.FormatClock(*p.WorkTimeSeconds))
	}
	if p.RestTimeSeconds != nil {
		parts = append(parts, "rest "+utils.FormatClock(*p.RestTimeSeconds))
	}
	if p.Tempo != nil {
		parts = append(parts, "tempo "+*p.Tempo)
	}
	return fmt.Sprintf("(%s) %s", p.Type, strings.Join(parts, " "))
}

// parseResult reads "reps [weight]" as typed in data entry. The weight may
// carry a kg or lb suffix and use a decimal comma.
func parseResult(line string) (int, *float32, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields) > 2 {
		return 0, nil, fmt.Errorf("expected \"reps [weight]\", got %q", line)
	}

	reps, err := strconv.Atoi(fields[0])
	if err != nil || reps < 0 {
		return 0, nil, fmt.Errorf("invalid reps %q", fields[0])
	}
	if len(fields) == 1 {
		return reps, nil, nil
	}

	raw := strings.ToLower(fields[1])
	raw = strings.TrimSuffix(strings.TrimSuffix(raw, "kg"), "lb")
	raw = strings.ReplaceAll(raw, ",", ".")
	w, err := strconv.ParseFloat(raw, 32)
	if err != nil || w < 0 {
		return 0, nil, fmt.Errorf("invalid weight %q", fields[1])
	}
	weight := float32(w)
	return reps, &weight, nil
}

func argInt(fields []string) (int, error) {
	if len(fields) != 2 {
		return 0, errors.New("missing argument")
	}
	return strconv.Atoi(fields[1])
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runExercise, "exercise", "e", "", "Run only the named exercise")
	runCmd.Flags().BoolVar(&runNoLog, "no-log", false, "Do not write history")
	runCmd.Flags().BoolVar(&runMute, "mute", false, "Start with audio cues off")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides config)")
}
