package admin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/udisondev/wavekeeper/internal/horde"
	"github.com/udisondev/wavekeeper/internal/model"
	"github.com/udisondev/wavekeeper/internal/spawn"
)

// Runtime is the administrative surface of the wave runtime.
type Runtime interface {
	Snapshot() horde.Snapshot
	ForceSpawnWave(count int32, interval time.Duration) (spawn.JobID, error)
	ClearAllManagedUnits() int
	JumpToWave(n int32) error
	SetStrategy(kind spawn.StrategyKind)
	PauseWave() error
	ResumeWave() error
	RestartWave() error
	StopWaves()
	StartWaves() error
	SetPointEnabled(id int64, enabled bool) error
	KillUnit(id model.UnitID) bool
}

// MaxForcedCount bounds a single forced spawn.
const MaxForcedCount = 500

// RegisterAll registers every runtime command into the handler.
func RegisterAll(h *Handler, rt Runtime) {
	h.Register(&ForceSpawn{rt: rt})
	h.Register(&Clear{rt: rt})
	h.Register(&Jump{rt: rt})
	h.Register(&Strategy{rt: rt})
	h.Register(&Point{rt: rt})
	h.Register(&Kill{rt: rt})
	h.Register(&Status{rt: rt})
	h.Register(&Lifecycle{rt: rt})
	h.Register(&Help{h: h})
}

// ForceSpawn handles force <count> [interval].
type ForceSpawn struct{ rt Runtime }

func (c *ForceSpawn) Names() []string { return []string{"force", "forcespawn"} }
func (c *ForceSpawn) Usage() string   { return "force <count> [interval]" }

func (c *ForceSpawn) Handle(args []string) (string, error) {
	if len(args) < 2 {
		return "", ErrUsage
	}
	count, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return "", fmt.Errorf("invalid count %q: %w", args[1], ErrUsage)
	}
	if count < 1 || count > MaxForcedCount {
		return "", fmt.Errorf("count must be between 1 and %d, got %d: %w", MaxForcedCount, count, ErrUsage)
	}

	var interval time.Duration
	if len(args) >= 3 {
		interval, err = time.ParseDuration(args[2])
		if err != nil || interval < 0 {
			return "", fmt.Errorf("invalid interval %q: %w", args[2], ErrUsage)
		}
	}

	id, err := c.rt.ForceSpawnWave(int32(count), interval)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Scheduled %d units every %s (job %d)", count, interval, id), nil
}

// Clear handles clear: despawns every managed unit.
type Clear struct{ rt Runtime }

func (c *Clear) Names() []string { return []string{"clear", "clearall"} }
func (c *Clear) Usage() string   { return "clear" }

func (c *Clear) Handle([]string) (string, error) {
	return fmt.Sprintf("Cleared %d units", c.rt.ClearAllManagedUnits()), nil
}

// Jump handles jump <wave>.
type Jump struct{ rt Runtime }

func (c *Jump) Names() []string { return []string{"jump", "wave"} }
func (c *Jump) Usage() string   { return "jump <wave>" }

func (c *Jump) Handle(args []string) (string, error) {
	if len(args) < 2 {
		return "", ErrUsage
	}
	n, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return "", fmt.Errorf("invalid wave %q: %w", args[1], ErrUsage)
	}
	if err := c.rt.JumpToWave(int32(n)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Jumped to wave %d", n), nil
}

// Strategy handles strategy <name>.
type Strategy struct{ rt Runtime }

func (c *Strategy) Names() []string { return []string{"strategy"} }

func (c *Strategy) Usage() string {
	names := make([]string, 0, len(spawn.AllStrategies))
	for _, k := range spawn.AllStrategies {
		names = append(names, k.String())
	}
	return "strategy <" + strings.Join(names, "|") + ">"
}

func (c *Strategy) Handle(args []string) (string, error) {
	if len(args) < 2 {
		return "", ErrUsage
	}
	kind, err := spawn.ParseStrategy(args[1])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUsage, err)
	}
	c.rt.SetStrategy(kind)
	return "Strategy set to " + kind.String(), nil
}

// Point handles point <id> on|off.
type Point struct{ rt Runtime }

func (c *Point) Names() []string { return []string{"point"} }
func (c *Point) Usage() string   { return "point <id> on|off" }

func (c *Point) Handle(args []string) (string, error) {
	if len(args) < 3 {
		return "", ErrUsage
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid point id %q: %w", args[1], ErrUsage)
	}

	var enabled bool
	switch strings.ToLower(args[2]) {
	case "on", "enable":
		enabled = true
	case "off", "disable":
	default:
		return "", fmt.Errorf("invalid switch %q: %w", args[2], ErrUsage)
	}

	if err := c.rt.SetPointEnabled(id, enabled); err != nil {
		return "", err
	}
	if enabled {
		return fmt.Sprintf("Point %d enabled", id), nil
	}
	return fmt.Sprintf("Point %d disabled", id), nil
}

// Kill handles kill <unitID>: reports a death as combat would.
type Kill struct{ rt Runtime }

func (c *Kill) Names() []string { return []string{"kill"} }
func (c *Kill) Usage() string   { return "kill <unitID>" }

func (c *Kill) Handle(args []string) (string, error) {
	if len(args) < 2 {
		return "", ErrUsage
	}
	id, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return "", fmt.Errorf("invalid unit id %q: %w", args[1], ErrUsage)
	}
	if !c.rt.KillUnit(model.UnitID(id)) {
		return "", fmt.Errorf("unit %d: %w", id, ErrNoSuchUnit)
	}
	return fmt.Sprintf("Unit %d killed", id), nil
}

// Status handles status.
type Status struct{ rt Runtime }

func (c *Status) Names() []string { return []string{"status", "info"} }
func (c *Status) Usage() string   { return "status" }

func (c *Status) Handle([]string) (string, error) {
	s := c.rt.Snapshot()
	w := s.Wave
	var b strings.Builder
	fmt.Fprintf(&b, "Wave %d %q: %s, progress %.0f%%", w.Number, w.Name, w.State, w.Progress*100)
	if w.Remaining > 0 {
		fmt.Fprintf(&b, ", %s remaining", w.Remaining.Round(time.Second))
	}
	fmt.Fprintf(&b, "\nUnits: %d live / ceiling %d, spawned %d, killed %d",
		s.Spawn.Live, s.Spawn.Ceiling, w.Spawned, w.Killed)
	fmt.Fprintf(&b, "\nDispatcher: %s, strategy %s, %d pending jobs, %.1f fps",
		s.Spawn.State, s.Spawn.Strategy, s.Spawn.PendingJobs, s.Spawn.FrameRate)
	fmt.Fprintf(&b, "\nTotals: %d completed, %d failed, %d kills, players %d",
		s.Waves.WavesCompleted, s.Waves.WavesFailed, s.Waves.TotalKills, s.Players)
	return b.String(), nil
}

// Lifecycle handles pause, resume, restart, stop and start.
type Lifecycle struct{ rt Runtime }

func (c *Lifecycle) Names() []string {
	return []string{"pause", "resume", "restart", "stop", "start"}
}
func (c *Lifecycle) Usage() string { return "pause|resume|restart|stop|start" }

func (c *Lifecycle) Handle(args []string) (string, error) {
	var err error
	switch verb := strings.ToLower(args[0]); verb {
	case "pause":
		err = c.rt.PauseWave()
	case "resume":
		err = c.rt.ResumeWave()
	case "restart":
		err = c.rt.RestartWave()
	case "stop":
		c.rt.StopWaves()
	case "start":
		err = c.rt.StartWaves()
	default:
		return "", fmt.Errorf("unknown verb %q: %w", verb, ErrUsage)
	}
	if err != nil {
		return "", err
	}
	return "Wave is now " + c.rt.Snapshot().Wave.State.String(), nil
}

// Help handles help.
type Help struct{ h *Handler }

func (c *Help) Names() []string { return []string{"help"} }
func (c *Help) Usage() string   { return "help" }

func (c *Help) Handle([]string) (string, error) {
	return strings.Join(c.h.usages(), "\n"), nil
}
