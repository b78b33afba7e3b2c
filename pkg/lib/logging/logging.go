package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/zap"
)

const (
	envLogLevels = "BEAM_LOG_LEVEL"
	envGelfAddr  = "BEAM_LOG_GELF_ADDR"
)

var log = logging.Logger("beam-logger")

// DefaultLogLevel applies to every subsystem that is not matched by a
// BEAM_LOG_LEVEL pattern.
var DefaultLogLevel = logging.LevelError

var (
	m            sync.Mutex
	logLevelsStr string
)

var defaultCfg = logging.Config{
	Format: logging.ColorizedOutput,
	Level:  logging.LevelDebug,
	Stdout: true,
}

func init() {
	cfg := defaultCfg
	if addr := os.Getenv(envGelfAddr); addr != "" {
		cfg.Format = logging.JSONOutput
		registerGelfSink(&cfg, addr)
	}
	logging.SetupLogging(cfg)
	ApplyLevelsFromEnv()
}

// Logger returns a named subsystem logger. Subsystem names are expected to
// use the beam- prefix so that BEAM_LOG_LEVEL patterns can address them.
func Logger(system string) *zap.SugaredLogger {
	return &logging.Logger(system).SugaredLogger
}

// NamedLevel is a single parsed entry of the BEAM_LOG_LEVEL string.
type NamedLevel struct {
	Pattern string
	Level   string
}

// LevelsFromStr parses a string of the form "name1=DEBUG;prefix*=WARN;ERROR"
// into a slice of NamedLevel. An entry without a pattern applies to all beam
// subsystems. Entries with an invalid level are skipped.
func LevelsFromStr(s string) (levels []NamedLevel) {
	for _, kv := range strings.Split(s, ";") {
		if kv == "" {
			continue
		}
		parts := strings.Split(kv, "=")
		var pattern, level string
		switch len(parts) {
		case 1:
			pattern = "beam-*"
			level = strings.TrimSpace(parts[0])
		case 2:
			pattern = strings.TrimSpace(parts[0])
			level = strings.TrimSpace(parts[1])
		default:
			log.Errorf("invalid log level entry %q, expected pattern=LEVEL", kv)
			continue
		}
		if pattern == "" || level == "" {
			continue
		}
		if _, err := logging.LevelFromString(level); err != nil {
			log.Errorf("invalid log level %q: %v", level, err)
			continue
		}
		levels = append(levels, NamedLevel{Pattern: pattern, Level: level})
	}
	return levels
}

// ApplyLevels sets per-subsystem log levels from the given BEAM_LOG_LEVEL
// style string. Subsystems not matched by any pattern fall back to
// DefaultLogLevel.
func ApplyLevels(str string) {
	m.Lock()
	defer m.Unlock()
	logLevelsStr = str
	setSubsystemLevels()
}

func ApplyLevelsFromEnv() {
	ApplyLevels(os.Getenv(envLogLevels))
}

func setSubsystemLevels() {
	logLevels := make(map[string]string)
	for _, level := range LevelsFromStr(logLevelsStr) {
		pattern, err := glob.Compile(level.Pattern)
		if err != nil {
			log.Errorf("failed to parse glob pattern %q: %v", level.Pattern, err)
			continue
		}
		for _, subsystem := range logging.GetSubsystems() {
			if pattern.Match(subsystem) {
				logLevels[subsystem] = level.Level
			}
		}
	}

	if len(logLevels) == 0 {
		logging.SetAllLoggers(DefaultLogLevel)
		return
	}

	for subsystem, level := range logLevels {
		if err := logging.SetLogLevel(subsystem, level); err != nil {
			log.Errorf("subsystem %s has incorrect log level %q: %v", subsystem, level, err)
		}
	}
}
