package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupSummary gathers what a binary wired up during init and emits it as
// a single structured event. One log line answers "how was this instance
// configured" without fishing through scattered init output.
//
// Registration order is preserved in the emitted JSON, so related entries
// read together in CloudWatch.
type StartupSummary struct {
	service string
	commit  string
	built   string

	resources []resourceEntry
	flags     []flagEntry
	settings  []settingEntry
}

type resourceEntry struct{ kind, label, value string }

type flagEntry struct {
	name    string
	enabled bool
}

type settingEntry struct{ key, value string }

// Startup begins a summary for the named binary, e.g. "baby-lambda".
func Startup(service string) *StartupSummary {
	return &StartupSummary{service: service}
}

// Version records the commit hash and build timestamp linked into the
// binary at build time.
func (s *StartupSummary) Version(commit, built string) *StartupSummary {
	s.commit = commit
	s.built = built
	return s
}

// Resource registers an external resource under a kind heading, e.g.
// ("s3", "babyBucket", bucket) or ("model", "nsfwCheck", version). Empty
// values are skipped so optional resources can be registered
// unconditionally. Values must not be secrets: parameter paths are fine,
// parameter values never.
func (s *StartupSummary) Resource(kind, label, value string) *StartupSummary {
	if value == "" {
		return s
	}
	s.resources = append(s.resources, resourceEntry{kind: kind, label: label, value: value})
	return s
}

// Feature records whether an optional capability ended up wired.
func (s *StartupSummary) Feature(name string, enabled bool) *StartupSummary {
	s.flags = append(s.flags, flagEntry{name: name, enabled: enabled})
	return s
}

// Setting records a non-sensitive configuration value.
func (s *StartupSummary) Setting(key, value string) *StartupSummary {
	s.settings = append(s.settings, settingEntry{key: key, value: value})
	return s
}

// Emit writes the summary at INFO, including the time spent since initStart.
func (s *StartupSummary) Emit(initStart time.Time) {
	identity := zerolog.Dict().
		Str("service", s.service).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", zerolog.GlobalLevel().String())
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		identity = identity.
			Str("functionName", fn).
			Str("functionVersion", os.Getenv("AWS_LAMBDA_FUNCTION_VERSION")).
			Str("region", os.Getenv("AWS_REGION")).
			Str("memoryMB", os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE"))
	}
	if s.commit != "" {
		identity = identity.Str("commit", s.commit).Str("built", s.built)
	}

	evt := log.Info().Dict("identity", identity)

	if len(s.resources) > 0 {
		evt = evt.Dict("resources", s.resourceDict())
	}
	if len(s.flags) > 0 {
		d := zerolog.Dict()
		for _, f := range s.flags {
			d = d.Bool(f.name, f.enabled)
		}
		evt = evt.Dict("features", d)
	}
	if len(s.settings) > 0 {
		d := zerolog.Dict()
		for _, c := range s.settings {
			d = d.Str(c.key, c.value)
		}
		evt = evt.Dict("config", d)
	}

	evt.Dur("initDuration", time.Since(initStart)).Msg("Cold start complete")
}

// resourceDict groups registered resources by kind, keeping the order in
// which each kind first appeared.
func (s *StartupSummary) resourceDict() *zerolog.Event {
	grouped := zerolog.Dict()
	done := make(map[string]bool, len(s.resources))
	for _, r := range s.resources {
		if done[r.kind] {
			continue
		}
		done[r.kind] = true
		kindDict := zerolog.Dict()
		for _, entry := range s.resources {
			if entry.kind == r.kind {
				kindDict = kindDict.Str(entry.label, entry.value)
			}
		}
		grouped = grouped.Dict(r.kind, kindDict)
	}
	return grouped
}
