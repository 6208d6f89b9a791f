// Package bizctx loads the static business collateral every persona is
// prompted with. It is read once at startup and treated as immutable.
package bizctx

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const summaryFileName = "business_summary.txt"

const defaultSummary = "NeuraEstate is a Dubai-based AI real estate concierge service. " +
	"We help clients discover, compare, and secure residential properties across Dubai."

type Config struct {
	Dir string `envconfig:"DIR" split_words:"true" default:"me"`
}

// Context is the immutable collateral blob shared by all personas. Degraded
// is set when the configured collateral could not be read and the built-in
// summary is in use; the health endpoint surfaces it as a warning.
type Context struct {
	Summary  string
	Degraded bool
}

func Load(cfg Config) Context {
	segments, degraded := readCollateral(cfg.Dir)
	if degraded {
		log.Warn().Str("dir", cfg.Dir).Msg("business collateral missing, using built-in summary")
	}
	return Context{
		Summary:  strings.Join(segments, "\n\n"),
		Degraded: degraded,
	}
}

func readCollateral(dir string) (segments []string, degraded bool) {
	summary, err := os.ReadFile(filepath.Join(dir, summaryFileName))
	if err != nil {
		return []string{defaultSummary}, true
	}
	segments = append(segments, strings.TrimSpace(string(summary)))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return segments, false
	}

	var extra []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == summaryFileName {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".txt", ".md":
			body, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				log.Warn().Err(err).Str("file", name).Msg("skipping unreadable collateral file")
				continue
			}
			if text := strings.TrimSpace(string(body)); text != "" {
				extra = append(extra, text)
			}
		default:
			// Binary collateral (brochures etc.) is referenced, not parsed.
			extra = append(extra, "Additional collateral available in "+name)
		}
	}
	sort.Strings(extra)
	return append(segments, extra...), false
}
