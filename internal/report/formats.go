// Package report renders aggregation results into output documents.
package report

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stigtools/stigsheets/internal/aggregate"
	"github.com/stigtools/stigsheets/pkg/logger"
)

// Options carry per-run rendering switches shared by all formats.
type Options struct {
	// DetailedCCI adds a per-CCI breakdown view for every tier.
	DetailedCCI bool
}

// Format represents a report generation strategy.
type Format interface {
	// Generate renders the summary to outputPath. Implementations must
	// never leave a partial artifact behind: build fully, then move into
	// place.
	Generate(summary *aggregate.Summary, opts Options, outputPath string) error
	// Name returns the format identifier (e.g., "xlsx", "csv", "json").
	Name() string
	// Description returns a human-readable description of the format.
	Description() string
}

// FormatFactory creates instances of report formats.
type FormatFactory func(log logger.Logger) (Format, error)

var (
	formatRegistry = make(map[string]FormatFactory)
	registryMutex  sync.RWMutex
)

// RegisterFormat registers a new report format factory.
func RegisterFormat(name string, factory FormatFactory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if factory == nil {
		panic(fmt.Sprintf("report: RegisterFormat factory is nil for format %q", name))
	}
	if _, dup := formatRegistry[name]; dup {
		panic(fmt.Sprintf("report: RegisterFormat called twice for format %q", name))
	}
	formatRegistry[name] = factory
}

// GetFormat creates an instance of the specified report format.
func GetFormat(name string, log logger.Logger) (Format, error) {
	registryMutex.RLock()
	factory, exists := formatRegistry[name]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown report format: %s", name)
	}

	return factory(log)
}

// ListFormats returns the registered format names, sorted.
func ListFormats() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	formats := make([]string, 0, len(formatRegistry))
	for name := range formatRegistry {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}

// Register built-in formats during package initialization.
func init() {
	RegisterFormat("xlsx", func(log logger.Logger) (Format, error) {
		return NewXLSXGenerator(log), nil
	})

	RegisterFormat("csv", func(log logger.Logger) (Format, error) {
		return NewCSVGenerator(log), nil
	})

	RegisterFormat("json", func(log logger.Logger) (Format, error) {
		return NewJSONGenerator(log), nil
	})
}
