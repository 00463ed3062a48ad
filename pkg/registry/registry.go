// Package registry provides capability factory registration and plugin loading.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"sort"
	"strings"

	"github.com/codegenius/codegenius/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type Registry struct {
	logger              *slog.Logger
	capabilityFactories map[string]protocol.CapabilityFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:              log,
		capabilityFactories: make(map[string]protocol.CapabilityFactory),
	}
}

func (r *Registry) RegisterCapability(factory protocol.CapabilityFactory) {
	r.capabilityFactories[factory.ID()] = factory
}

// CreateCapability validates config against the factory's schema and builds
// the capability instance.
func (r *Registry) CreateCapability(capabilityID string, config map[string]any) (protocol.Capability, error) {
	factory, ok := r.capabilityFactories[capabilityID]
	if !ok {
		return nil, fmt.Errorf("capability '%s' not registered", capabilityID)
	}

	err := validateConfig(factory.Schema(), config)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration for capability '%s': %w", capabilityID, err)
	}

	return factory.Create(config, r.logger)
}

func (r *Registry) AvailableCapabilities() []string {
	ids := make([]string, 0, len(r.capabilityFactories))
	for id := range r.capabilityFactories {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// HealthCheck reports whether the registry can serve the pipeline.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.capabilityFactories) == 0 {
		return "No capabilities registered", false
	}

	return fmt.Sprintf("%d capabilities registered", len(r.capabilityFactories)), true
}

// LoadCapabilityPlugins opens every .so under <pluginsPath>/capabilities and
// registers the CapabilityFactory each one exports as its Capability symbol.
func (r *Registry) LoadCapabilityPlugins(pluginsPath string) ([]protocol.CapabilityFactory, error) {
	factories, err := loadPlugin[protocol.CapabilityFactory](r.logger, pluginsPath+"/capabilities", "Capability")
	if err != nil {
		return nil, err
	}

	for _, factory := range factories {
		r.RegisterCapability(factory)
	}

	return factories, nil
}

func validateConfig(schema, config map[string]any) error {
	if schema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		errorMessages := make([]string, 0, len(result.Errors()))
		for _, validationError := range result.Errors() {
			errorMessages = append(errorMessages, validationError.String())
		}

		return errors.New(strings.Join(errorMessages, "; "))
	}

	return nil
}

func loadPlugin[T any](logger *slog.Logger, rootPath, symbolName string) ([]T, error) {
	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s does not export symbol %s: %w", p, symbolName, err)
		}

		castV, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("plugin %s symbol %s has unexpected type %T", p, symbolName, v)
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
