package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/canbcare/counselor/internal/catalog"
	"github.com/canbcare/counselor/internal/classify"
	"github.com/canbcare/counselor/internal/counsel"
	"github.com/canbcare/counselor/internal/guide"
	"github.com/canbcare/counselor/internal/llm"
	"github.com/canbcare/counselor/internal/store"
)

// loadRegistry publishes the configured catalog.
func loadRegistry() (*catalog.Registry, error) {
	c, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("catalog loaded", zap.String("version", c.Version()), zap.Int("cases", c.Len()))
	return catalog.NewRegistry(c), nil
}

// loadEngine builds the classification engine from the configured catalog.
func loadEngine() (*classify.Engine, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	return classify.NewEngine(reg), nil
}

// reloadCatalog re-reads path into reg. On error the active catalog stays.
func reloadCatalog(reg *catalog.Registry, path string) error {
	c, err := catalog.Load(path)
	if err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}
	prev := reg.Swap(c)
	logger.Info("catalog reloaded",
		zap.String("previous_version", prev.Version()),
		zap.String("version", c.Version()),
		zap.Int("cases", c.Len()))
	return nil
}

// watchCatalog reloads the catalog on every signal from hup until ctx ends.
// In-flight classifications keep the catalog they started with.
func watchCatalog(ctx context.Context, reg *catalog.Registry, path string, hup <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := reloadCatalog(reg, path); err != nil {
				logger.Error("catalog reload failed", zap.Error(err))
			}
		}
	}
}

// buildService wires the counseling pipeline. Without guides the service
// only classifies. st may be nil to skip persistence.
func buildService(ctx context.Context, reg *catalog.Registry, st *store.Store, guides bool) (*counsel.Service, error) {
	engine := classify.NewEngine(reg)
	opts, err := cfg.DispatchOptions()
	if err != nil {
		return nil, err
	}

	var (
		events  store.EventRepo
		results store.ResultRepo
	)
	if st != nil {
		events, results = st.EventRepo(), st.ResultRepo()
	}

	var gen counsel.Generator
	if guides {
		provider, err := llm.NewProvider(ctx, cfg.LLM, events, logger)
		if err != nil {
			return nil, fmt.Errorf("LLM provider not configured: %w", err)
		}
		logger.Info("llm provider ready", zap.String("provider", cfg.LLM.Provider), zap.String("model", provider.ModelID()))
		gen = guide.NewGenerator(provider, cfg.Guide, logger)
	}

	return counsel.NewService(engine, gen, results, opts, logger)
}
