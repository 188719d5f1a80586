package tools

import (
	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/logger"
)

// BuildRegistry constructs the tool registry from configuration,
// registering only the tools that are enabled.
func BuildRegistry(cfg *config.Config) *ToolRegistry {
	registry := NewToolRegistry()

	web := NewWebSearchTool(cfg.Tools.Web)
	if web != nil {
		registry.Register(web)
		// News rides on whatever search backend the web tool picked.
		registry.Register(NewNewsTool(web.provider, web.maxResults))
	}

	if cfg.Tools.Weather.Enabled {
		registry.Register(NewWeatherTool(cfg.Tools.Weather.DefaultCity))
	}

	if cfg.Tools.SystemInfo {
		registry.Register(NewSystemInfoTool())
	}

	if cfg.Tools.FileSearch.Enabled {
		registry.Register(NewFileSearchTool(cfg.Tools.FileSearch.Root, cfg.Tools.FileSearch.MaxHits))
	}

	logger.InfoCF("tools", "Tool registry ready",
		map[string]interface{}{
			"tools": registry.List(),
		})
	return registry
}
