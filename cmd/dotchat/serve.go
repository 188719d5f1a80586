package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dotsetgreg/dotchat/pkg/agent"
	"github.com/dotsetgreg/dotchat/pkg/bus"
	"github.com/dotsetgreg/dotchat/pkg/channels"
	"github.com/dotsetgreg/dotchat/pkg/gateway"
	"github.com/dotsetgreg/dotchat/pkg/heartbeat"
	"github.com/dotsetgreg/dotchat/pkg/logger"
	"github.com/dotsetgreg/dotchat/pkg/providers"
	"github.com/dotsetgreg/dotchat/pkg/tools"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Run the gateway: HTTP/WebSocket API, channels, and heartbeat",
		Long:    "Start the streaming gateway, channel adapters, and the maintenance heartbeat. Runs until interrupted.",
		Example: "  dotchat serve --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.ConfiguredProviders()) == 0 {
		return fmt.Errorf("no providers configured; set an API key (e.g. DOTCHAT_PROVIDERS_GROQ_API_KEY)")
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	registry, err := providers.NewRegistry(cfg)
	if err != nil {
		return fmt.Errorf("initialize providers: %w", err)
	}

	toolRegistry := tools.BuildRegistry(cfg)
	defer toolRegistry.Close()

	orch := agent.NewOrchestrator(cfg, store, registry, toolRegistry)

	fmt.Printf("✓ Providers: %s\n", strings.Join(registry.Names(), ", "))
	fmt.Printf("✓ Tools: %d loaded\n", toolRegistry.Count())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hb, err := heartbeat.NewService(cfg.Heartbeat, store, registry)
	if err != nil {
		return fmt.Errorf("initialize heartbeat: %w", err)
	}
	go func() {
		if err := hb.Run(ctx); err != nil && err != context.Canceled {
			logger.ErrorCF("heartbeat", "Heartbeat exited", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	messageBus := bus.NewMessageBus()
	defer messageBus.Close()

	manager, err := channels.NewManager(cfg, messageBus)
	if err != nil {
		return fmt.Errorf("initialize channels: %w", err)
	}
	if err := manager.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	defer manager.StopAll(context.Background())

	if enabled := manager.EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", strings.Join(enabled, ", "))
		bridge := channels.NewBridge(messageBus, orch)
		go bridge.Run(ctx)
	}

	server := gateway.NewServer(cfg, orch, store, registry)
	fmt.Printf("✓ Gateway listening on http://%s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	fmt.Println("\n✓ Gateway stopped")
	return nil
}
