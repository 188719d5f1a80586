package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/convo"
	"github.com/dotsetgreg/dotchat/pkg/logger"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool
	var debug bool

	root := &cobra.Command{
		Use:   "dotchat",
		Short: "Conversational assistant backend with provider routing, tools, and a streaming gateway",
		Long: strings.TrimSpace(`dotchat is a conversational AI assistant backend.

It resolves follow-up questions against conversation context, routes each
question to the best configured model provider, grounds answers with built-in
tools, and streams replies over CLI, HTTP, WebSocket, and Discord.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logger.SetLevel(logger.DEBUG)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	root.AddCommand(newServeCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newConversationsCommand())
	root.AddCommand(newProjectsCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dotchat", "config.json")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

func openStore(cfg *config.Config) (*convo.Store, error) {
	return convo.NewStore(cfg.StoragePath())
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  dotchat version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration, provider, and runtime readiness",
		Example: "  dotchat status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			fmt.Printf("%s Status\n", appName)
			fmt.Printf("Version: %s\n", formatVersion())
			fmt.Println()

			configPath := getConfigPath()
			if _, err := os.Stat(configPath); err == nil {
				fmt.Println("Config:", configPath, "✓")
			} else {
				fmt.Println("Config:", configPath, "✗ (using defaults)")
			}

			storagePath := cfg.StoragePath()
			if _, err := os.Stat(storagePath); err == nil {
				fmt.Println("Storage:", storagePath, "✓")
			} else {
				fmt.Println("Storage:", storagePath, "not initialized")
			}

			status := func(ready bool) string {
				if ready {
					return "✓"
				}
				return "not set"
			}

			configured := cfg.ConfiguredProviders()
			for _, name := range []string{"groq", "gemini", "openai"} {
				ready := false
				for _, c := range configured {
					if c == name {
						ready = true
					}
				}
				fmt.Printf("Provider %s: %s\n", name, status(ready))
			}

			discordReady := strings.TrimSpace(cfg.Channels.Discord.Token) != ""
			fmt.Println("Discord token:", status(discordReady))
			fmt.Printf("Gateway: http://%s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
			fmt.Println("Assistant ready:", status(len(configured) > 0))
			return nil
		},
	}
}

func newConversationsCommand() *cobra.Command {
	convRoot := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "List and manage stored conversations",
	}

	var projectID string
	var limit int

	list := &cobra.Command{
		Use:     "list",
		Short:   "List conversations, newest first",
		Example: "  dotchat conversations list --limit 10",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *convo.Store) error {
				summaries, err := store.List(ctx, projectID, limit)
				if err != nil {
					return err
				}
				if len(summaries) == 0 {
					fmt.Println("No conversations stored")
					return nil
				}
				for _, s := range summaries {
					name := s.Name
					if name == "" {
						name = "(unnamed)"
					}
					fmt.Printf("  %s  %-30s  %d turns  %s\n",
						s.ID, name, s.TurnCount, s.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
	list.Flags().StringVarP(&projectID, "project", "p", "", "Only conversations in this project")
	list.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum conversations to show (0 = all)")
	convRoot.AddCommand(list)

	convRoot.AddCommand(&cobra.Command{
		Use:     "show <id>",
		Short:   "Print the full turn history of a conversation",
		Args:    cobra.ExactArgs(1),
		Example: "  dotchat conversations show 4f2a...",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *convo.Store) error {
				conv, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				for _, turn := range conv.Turns {
					fmt.Printf("[%s] %s\n", turn.Role, turn.Content)
				}
				return nil
			})
		},
	})

	convRoot.AddCommand(&cobra.Command{
		Use:     "rename <id> <name>",
		Short:   "Rename a conversation",
		Args:    cobra.ExactArgs(2),
		Example: "  dotchat conversations rename 4f2a... \"Nepal trip\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *convo.Store) error {
				if err := store.Rename(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Println("✓ Renamed")
				return nil
			})
		},
	})

	convRoot.AddCommand(&cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one conversation",
		Args:    cobra.ExactArgs(1),
		Example: "  dotchat conversations delete 4f2a...",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *convo.Store) error {
				if err := store.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("✓ Deleted")
				return nil
			})
		},
	})

	convRoot.AddCommand(&cobra.Command{
		Use:     "clear",
		Short:   "Delete all conversations",
		Example: "  dotchat conversations clear",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *convo.Store) error {
				if err := store.DeleteAll(ctx); err != nil {
					return err
				}
				fmt.Println("✓ All conversations deleted")
				return nil
			})
		},
	})

	return convRoot
}

func newProjectsCommand() *cobra.Command {
	projRoot := &cobra.Command{
		Use:   "projects",
		Short: "Group conversations under shared context",
	}

	projRoot.AddCommand(&cobra.Command{
		Use:     "list",
		Short:   "List projects",
		Example: "  dotchat projects list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *convo.Store) error {
				projects, err := store.ListProjects(ctx)
				if err != nil {
					return err
				}
				if len(projects) == 0 {
					fmt.Println("No projects")
					return nil
				}
				for _, p := range projects {
					fmt.Printf("  %s  %s\n", p.ID, p.Name)
				}
				return nil
			})
		},
	})

	projRoot.AddCommand(&cobra.Command{
		Use:     "add <name>",
		Short:   "Create a project",
		Args:    cobra.ExactArgs(1),
		Example: "  dotchat projects add travel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *convo.Store) error {
				project, err := store.CreateProject(ctx, args[0], nil)
				if err != nil {
					return err
				}
				fmt.Printf("✓ Created project %s (%s)\n", project.Name, project.ID)
				return nil
			})
		},
	})

	projRoot.AddCommand(&cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm", "delete"},
		Short:   "Delete a project",
		Args:    cobra.ExactArgs(1),
		Example: "  dotchat projects remove 9c1b...",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *convo.Store) error {
				if err := store.DeleteProject(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("✓ Deleted")
				return nil
			})
		},
	})

	return projRoot
}

func withStore(fn func(context.Context, *convo.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return fn(context.Background(), store)
}
