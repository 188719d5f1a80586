package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/dotsetgreg/dotchat/pkg/agent"
	"github.com/dotsetgreg/dotchat/pkg/providers"
	"github.com/dotsetgreg/dotchat/pkg/tools"
)

func newChatCommand() *cobra.Command {
	var (
		message        string
		conversationID string
		projectID      string
		providerName   string
		model          string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant from the terminal",
		Long:  "Run an interactive chat session or send a one-shot message. Replies stream token by token.",
		Example: strings.Join([]string{
			"  dotchat chat",
			"  dotchat chat --message \"what's the weather in Delhi\"",
			"  dotchat chat --conversation 4f2a... --provider gemini",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			session := &chatSession{
				orch:           orch,
				conversationID: conversationID,
				projectID:      projectID,
				provider:       providerName,
				model:          model,
			}

			if strings.TrimSpace(message) != "" {
				return session.exchange(cmd.Context(), message)
			}

			fmt.Printf("%s Interactive mode (Ctrl+C to exit)\n\n", appName)
			session.interactive(cmd.Context())
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message to send")
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Continue an existing conversation")
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Attach new conversations to a project")
	cmd.Flags().StringVar(&providerName, "provider", "", "Force a specific provider (groq, gemini, openai)")
	cmd.Flags().StringVar(&model, "model", "", "Force a specific model")

	return cmd
}

type chatSession struct {
	orch           *agent.Orchestrator
	conversationID string
	projectID      string
	provider       string
	model          string
}

// exchange runs one request and prints the streamed reply.
func (s *chatSession) exchange(ctx context.Context, input string) error {
	var followUps []string

	sink := func(ev agent.Event) {
		switch ev.Type {
		case agent.EventConversation:
			s.conversationID = ev.ConversationID
		case agent.EventToken:
			fmt.Print(ev.Token)
		case agent.EventToolCall:
			fmt.Printf("⚙ %s %v\n", ev.Tool, ev.Arguments)
		case agent.EventFollowUps:
			followUps = ev.FollowUps
		}
	}

	_, err := s.orch.Process(ctx, agent.ChatRequest{
		Message:        input,
		ConversationID: s.conversationID,
		ProjectID:      s.projectID,
		Provider:       s.provider,
		Model:          s.model,
	}, sink)
	if err != nil {
		return err
	}

	fmt.Println()
	if len(followUps) > 0 {
		fmt.Println("\nYou could ask:")
		for _, f := range followUps {
			fmt.Printf("  • %s\n", f)
		}
	}
	return nil
}

func (s *chatSession) interactive(ctx context.Context) {
	prompt := fmt.Sprintf("%s You: ", appName)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".dotchat_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		s.simpleInteractive(ctx)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		fmt.Printf("\n%s ", appName)
		if err := s.exchange(ctx, input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
		fmt.Println()
	}
}

func (s *chatSession) simpleInteractive(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s You: ", appName)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		fmt.Printf("\n%s ", appName)
		if err := s.exchange(ctx, input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
		fmt.Println()
	}
}
