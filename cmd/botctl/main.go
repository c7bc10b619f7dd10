// Package main is botctl, a command line client for the bot platform.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trivium-ai/bot-platform/pkg/botclient"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "botctl",
	Short: "Command line client for the bot platform API",
	Long: `botctl talks to a bot platform server: post queries, browse
conversation threads, mark preferred response variants and inspect
provider availability.

The server address and bearer token come from --server/--token or the
BOT_SERVER and BOT_TOKEN environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Browse conversation threads",
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your threads, most recently updated first",
	RunE:  runThreadsList,
}

var threadsShowCmd = &cobra.Command{
	Use:   "show [thread-id]",
	Short: "Show one thread with its full history",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsShow,
}

var chatCmd = &cobra.Command{
	Use:   "chat [query]",
	Short: "Send a query to the bot",
	Long: `Sends a query and prints the three generated response variants.
Pass --thread to continue an existing conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

var preferCmd = &cobra.Command{
	Use:   "prefer [thread-id] [response-key]",
	Short: "Mark a response variant (query_A/query_B/query_C) as preferred",
	Args:  cobra.ExactArgs(2),
	RunE:  runPrefer,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show provider and model availability",
	RunE:  runConfig,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server conversation statistics",
	RunE:  runStats,
}

var (
	listLimit int
	listSkip  int

	chatThread      string
	chatProvider    string
	chatModel       string
	chatTemperature float64
	chatMaxTokens   int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("BOT_SERVER", "http://localhost:8080"), "bot platform server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("BOT_TOKEN"), "bearer token")

	threadsListCmd.Flags().IntVar(&listLimit, "limit", 50, "page size")
	threadsListCmd.Flags().IntVar(&listSkip, "skip", 0, "page offset")

	chatCmd.Flags().StringVar(&chatThread, "thread", "", "continue an existing thread")
	chatCmd.Flags().StringVar(&chatProvider, "provider", "", "LLM provider (server default when empty)")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "model override (provider default when empty)")
	chatCmd.Flags().Float64Var(&chatTemperature, "temperature", 0, "sampling temperature override")
	chatCmd.Flags().IntVar(&chatMaxTokens, "max-tokens", 0, "response token budget override")

	threadsCmd.AddCommand(threadsListCmd, threadsShowCmd)
	rootCmd.AddCommand(threadsCmd, chatCmd, preferCmd, configCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var apiErr *botclient.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(os.Stderr, "error: %s (HTTP %d)\n", apiErr.Message, apiErr.StatusCode)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newClient() *botclient.Client {
	var creds botclient.CredentialProvider
	if authToken != "" {
		creds = botclient.StaticToken(authToken)
	}
	return botclient.New(serverURL, creds, botclient.WithUserAgent("botctl"))
}

func runThreadsList(cmd *cobra.Command, args []string) error {
	page, err := newClient().ListThreads(cmd.Context(), listLimit, listSkip)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "THREAD\tUPDATED\tTURNS\tQUERY")
	for _, t := range page.Threads {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			t.ThreadID,
			t.TimeUpdated.Local().Format("2006-01-02 15:04"),
			t.InteractionCount,
			truncate(t.Query, 60),
		)
	}
	tw.Flush()

	fmt.Printf("\n%d-%d of %d", page.Skip+1, page.Skip+len(page.Threads), page.Total)
	if page.HasMore {
		fmt.Printf(" (more: --skip %d)", page.Skip+page.Limit)
	}
	fmt.Println()
	return nil
}

func runThreadsShow(cmd *cobra.Command, args []string) error {
	thread, err := newClient().GetThread(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(thread)
}

func runChat(cmd *cobra.Command, args []string) error {
	req := &botclient.ChatRequest{
		ThreadID: chatThread,
		Query:    strings.Join(args, " "),
		Provider: chatProvider,
	}
	if cmd.Flags().Changed("model") {
		req.Model = &chatModel
	}
	if cmd.Flags().Changed("temperature") {
		req.Temperature = &chatTemperature
	}
	if cmd.Flags().Changed("max-tokens") {
		req.MaxTokens = &chatMaxTokens
	}

	thread, err := newClient().PostMessage(cmd.Context(), req)
	if err != nil {
		return err
	}

	fmt.Printf("thread: %s\n", thread.ThreadID)
	for _, key := range []string{"query_A", "query_B", "query_C"} {
		if resp, ok := thread.Responses[key]; ok {
			fmt.Printf("\n--- %s ---\n%s\n", key, resp)
		}
	}
	return nil
}

func runPrefer(cmd *cobra.Command, args []string) error {
	ack, err := newClient().MarkPreferredResponse(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("marked %s preferred on %s\n", ack.ResponseKey, ack.ThreadID)
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := newClient().BotConfig(cmd.Context())
	if err != nil {
		return err
	}

	sel := botclient.NewSelector(cfg)
	if err := sel.SelectProvider(cfg.DefaultProvider); err == nil {
		fmt.Printf("default: %s (%s)\n\n", sel.Provider(), sel.Model())
	}
	return printJSON(cfg)
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := newClient().Stats(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
