package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/gotodobbs/assistant/internal/api"
	"github.com/gotodobbs/assistant/internal/appointment"
	"github.com/gotodobbs/assistant/internal/config"
	"github.com/gotodobbs/assistant/internal/faq"
	"github.com/gotodobbs/assistant/internal/leads"
)

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		// stdout carries the protocol, so logs stay on stderr.
		setupLogging(cfg.Log.Level)

		svc, err := buildServices(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Leads.Enabled {
			worker := leads.NewWorker(svc.store, leads.NewFile(cfg.LeadsFile()), leadsPollInterval)
			go worker.Run(ctx)
		}

		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Router:       svc.router,
			Appointments: svc.appointments,
			Threshold:    cfg.FAQ.Threshold,
		}, version)
		slog.Info("MCP server started (stdio transport)")

		err = server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	},
}

// --- ask ---

type chatReply struct {
	Text               string         `json:"text"`
	Intent             *string        `json:"intent"`
	Metadata           map[string]any `json:"metadata"`
	IsSchedulingIntent bool           `json:"isSchedulingIntent"`
}

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send a chat message to the running server",
	Long: `Send a chat message to the running server and print the answer.

Examples:
  dobbs ask "What are your hours?"
  dobbs ask --json I need new tires`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/chat", map[string]string{
			"message": strings.Join(args, " "),
		})
		if err != nil {
			return err
		}

		var reply chatReply
		if err := decodeJSON(resp, &reply); err != nil {
			return err
		}

		if asJSON {
			return printJSON(os.Stdout, reply)
		}
		printReply(os.Stdout, reply)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("json", false, "print the raw chat response")
}

func printReply(w io.Writer, reply chatReply) {
	fmt.Fprintln(w, reply.Text)
	if source, ok := reply.Metadata["source"].(string); ok {
		fmt.Fprintf(w, "%s\n", colorize(color.Faint, "source: "+source))
	}
	if reply.IsSchedulingIntent {
		printStep("Scheduling intent detected, book with: dobbs appointments create")
	}
}

// --- faq ---

var faqCmd = &cobra.Command{
	Use:   "faq",
	Short: "Inspect the FAQ catalog",
}

var faqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		for i, e := range catalog.Entries() {
			fmt.Printf("%s  %s\n", colorize(color.FgCyan, fmt.Sprintf("%2d", i+1)), e.Question)
		}
		return nil
	},
}

var faqScoreCmd = &cobra.Command{
	Use:   "score <query>",
	Short: "Show how a message scores against the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetInt("top")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		ranked := rankCandidates(catalog.Score(query), top)
		if len(ranked) == 0 {
			fmt.Println("No entry shares a keyword with the query.")
			return nil
		}

		best, matched := catalog.Match(query, cfg.FAQ.Threshold)
		for _, c := range ranked {
			marker := " "
			if matched && c.Entry.Question == best.Question {
				marker = colorize(color.FgGreen, "✓")
			}
			fmt.Printf("%s %.3f (raw %.1f)  %s\n", marker, c.NormalizedScore, c.RawScore, c.Entry.Question)
		}
		if !matched {
			printWarning("No entry above threshold %.2f, the message would go to the model", cfg.FAQ.Threshold)
		}
		return nil
	},
}

func init() {
	faqScoreCmd.Flags().Int("top", 5, "number of candidates to show")
	faqCmd.AddCommand(faqListCmd)
	faqCmd.AddCommand(faqScoreCmd)
}

// rankCandidates drops zero scores and returns the n best, highest first.
// Equal scores keep catalog order.
func rankCandidates(cands []faq.Candidate, n int) []faq.Candidate {
	out := slices.DeleteFunc(slices.Clone(cands), func(c faq.Candidate) bool {
		return c.NormalizedScore <= 0
	})
	slices.SortStableFunc(out, func(a, b faq.Candidate) int {
		return cmp.Compare(b.NormalizedScore, a.NormalizedScore)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// --- appointments ---

var appointmentsCmd = &cobra.Command{
	Use:   "appointments",
	Short: "Manage appointment requests",
}

var appointmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent appointment requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/api/appointments?limit=%d", limit))
		if err != nil {
			return err
		}

		var records []appointment.Record
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No appointments found.")
			return nil
		}
		for _, rec := range records {
			fmt.Println(appointmentLine(rec))
		}
		return nil
	},
}

var appointmentsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single appointment request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/appointments/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var rec appointment.Record
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}
		return printJSON(os.Stdout, rec)
	},
}

// appointmentFlags maps create flags onto request fields.
var appointmentFlags = []struct {
	name  string
	usage string
	field func(*appointment.Request) *string
}{
	{"name", "customer name (required)", func(r *appointment.Request) *string { return &r.Name }},
	{"phone", "contact phone", func(r *appointment.Request) *string { return &r.Phone }},
	{"email", "contact email", func(r *appointment.Request) *string { return &r.Email }},
	{"location", "preferred store", func(r *appointment.Request) *string { return &r.Location }},
	{"service", "service type", func(r *appointment.Request) *string { return &r.ServiceType }},
	{"date", "preferred date", func(r *appointment.Request) *string { return &r.PreferredDate }},
	{"time", "preferred time", func(r *appointment.Request) *string { return &r.PreferredTime }},
	{"make", "vehicle make", func(r *appointment.Request) *string { return &r.VehicleMake }},
	{"model", "vehicle model", func(r *appointment.Request) *string { return &r.VehicleModel }},
	{"year", "vehicle year", func(r *appointment.Request) *string { return &r.VehicleYear }},
	{"notes", "anything else the store should know", func(r *appointment.Request) *string { return &r.Notes }},
}

func requestFromFlags(cmd *cobra.Command) appointment.Request {
	var req appointment.Request
	for _, f := range appointmentFlags {
		v, _ := cmd.Flags().GetString(f.name)
		*f.field(&req) = v
	}
	return req
}

var appointmentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit an appointment request",
	Long: `Submit an appointment request to the running server.

Either --phone or all of --location, --service, --date and --time are required.

Examples:
  dobbs appointments create --name "Pat Customer" --phone 314-555-0100
  dobbs appointments create --name Pat --location Kirkwood --service "Oil Change" --date 2026-11-02 --time 09:00`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := requestFromFlags(cmd)
		if strings.TrimSpace(req.Name) == "" {
			return fmt.Errorf("--name is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/appointments", req)
		if err != nil {
			return err
		}

		var rec appointment.Record
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}
		printSuccess("Appointment request %s created", rec.ID)
		return nil
	},
}

func init() {
	appointmentsListCmd.Flags().Int("limit", 20, "maximum number of appointments to list")
	for _, f := range appointmentFlags {
		appointmentsCreateCmd.Flags().String(f.name, "", f.usage)
	}
	appointmentsCmd.AddCommand(appointmentsListCmd)
	appointmentsCmd.AddCommand(appointmentsShowCmd)
	appointmentsCmd.AddCommand(appointmentsCreateCmd)
}

func appointmentLine(rec appointment.Record) string {
	id := rec.ID
	if len(id) > 8 {
		id = id[:8]
	}
	contact := rec.Phone
	if contact == "" {
		contact = strings.TrimSpace(strings.Join([]string{rec.Location, rec.PreferredDate, rec.PreferredTime}, " "))
	}
	line := fmt.Sprintf("%s  %s  %s  %s",
		colorize(color.FgCyan, id),
		rec.CreatedAt.Format("2006-01-02 15:04"),
		rec.Name,
		contact,
	)
	if rec.ServiceType != "" {
		line += "  (" + rec.ServiceType + ")"
	}
	return line
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(color.Bold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(config.ConfigFilePath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configPathCmd)
}
