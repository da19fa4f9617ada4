// Command console is the operator CLI for the care collections. Each
// invocation drives one screen of the synchronization engine.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/baseplate/console/config"
	"github.com/baseplate/console/internal/console/credential"
	"github.com/baseplate/console/internal/console/screen"
	"github.com/baseplate/console/internal/console/transport"
	"github.com/baseplate/console/internal/core/schema"
)

type app struct {
	baseURL   string
	tokenFile string
	timeout   time.Duration
	ttl       time.Duration
	registry  *schema.Registry
	stdin     io.Reader
}

func main() {
	if err := newRootCmd(config.Load(), os.Stdin).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config, stdin io.Reader) *cobra.Command {
	a := &app{
		ttl:      cfg.Console.NotificationTTL,
		registry: schema.Builtins(),
		stdin:    stdin,
	}

	rootCmd := &cobra.Command{
		Use:   "console",
		Short: "Care console: manage navigators, appointments, care plans, patients and admins",
		Long: `Care console talks to the collection API and keeps a local copy of the
collection you work on.

Quick Start:
  console login --email you@example.com --password ...
  console list care-navigators -q jane
  console add patients patientId=P-1 patientName="John Doe"
  console edit patients <id> contact=555-0100
  console delete patients <id>

Environment Variables:
  CONSOLE_BASE_URL          API base URL (default: http://localhost:5000)
  CONSOLE_TOKEN_FILE        Where the login token is kept
  CONSOLE_REQUEST_TIMEOUT   Per request timeout (default: 10s)`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.baseURL, "url", cfg.Console.BaseURL, "API base URL")
	rootCmd.PersistentFlags().StringVar(&a.tokenFile, "token-file", cfg.Console.TokenFile, "Token file path")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", cfg.Console.RequestTimeout, "Per request timeout")

	var email, password string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.login(cmd, email, password)
		},
	}
	loginCmd.Flags().StringVar(&email, "email", "", "Admin email")
	loginCmd.Flags().StringVar(&password, "password", os.Getenv("CONSOLE_PASSWORD"), "Admin password (or CONSOLE_PASSWORD)")
	_ = loginCmd.MarkFlagRequired("email")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.NewFileProvider(a.tokenFile).Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}

	schemasCmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the resources the console manages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printSchemas(cmd.OutOrStdout())
			return nil
		},
	}

	var query string
	listCmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Show the records of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.list(cmd, args[0], query)
		},
	}
	listCmd.Flags().StringVarP(&query, "query", "q", "", "Only show records whose searchable fields contain this text")

	addCmd := &cobra.Command{
		Use:   "add <resource> field=value...",
		Short: "Create a record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.add(cmd, args[0], args[1:])
		},
	}

	editCmd := &cobra.Command{
		Use:   "edit <resource> <id> field=value...",
		Short: "Change fields of a record",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args[0], args[1], args[2:])
		},
	}

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a record after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.remove(cmd, args[0], args[1], yes)
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(loginCmd, logoutCmd, schemasCmd, listCmd, addCmd, editCmd, deleteCmd)
	return rootCmd
}

func (a *app) client() *transport.Client {
	return transport.NewWithClient(a.baseURL, &http.Client{}).
		WithUnaryTimeout(a.timeout).
		WithCredentials(credential.NewFileProvider(a.tokenFile))
}

func (a *app) open(ctx context.Context, resource string, load bool) (*screen.Screen, error) {
	s, err := a.registry.Lookup(resource)
	if err != nil {
		return nil, fmt.Errorf("%w (try one of: %s)", err, strings.Join(a.registry.Names(), ", "))
	}

	sc := screen.New(s, a.client(), screen.Options{NotificationTTL: a.ttl})
	if load {
		if err := sc.Open(ctx); err != nil {
			sc.Close()
			return nil, fmt.Errorf("could not load %s: %s", resource, transport.Message(err))
		}
	}
	return sc, nil
}

func (a *app) login(cmd *cobra.Command, email, password string) error {
	if password == "" {
		return errors.New("password is required (flag --password or CONSOLE_PASSWORD)")
	}

	resp, err := a.client().Login(cmd.Context(), email, password)
	if err != nil {
		return errors.New(transport.Message(err))
	}
	if err := credential.NewFileProvider(a.tokenFile).Save(resp.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)
	return nil
}

func (a *app) printSchemas(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tENDPOINT\tFIELDS")
	for _, s := range a.registry.All() {
		var names []string
		for _, f := range s.Fields() {
			name := f.Name
			if f.Required {
				name += "*"
			}
			names = append(names, name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Resource(), s.Endpoint(), strings.Join(names, ", "))
	}
	w.Flush()
}

func (a *app) list(cmd *cobra.Command, resource, query string) error {
	sc, err := a.open(cmd.Context(), resource, true)
	if err != nil {
		return err
	}
	defer sc.Close()

	sc.View.SetQuery(query)
	visible := sc.View.Visible()

	var columns []string
	for _, f := range sc.Schema.Fields() {
		if !f.WriteOnly {
			columns = append(columns, f.Name)
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	header := append([]string{"ID"}, columns...)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(header, "\t")))
	for _, rec := range visible {
		row := []string{rec.ID}
		for _, col := range columns {
			v, ok := rec.Value(col)
			if !ok || v == nil {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprint(v))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d %s\n", len(visible), len(sc.Store.Items()), resource)
	return nil
}

func (a *app) add(cmd *cobra.Command, resource string, assignments []string) error {
	fields, err := parseAssignments(assignments)
	if err != nil {
		return err
	}

	sc, err := a.open(cmd.Context(), resource, false)
	if err != nil {
		return err
	}
	defer sc.Close()

	if err := sc.Dialog.OpenCreate(); err != nil {
		return err
	}
	return a.submit(cmd, sc, fields)
}

func (a *app) edit(cmd *cobra.Command, resource, id string, assignments []string) error {
	fields, err := parseAssignments(assignments)
	if err != nil {
		return err
	}

	sc, err := a.open(cmd.Context(), resource, true)
	if err != nil {
		return err
	}
	defer sc.Close()

	if err := sc.Dialog.OpenEdit(id); err != nil {
		return err
	}
	return a.submit(cmd, sc, fields)
}

func (a *app) submit(cmd *cobra.Command, sc *screen.Screen, fields map[string]string) error {
	for name, value := range fields {
		if _, ok := sc.Schema.Field(name); !ok {
			return fmt.Errorf("%s has no field %q", sc.Schema.Resource(), name)
		}
		if err := sc.Dialog.SetField(name, value); err != nil {
			return err
		}
	}

	if err := sc.Dialog.Confirm(cmd.Context()); err != nil {
		return sessionError(sc, err)
	}
	printNotices(cmd.OutOrStdout(), sc)
	return nil
}

func (a *app) remove(cmd *cobra.Command, resource, id string, yes bool) error {
	sc, err := a.open(cmd.Context(), resource, true)
	if err != nil {
		return err
	}
	defer sc.Close()

	if err := sc.Dialog.RequestDelete(id); err != nil {
		return err
	}

	if !yes && !confirm(a.stdin, cmd.OutOrStdout(), fmt.Sprintf("Delete %s %s?", sc.Schema.DisplayName(), id)) {
		_ = sc.Dialog.Cancel()
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
		return nil
	}

	if err := sc.Dialog.ConfirmDelete(cmd.Context()); err != nil {
		return sessionError(sc, err)
	}
	printNotices(cmd.OutOrStdout(), sc)
	return nil
}

func sessionError(sc *screen.Screen, err error) error {
	if msg := sc.Dialog.Session().Error; msg != "" {
		return errors.New(msg)
	}
	return err
}

func printNotices(out io.Writer, sc *screen.Screen) {
	for _, item := range sc.Notices.Items() {
		fmt.Fprintln(out, item.Message)
	}
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// parseAssignments turns field=value arguments into a map. Values may
// contain '='; only the first one separates.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		out[name] = value
	}
	return out, nil
}
