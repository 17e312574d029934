package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	odoo "github.com/odoojs/odoo.go"
	"github.com/odoojs/odoo.go/pkg/bus"
	"github.com/odoojs/odoo.go/pkg/connection"
	"github.com/odoojs/odoo.go/pkg/constants"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate and print the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			sess := client.Session()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"uid":      sess.UID,
				"username": sess.Username,
				"context":  sess.Context,
			})
		},
	}
}

type readFlags struct {
	domain string
	fields []string
	offset int
	limit  int
	order  string
}

func (f *readFlags) register(cmd *cobra.Command, withDomain bool) {
	if withDomain {
		cmd.Flags().StringVar(&f.domain, "domain", "[]", `domain as JSON, e.g. '[["is_company","=",true]]'`)
	}
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "fields to read")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "records to skip")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum records (0: all)")
	cmd.Flags().StringVar(&f.order, "order", "", `sort order, e.g. "name asc"`)
}

func (f *readFlags) params() (odoo.SearchReadParams, error) {
	domain, err := parseDomain(f.domain)
	if err != nil {
		return odoo.SearchReadParams{}, err
	}
	return odoo.SearchReadParams{
		Domain: domain,
		Offset: f.offset,
		Limit:  f.limit,
		Order:  f.order,
		Fields: f.fields,
	}, nil
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		f       readFlags
		idsOnly bool
		count   bool
	)
	cmd := &cobra.Command{
		Use:   "search MODEL",
		Short: "Search records (search_read by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := f.params()
			if err != nil {
				return err
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}

			ctx, model := cmd.Context(), args[0]
			var out any
			switch {
			case count:
				out, err = odoo.SearchCount(ctx, client, model, odoo.SearchParams{Domain: p.Domain})
			case idsOnly:
				out, err = odoo.Search(ctx, client, model, odoo.SearchParams{Domain: p.Domain})
			default:
				out, err = odoo.SearchRead[odoo.Record](ctx, client, model, p)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "print matching ids only")
	cmd.Flags().BoolVar(&count, "count", false, "print the number of matches only")
	cmd.MarkFlagsMutuallyExclusive("ids", "count")
	return cmd
}

func newReadCmd(a *app) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "read MODEL ID...",
		Short: "Read records by id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			rows, err := odoo.Get[odoo.Record](cmd.Context(), client, args[0], odoo.GetParams{IDs: ids, Fields: fields})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to read")
	return cmd
}

func newBrowseCmd(a *app) *cobra.Command {
	var f readFlags
	cmd := &cobra.Command{
		Use:   "browse MODEL",
		Short: "Page through all records of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := f.params()
			if err != nil {
				return err
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			rows, err := odoo.BrowseByID[odoo.Record](cmd.Context(), client, args[0], p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	f.register(cmd, false)
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create MODEL VALUES",
		Short: "Create a record from a JSON object and print its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseObject(args[1])
			if err != nil {
				return err
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			id, err := odoo.Create(cmd.Context(), client, args[0], values)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), id)
		},
	}
}

func newWriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "write MODEL ID VALUES",
		Short: "Update a record with a JSON object",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:2])
			if err != nil {
				return err
			}
			values, err := parseObject(args[2])
			if err != nil {
				return err
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			ok, err := odoo.Update(cmd.Context(), client, args[0], ids[0], values)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ok)
		},
	}
}

func newUnlinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink MODEL ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			ok, err := odoo.Delete(cmd.Context(), client, args[0], ids[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ok)
		},
	}
}

func newCallCmd(a *app) *cobra.Command {
	var (
		endpoint string
		rawArgs  string
		kwargs   string
	)
	cmd := &cobra.Command{
		Use:   "call MODEL METHOD",
		Short: "Call any model method; no context is added",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var callArgs []any
			if err := json.Unmarshal([]byte(rawArgs), &callArgs); err != nil {
				return fmt.Errorf("--args: %w", err)
			}
			callKwargs, err := parseObject(kwargs)
			if err != nil {
				return fmt.Errorf("--kwargs: %w", err)
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			res, err := odoo.RPCCall[json.RawMessage](cmd.Context(), client, endpoint, connection.CallParams{
				Model:  args[0],
				Method: args[1],
				Args:   callArgs,
				Kwargs: callKwargs,
			})
			if err != nil {
				return err
			}
			if res == nil {
				return printJSON(cmd.OutOrStdout(), nil)
			}
			return printJSON(cmd.OutOrStdout(), *res)
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", constants.CallKWPath, "JSON-RPC endpoint path")
	cmd.Flags().StringVar(&rawArgs, "args", "[]", "positional arguments as a JSON array")
	cmd.Flags().StringVar(&kwargs, "kwargs", "{}", "keyword arguments as a JSON object")
	return cmd
}

func newListenCmd(a *app) *cobra.Command {
	var (
		last      int64
		reconnect bool
	)
	cmd := &cobra.Command{
		Use:   "listen [CHANNEL...]",
		Short: "Print bus notifications until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}

			var backoff bus.Backoff
			if reconnect {
				backoff = bus.NewExponentialBackoff()
			}
			return bus.Follow(cmd.Context(), client, args, backoff, func(n bus.Notification) error {
				if a.metrics != nil {
					a.metrics.ObserveNotification(n.Message.Type)
				}
				return printJSON(cmd.OutOrStdout(), n)
			}, bus.WithLast(last), bus.WithLogger(a.logger))
		},
	}
	cmd.Flags().Int64Var(&last, "last", 0, "replay notifications after this id")
	cmd.Flags().BoolVar(&reconnect, "reconnect", false, "reconnect with backoff when the bus connection drops")
	return cmd
}

func newPasswordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage the stored password",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the password read from stdin in the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.validate(); err != nil {
				return err
			}
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				return fmt.Errorf("empty password")
			}
			store, err := a.openSecrets()
			if err != nil {
				return err
			}
			if err := storePassword(store, a.cfg.secretKey(), password); err != nil {
				return err
			}
			a.logger.Info().Str("key", a.cfg.secretKey()).Msg("password stored")
			return nil
		},
	})
	return cmd
}

func parseDomain(s string) (odoo.Domain, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var domain odoo.Domain
	if err := json.Unmarshal([]byte(s), &domain); err != nil {
		return nil, fmt.Errorf("--domain: %w", err)
	}
	return domain, nil
}

func parseObject(s string) (map[string]any, error) {
	var values map[string]any
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid record id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
