// Command lexctl talks to a bot from the terminal, either through the hosted
// Lex runtime or through an in-process runtime built from local config.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lexruntimeservice"
	"github.com/spf13/cobra"

	"lex-dialog/internal/app"
	"lex-dialog/internal/config"
	"lex-dialog/internal/domain"
	"lex-dialog/internal/integrations/lexruntime"
	"lex-dialog/internal/log"
	"lex-dialog/internal/wire"
)

type options struct {
	bot, alias, user string
	region           string
	local            bool
	configFile       string
	sessionAttrs     []string
	requestAttrs     []string
	checkpoint       string
	dialogAction     string
}

func (o *options) key() domain.SessionKey {
	return domain.SessionKey{BotName: o.bot, BotAlias: o.alias, UserID: o.user}
}

// connector returns the runtime the commands call and a release func.
type connector func(ctx context.Context, o *options) (wire.Runtime, func(), error)

func connect(ctx context.Context, o *options) (wire.Runtime, func(), error) {
	if o.local {
		cfg, err := config.Load(o.configFile)
		if err != nil {
			return nil, nil, err
		}
		log.Configure(log.Config{Level: cfg.LogLevel, Output: os.Stderr, Service: "lexctl"})
		rt, err := app.Build(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return rt.Service, func() { _ = rt.Close() }, nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("load AWS config: %w", err)
	}
	client, err := lexruntime.New(lexruntimeservice.NewFromConfig(awsCfg))
	if err != nil {
		return nil, nil, err
	}
	return client, func() {}, nil
}

func main() {
	if err := newRootCmd(connect).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lexctl:", err)
		os.Exit(1)
	}
}

func newRootCmd(conn connector) *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "lexctl",
		Short:         "Converse with a bot and inspect its sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.bot, "bot", "", "bot name")
	pf.StringVar(&o.alias, "alias", "", "bot alias")
	pf.StringVar(&o.user, "user", "", "user id")
	pf.StringVar(&o.region, "region", "", "AWS region of the hosted runtime")
	pf.BoolVar(&o.local, "local", false, "run the dialog in process instead of calling AWS")
	pf.StringVarP(&o.configFile, "config", "c", "", "config file for --local")
	_ = root.MarkPersistentFlagRequired("bot")
	_ = root.MarkPersistentFlagRequired("alias")
	_ = root.MarkPersistentFlagRequired("user")

	text := &cobra.Command{
		Use:   "text <utterance>",
		Short: "Send one text turn",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.PostTextRequest{Key: o.key(), InputText: strings.Join(args, " ")}
			var err error
			if req.SessionAttributes, err = parseAttrs(o.sessionAttrs); err != nil {
				return err
			}
			if req.RequestAttributes, err = parseAttrs(o.requestAttrs); err != nil {
				return err
			}
			return withRuntime(cmd, conn, o, func(rt wire.Runtime) (any, error) {
				return rt.PostText(cmd.Context(), req)
			})
		},
	}
	text.Flags().StringArrayVar(&o.sessionAttrs, "attr", nil, "session attribute as key=value, repeatable")
	text.Flags().StringArrayVar(&o.requestAttrs, "request-attr", nil, "request attribute as key=value, repeatable")

	session := &cobra.Command{Use: "session", Short: "Read or change the stored session"}
	get := &cobra.Command{
		Use:   "get",
		Short: "Print the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.GetSessionRequest{Key: o.key(), CheckpointLabelFilter: o.checkpoint}
			return withRuntime(cmd, conn, o, func(rt wire.Runtime) (any, error) {
				return rt.GetSession(cmd.Context(), req)
			})
		},
	}
	get.Flags().StringVar(&o.checkpoint, "checkpoint", "", "only return summaries with this checkpoint label")

	put := &cobra.Command{
		Use:   "put",
		Short: "Replace the session attributes and optionally the dialog action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.PutSessionRequest{Key: o.key()}
			var err error
			if req.SessionAttributes, err = parseAttrs(o.sessionAttrs); err != nil {
				return err
			}
			if o.dialogAction != "" {
				var action domain.DialogAction
				if err := json.Unmarshal([]byte(o.dialogAction), &action); err != nil {
					return fmt.Errorf("--dialog-action: %w", err)
				}
				req.DialogAction = &action
			}
			return withRuntime(cmd, conn, o, func(rt wire.Runtime) (any, error) {
				return rt.PutSession(cmd.Context(), req)
			})
		},
	}
	put.Flags().StringArrayVar(&o.sessionAttrs, "attr", nil, "session attribute as key=value, repeatable")
	put.Flags().StringVar(&o.dialogAction, "dialog-action", "", `dialog action as JSON, e.g. {"type":"ElicitIntent"}`)

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.DeleteSessionRequest{Key: o.key()}
			return withRuntime(cmd, conn, o, func(rt wire.Runtime) (any, error) {
				return rt.DeleteSession(cmd.Context(), req)
			})
		},
	}

	session.AddCommand(get, put, del)
	root.AddCommand(text, session)
	return root
}

func withRuntime(cmd *cobra.Command, conn connector, o *options, call func(wire.Runtime) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
		cmd.SetContext(ctx)
	}
	rt, release, err := conn(ctx, o)
	if err != nil {
		return err
	}
	defer release()
	out, err := call(rt)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

// parseAttrs reads key=value pairs. A key given twice is an error.
func parseAttrs(pairs []string) (map[string]string, error) {
	var m map[string]string
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("attribute %q is not key=value", p)
		}
		var err error
		if m, err = domain.AddEntry(m, k, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
