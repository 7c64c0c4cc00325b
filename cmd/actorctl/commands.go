package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danmuck/actormgr/internal/actors"
	"github.com/danmuck/actormgr/internal/config"
	"github.com/danmuck/actormgr/internal/httpapi"
	"github.com/danmuck/actormgr/internal/logging"
	"github.com/danmuck/actormgr/internal/manager"
	"github.com/danmuck/actormgr/internal/platform"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	server     string
	token      string
	timeout    time.Duration
	verbose    bool
}

// deps lets tests replace the querier and output.
type deps struct {
	out        io.Writer
	newQuerier func(opts rootOptions) (httpapi.Querier, error)
}

func defaultDeps() deps {
	return deps{out: os.Stdout, newQuerier: newQuerier}
}

// newQuerier talks to a managerd when --server is set, otherwise straight to
// the platform with a local driver.
func newQuerier(opts rootOptions) (httpapi.Querier, error) {
	if strings.TrimSpace(opts.server) != "" {
		return httpapi.NewClient(opts.server, opts.timeout).WithToken(opts.token), nil
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.timeout > 0 {
		cfg.Platform.Timeout = opts.timeout
	}
	client, err := platform.NewClient(cfg.Platform)
	if err != nil {
		return nil, err
	}
	return manager.NewDriver(client), nil
}

func newRootCmd(d deps) *cobra.Command {
	var opts rootOptions
	root := &cobra.Command{
		Use:           "actorctl",
		Short:         "Resolve and create actors on the hosting platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logging.SetLevel("debug")
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("ACTORMGR_CONFIG"), "config file (.toml, .yaml)")
	root.PersistentFlags().StringVar(&opts.server, "server", "", "managerd base URL; queries the platform directly when empty")
	root.PersistentFlags().StringVar(&opts.token, "server-token", os.Getenv("ACTORMGR_API_TOKEN"), "bearer token for --server")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newGetCmd(d, &opts),
		newFindCmd(d, &opts),
		newGetOrCreateCmd(d, &opts),
		newCreateCmd(d, &opts),
		newConfigCmd(d, &opts),
	)
	return root
}

func newGetCmd(d deps, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ACTOR_ID",
		Short: "Fetch one public, live actor by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, d, *opts, manager.GetForID{ActorID: args[0]})
		},
	}
}

func newFindCmd(d deps, opts *rootOptions) *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find the eligible actor for a tag set without creating one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseTags(tags)
			if err != nil {
				return err
			}
			return runQuery(cmd, d, *opts, manager.GetOrCreateForTags{Tags: parsed})
		},
	}
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "tag as key=value (repeatable)")
	return cmd
}

func newGetOrCreateCmd(d deps, opts *rootOptions) *cobra.Command {
	var (
		tags   []string
		region string
	)
	cmd := &cobra.Command{
		Use:   "get-or-create",
		Short: "Find the eligible actor for a tag set, creating one from the current build if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseTags(tags)
			if err != nil {
				return err
			}
			create := &actors.CreateRequest{Tags: parsed.Clone(), Region: region}
			return runQuery(cmd, d, *opts, manager.GetOrCreateForTags{Tags: parsed, Create: create})
		},
	}
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "tag as key=value (repeatable); name selects the build")
	cmd.Flags().StringVar(&region, "region", "", "region for a newly created actor")
	return cmd
}

func newCreateCmd(d deps, opts *rootOptions) *cobra.Command {
	var (
		tags   []string
		region string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new actor from the current build named by the name tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseTags(tags)
			if err != nil {
				return err
			}
			return runQuery(cmd, d, *opts, manager.Create{Request: actors.CreateRequest{Tags: parsed, Region: region}})
		},
	}
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "tag as key=value (repeatable); name selects the build")
	cmd.Flags().StringVar(&region, "region", "", "region for the new actor")
	return cmd
}

func newConfigCmd(d deps, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage actormgr config files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init PATH",
		Short: "Write a config template (.toml or .yaml by extension)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(d.out, "wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config (defaults, file, environment)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Platform.Token != "" {
				cfg.Platform.Token = "<redacted>"
			}
			if cfg.Server.APIToken != "" {
				cfg.Server.APIToken = "<redacted>"
			}
			text, err := config.Render(cfg, config.Format(strings.ToLower(format)))
			if err != nil {
				return err
			}
			_, err = io.WriteString(d.out, text)
			return err
		},
	}
	showCmd.Flags().StringVar(&format, "format", string(config.FormatTOML), "output format: toml or yaml")

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func runQuery(cmd *cobra.Command, d deps, opts rootOptions, q manager.Query) error {
	querier, err := d.newQuerier(opts)
	if err != nil {
		return err
	}
	a, err := querier.QueryActor(cmd.Context(), q)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode actor: %w", err)
	}
	_, err = fmt.Fprintln(d.out, string(out))
	return err
}

func parseTags(raw []string) (actors.Tags, error) {
	if len(raw) == 0 {
		return nil, manager.ErrMissingTags
	}
	tags := make(actors.Tags, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid tag %q, want key=value", kv)
		}
		tags[k] = strings.TrimSpace(v)
	}
	return tags, nil
}
