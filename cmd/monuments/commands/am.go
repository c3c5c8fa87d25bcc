package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/team-monumental/monuments-and-memorials-sub000/am"
	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// AmCmd shows and validates configuration
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Show and validate configuration",
	Long: `am - Show and validate configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/monuments/config.toml)
3. User config (~/.monuments/am.toml)
4. Project config (am.toml, searched up from the working directory)
5. Environment variables (MONUMENTS_* prefix)

Examples:
  monuments am show
  monuments am show --format json
  monuments am get dedup.coordinate_tolerance
  monuments am validate
  monuments am where`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value by dotted key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	out := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		return printJSON(out, cfg)
	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# monuments configuration\n%s", data)
	case "toml":
		data, err := am.RenderTOML(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# monuments configuration\n%s", data)
	default:
		return errors.WithHint(errors.Newf("unsupported format: %s", configFormat), "supported: toml, json, yaml")
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	v := am.GetViper()
	if !v.IsSet(args[0]) {
		return errors.NewNotFoundError("configuration key %q", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.Get(args[0]))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}

	pterm.DefaultSection.Println("Configuration cascade (later overrides earlier)")
	files := pterm.TableData{{"Level", "Path", "State"}}
	for _, candidate := range am.ConfigPaths() {
		state := "missing"
		if _, err := os.Stat(candidate.Path); err == nil {
			state = "exists"
		}
		files = append(files, []string{string(candidate.Source), candidate.Path, state})
	}
	files = append(files, []string{string(am.SourceEnvironment), am.EnvPrefix + "_*", ""})
	if err := pterm.DefaultTable.WithHasHeader().WithData(files).Render(); err != nil {
		return err
	}

	if intro.ConfigFile != "" {
		pterm.Info.Printfln("Active file: %s", intro.ConfigFile)
	}
	counts := intro.CountBySource()
	pterm.Info.Printfln("%d settings: %d default, %d system, %d user, %d project, %d environment",
		len(intro.Settings), counts[am.SourceDefault], counts[am.SourceSystem],
		counts[am.SourceUser], counts[am.SourceProject], counts[am.SourceEnvironment])

	settings := append([]am.SettingInfo(nil), intro.Settings...)
	sort.SliceStable(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })

	pterm.DefaultSection.Println("Active configuration")
	data := pterm.TableData{{"Key", "Value", "Source"}}
	for _, s := range settings {
		source := string(s.Source)
		if s.SourcePath != "" {
			source += " (" + s.SourcePath + ")"
		}
		data = append(data, []string{s.Key, fmt.Sprint(s.Value), source})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
