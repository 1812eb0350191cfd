package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/solatis/ensuregen/internal/manifest"
	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [RULE...]",
	Short: "List the rules manifests can call",
	Long: `Lists every rule overload of the built-in catalog plus any --catalog files,
in resolution order. Naming rules restricts the listing to them.`,
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringSlice("catalog", nil, "external rule catalog file (repeatable)")
	catalogCmd.Flags().StringP("output", "o", "text", "output format (text, json, yaml)")
}

// ruleEntry is one overload as listed by the catalog command.
type ruleEntry struct {
	Name      string `json:"name" yaml:"name"`
	Signature string `json:"signature" yaml:"signature"`
	Func      string `json:"func" yaml:"func"`
	Import    string `json:"import,omitempty" yaml:"import,omitempty"`
	Code      string `json:"code,omitempty" yaml:"code,omitempty"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
	Async     bool   `json:"async,omitempty" yaml:"async,omitempty"`
}

func runCatalog(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	catalog, diags, err := manifest.LoadCatalog(a.cfg.Generate.Catalogs...)
	if err != nil {
		return err
	}
	for _, d := range diags {
		fmt.Fprintln(cmd.ErrOrStderr(), d)
	}

	entries, err := catalogEntries(catalog, args)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("output")
	if err := writeEntries(cmd.OutOrStdout(), format, entries); err != nil {
		return err
	}
	if types.HasErrors(diags) {
		return types.ErrCompileFailed
	}
	return nil
}

func catalogEntries(catalog *rules.Catalog, names []string) ([]ruleEntry, error) {
	if len(names) == 0 {
		names = catalog.Names()
	}
	var entries []ruleEntry
	for _, name := range names {
		defs := catalog.Lookup(name)
		if len(defs) == 0 {
			return nil, fmt.Errorf("%w: %s", types.ErrUnknownRule, name)
		}
		for _, d := range defs {
			entries = append(entries, ruleEntry{
				Name:      d.Name,
				Signature: signature(d),
				Func:      d.Qualified(),
				Import:    d.Import,
				Code:      d.ErrorCode,
				Message:   d.Message,
				Async:     d.Async,
			})
		}
	}
	return entries, nil
}

// signature renders the parameter list as a manifest author sees it.
func signature(d types.RuleDefinition) string {
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = p.Name + " " + p.Type
	}
	return d.Name + "(" + strings.Join(params, ", ") + ")"
}

func writeEntries(w io.Writer, format string, entries []ruleEntry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RULE\tFUNC\tCODE")
		for _, e := range entries {
			fn := e.Func
			if e.Async {
				fn += " (async)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Signature, fn, e.Code)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (expected text, json or yaml)", format)
	}
}
