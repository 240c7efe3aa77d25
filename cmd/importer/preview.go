package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
)

var previewLimit int

// previewRow is the YAML shape of one routed row.
type previewRow struct {
	Line       int               `yaml:"line"`
	Fields     map[string]string `yaml:"fields,omitempty"`
	Metadata   map[string]string `yaml:"metadata,omitempty"`
	Attachment string            `yaml:"attachment,omitempty"`
	Tags       []string          `yaml:"tags,omitempty"`
}

type previewDoc struct {
	Source  string            `yaml:"source"`
	Columns map[string]string `yaml:"columns"`
	Rows    []previewRow      `yaml:"rows"`
	Total   int               `yaml:"total_rows"`
}

var previewCmd = &cobra.Command{
	Use:   "preview [path]",
	Short: "Show how each row would be routed, without writing anything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(memoryStore)
		if err != nil {
			return err
		}

		source := cfg.Import.Source
		if len(args) == 1 {
			source = args[0]
		}

		parsed, err := core.ParseFile(source, cfg.Import.MaxFileSize)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(buildPreview(source, parsed, previewLimit))
	},
}

// buildPreview lists each header's bucket and the first limit rows.
// A limit of zero or less shows every row.
func buildPreview(source string, parsed *core.ParseResult, limit int) previewDoc {
	doc := previewDoc{
		Source:  source,
		Columns: make(map[string]string, len(parsed.Headers)),
		Total:   len(parsed.Rows),
	}
	for _, h := range parsed.Headers {
		doc.Columns[h] = core.Route(h).String()
	}

	rows := parsed.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for _, r := range rows {
		doc.Rows = append(doc.Rows, previewRow{
			Line:       r.Line,
			Fields:     r.Fields,
			Metadata:   r.Metadata,
			Attachment: r.Attachment,
			Tags:       r.Tags,
		})
	}
	return doc
}

func init() {
	previewCmd.Flags().IntVarP(&previewLimit, "limit", "n", 20, "rows to show (0 for all)")
	rootCmd.AddCommand(previewCmd)
}
