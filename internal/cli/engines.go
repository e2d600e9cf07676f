package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vizgo/pkg/client"
	"github.com/matzehuels/vizgo/pkg/viz"
)

var engineDescriptions = map[string]string{
	viz.EngineDot:       "hierarchical layouts of directed graphs",
	viz.EngineNeato:     "spring model layouts",
	viz.EngineFDP:       "force-directed placement",
	viz.EngineSFDP:      "multiscale force-directed placement for large graphs",
	viz.EngineCirco:     "circular layouts",
	viz.EngineTwopi:     "radial layouts",
	viz.EngineOsage:     "clustered array layouts",
	viz.EnginePatchwork: "squarified treemaps",
	viz.EngineNop:       "keep positions from pos attributes",
	viz.EngineNop1:      "keep positions from pos attributes",
	viz.EngineNop2:      "keep node and edge positions from pos attributes",
}

// enginesCommand lists the layout engines and output formats.
func (c *CLI) enginesCommand() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "engines",
		Short: "List layout engines and output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engines, formats := viz.ValidEngines, viz.ValidFormats
			if serverURL != "" {
				cl := client.New(serverURL)
				var err error
				if engines, err = cl.Engines(cmd.Context()); err != nil {
					return err
				}
				if formats, err = cl.Formats(cmd.Context()); err != nil {
					return err
				}
			}
			fmt.Println(enginesTable(engines, c.Config.Render.Engine))
			printKeyValue("Formats", strings.Join(formats, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "query a running render service instead")
	return cmd
}

func enginesTable(engines []string, current string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, len(engines))
	for i, e := range engines {
		mark := ""
		if e == current {
			mark = iconSuccess
		}
		rows[i] = []string{e, engineDescriptions[e], mark}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Engine", "Description", "Default").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return StyleHighlight
			case col == 2:
				return StyleSuccess
			}
			return StyleDim
		}).
		Render()
}
