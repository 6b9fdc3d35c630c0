package main

import (
	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/report"
	"github.com/spf13/cobra"
)

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List kernel variants and their aliases",
	Long:  `Lists every canonical variant, the historical names that select it and which one "auto" resolves to on this machine.`,
	Run: func(cmd *cobra.Command, args []string) {
		report.WriteVariants(cmd.OutOrStdout(), variantRows())
	},
}

func init() {
	rootCmd.AddCommand(variantsCmd)
}

func variantRows() []report.VariantRow {
	aliases := make(map[string][]string)
	for _, a := range escape.Aliases() {
		aliases[a[1]] = append(aliases[a[1]], a[0])
	}

	var rows []report.VariantRow
	for _, v := range escape.SupportedVariants() {
		rows = append(rows, report.VariantRow{
			Name:    v.String(),
			Kind:    v.Kind.String(),
			Width:   v.Width,
			Aliases: aliases[v.String()],
			Auto:    v == escape.ActiveVariant,
		})
	}
	return rows
}
