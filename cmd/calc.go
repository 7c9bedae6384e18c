package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/gpacalc/internal/calc"
	"github.com/KaramelBytes/gpacalc/internal/report"
	"github.com/KaramelBytes/gpacalc/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	calcOutputPath string
	calcJSON       bool
	calcDelimiter  string
	calcDecimal    string
	calcSheetName  string
	calcSheetIndex int
)

var calcCmd = &cobra.Command{
	Use:   "calc <file>",
	Short: "Compute cumulative GPA and top-tier credit ratio from a CSV/TSV/XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt := currentConfig().CalcOptions()
		if calcDelimiter != "" {
			switch calcDelimiter {
			case ",":
				opt.Table.Delimiter = ','
			case "\t", "tab":
				opt.Table.Delimiter = '\t'
			case ";":
				opt.Table.Delimiter = ';'
			default:
				return fmt.Errorf("unsupported --delimiter: %s", calcDelimiter)
			}
		}
		switch strings.ToLower(strings.TrimSpace(calcDecimal)) {
		case ",", "comma":
			opt.Table.DecimalSeparator = ','
		case ".", "dot":
			opt.Table.DecimalSeparator = '.'
		case "":
		default:
			return fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", calcDecimal)
		}
		if cmd.Flags().Changed("sheet-name") {
			opt.Table.SheetName = calcSheetName
		}
		if cmd.Flags().Changed("sheet-index") {
			if calcSheetIndex < 1 {
				return fmt.Errorf("--sheet-index must be >= 1")
			}
			opt.Table.SheetIndex = calcSheetIndex
		}

		res, err := calc.FromFile(path, opt)
		if err != nil {
			return err
		}
		logger.Debug("computed",
			zap.String("file", path),
			zap.Int("rows", res.Totals.Rows),
			zap.Stringer("gpa", res.GPA),
			zap.Stringer("ratio", res.Ratio),
		)

		var out string
		if calcJSON {
			b, err := utils.PrettyJSON(report.New(res))
			if err != nil {
				return err
			}
			out = string(b) + "\n"
		} else {
			out = report.Text(res)
		}

		if calcOutputPath != "" {
			if err := utils.SafeWriteFile(calcOutputPath, []byte(out)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote results to %s\n", calcOutputPath)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(calcCmd)
	calcCmd.Flags().StringVarP(&calcOutputPath, "output", "o", "", "optional path to write results")
	calcCmd.Flags().BoolVar(&calcJSON, "json", false, "print the JSON payload served by /api/calc")
	calcCmd.Flags().StringVar(&calcDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	calcCmd.Flags().StringVar(&calcDecimal, "decimal", "", "decimal separator for credits: '.'|'comma'")
	calcCmd.Flags().StringVar(&calcSheetName, "sheet-name", "", "XLSX: sheet name to read")
	calcCmd.Flags().IntVar(&calcSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}
