package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/gpacalc/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set gpacalc configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "grade_columns: %s\n", strings.Join(c.GradeColumns, ","))
		fmt.Fprintf(out, "credit_columns: %s\n", strings.Join(c.CreditColumns, ","))
		fmt.Fprintf(out, "category_columns: %s\n", strings.Join(c.CategoryColumns, ","))
		if c.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %s\n", c.Delimiter)
		}
		if c.DecimalSeparator != "" {
			fmt.Fprintf(out, "decimal_separator: %s\n", c.DecimalSeparator)
		}
		if c.SheetName != "" {
			fmt.Fprintf(out, "sheet_name: %s\n", c.SheetName)
		}
		fmt.Fprintf(out, "sheet_index: %d\n", c.SheetIndex)
		fmt.Fprintf(out, "listen_addr: %s\n", c.ListenAddr)
		fmt.Fprintf(out, "max_upload_mb: %d\n", c.MaxUploadMB)
		if c.UploadDir != "" {
			fmt.Fprintf(out, "upload_dir: %s\n", c.UploadDir)
		}
		fmt.Fprintf(out, "cors_allowed_origins: %s\n", strings.Join(c.CORSAllowedOrigins, ","))
		if c.RateLimitRPS > 0 {
			fmt.Fprintf(out, "rate_limit_rps: %.3f\n", c.RateLimitRPS)
			fmt.Fprintf(out, "rate_limit_burst: %d\n", c.RateLimitBurst)
		}
		fmt.Fprintf(out, "read_timeout_sec: %d\n", c.ReadTimeoutSec)
		fmt.Fprintf(out, "write_timeout_sec: %d\n", c.WriteTimeoutSec)
		fmt.Fprintf(out, "shutdown_timeout_sec: %d\n", c.ShutdownTimeoutSec)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		next := *cfg
		if err := setKey(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		*cfg = next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "grade_columns":
		c.GradeColumns = splitList(val)
	case "credit_columns":
		c.CreditColumns = splitList(val)
	case "category_columns":
		c.CategoryColumns = splitList(val)
	case "delimiter":
		c.Delimiter = val
	case "decimal_separator":
		c.DecimalSeparator = val
	case "sheet_name":
		c.SheetName = val
	case "sheet_index":
		return setInt(&c.SheetIndex, key, val)
	case "listen_addr":
		c.ListenAddr = val
	case "max_upload_mb":
		return setInt(&c.MaxUploadMB, key, val)
	case "upload_dir":
		c.UploadDir = val
	case "cors_allowed_origins":
		c.CORSAllowedOrigins = splitList(val)
	case "rate_limit_rps":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %w", key, err)
		}
		c.RateLimitRPS = f
	case "rate_limit_burst":
		return setInt(&c.RateLimitBurst, key, val)
	case "read_timeout_sec":
		return setInt(&c.ReadTimeoutSec, key, val)
	case "write_timeout_sec":
		return setInt(&c.WriteTimeoutSec, key, val)
	case "shutdown_timeout_sec":
		return setInt(&c.ShutdownTimeoutSec, key, val)
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		c.LogFormat = strings.ToLower(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, val string) error {
	i, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid int for %s: %w", key, err)
	}
	*dst = i
	return nil
}

// splitList parses a comma-separated value, dropping blank entries.
func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
