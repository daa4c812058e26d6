package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modalsource/postal/config"
	"github.com/modalsource/postal/internal/domain"
)

// checkCmd runs the DNS checks against a single domain and prints the result
var checkCmd = &cobra.Command{
	Use:   "check [domain]",
	Short: "run DNS authentication checks against a domain and print the result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := check(cmd.Context(), args[0])
		cobra.CheckErr(err)
	},
}

// init registers the check command and its flags on the root command
func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("config", "./config/.config.yaml", "config file location")
	checkCmd.Flags().String("dkim-public-key", "", "PEM encoded DKIM public key to verify the published record against")
	checkCmd.Flags().String("dkim-identifier", "", "DKIM identifier suffix assigned to the domain")
	checkCmd.Flags().String("mta-sts-mode", "", "expected MTA-STS policy mode (testing or enforce)")
	checkCmd.Flags().Bool("tls-rpt", false, "also check the TLS-RPT record")
}

// checkOutput is the JSON document printed by the check command
type checkOutput struct {
	Domain string        `json:"domain"`
	Result domain.Result `json:"result"`
	DNSOk  bool          `json:"dns_ok"`
}

// check builds an ad-hoc domain from flags and runs the verifier against it
func check(ctx context.Context, name string) error {
	cfgPath := k.String("config")

	cfg, err := config.Load(&cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	parsed, err := domain.ParseName(name)
	if err != nil {
		return fmt.Errorf("parsing domain: %w", err)
	}

	d := &domain.Domain{
		Name:                 parsed,
		DKIMPublicKey:        k.String("dkim-public-key"),
		DKIMIdentifierString: k.String("dkim-identifier"),
	}

	if mode := k.String("mta-sts-mode"); mode != "" {
		d.MTASTSEnabled = true
		d.MTASTSMode = domain.MTASTSMode(mode)
		d.MTASTSMaxAge = domain.DefaultMTASTSMaxAge

		if !d.MTASTSMode.Valid() {
			return fmt.Errorf("invalid MTA-STS mode %q", mode)
		}
	}

	if k.Bool("tls-rpt") {
		d.TLSRPTEnabled = true
	}

	v := setupVerifier(cfg)
	res := v.Verify(ctx, d)

	out := checkOutput{
		Domain: d.Name,
		Result: res,
		DNSOk:  res.DNSOk(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
