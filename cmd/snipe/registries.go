package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hakim/snipe/internal/registry"
	"github.com/hakim/snipe/internal/validate"
)

var registriesCmd = &cobra.Command{
	Use:   "registries [tld...]",
	Short: "Show the RDAP and WHOIS endpoint of each TLD",
	Long: `Print the registry directory: the built-in table with the config's
registries section applied on top.

TLDs given as arguments are resolved, using IANA discovery when enabled, so
this also shows where an unlisted TLD would be probed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		entries := a.directory.Entries()
		if len(args) > 0 {
			entries = entries[:0]
			for _, arg := range args {
				tld, err := validate.NormalizeTLD(arg)
				if err != nil {
					return err
				}
				ep, err := a.directory.Resolve(cmd.Context(), tld)
				if err != nil {
					fmt.Printf("[!] %s: %v\n", tld, err)
					continue
				}
				entries = append(entries, ep)
			}
		}

		printEndpoints(entries)
		return nil
	},
}

func printEndpoints(entries []registry.Endpoint) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TLD\tRDAP\tWHOIS\tExtra not-found phrases")
	fmt.Fprintln(w, "---\t----\t-----\t----------------------")
	for _, e := range entries {
		rdap, whois := "-", "-"
		if e.HasRDAP() {
			rdap = e.RDAPBaseURL
		}
		if e.HasWHOIS() {
			whois = e.WhoisAddr()
		}
		extra := "-"
		if len(e.NotFound) > 0 {
			extra = strings.Join(e.NotFound, "; ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.TLD, rdap, whois, extra)
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(registriesCmd)
}
