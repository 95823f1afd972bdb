package commands

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"workorder-invoicer/internal/credentials"
	"workorder-invoicer/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	credentialsKind     *string
	credentialsIngenico *bool
	credentialsReveal   *bool
)

func init() {
	credentialsReveal = credentialsListCmd.Flags().Bool("reveal", false, "Print the values without redacting them.")
	credentialsKind = credentialsImportCmd.Flags().String("kind", "HEADER", "Token slot of the captured request: HEADER, FIRST or PII.")
	credentialsIngenico = credentialsImportCmd.Flags().Bool("ingenico", false, "The captured request is an Ingenico closed job search.")

	credentialsCmd.AddCommand(credentialsListCmd)
	credentialsCmd.AddCommand(credentialsGetCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsImportCmd)
	rootCmd.AddCommand(credentialsCmd)
}

// readInput reads the file named by args[0] or stdin when it is absent or "-".
func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		buff, err := io.ReadAll(os.Stdin)
		return string(buff), err
	}
	buff, err := os.ReadFile(args[0])
	return string(buff), err
}

func printUpdates(updates map[string]string) {
	keys := make([]string, 0, len(updates))
	for key := range updates {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	t := newTable()
	t.AppendHeader(table.Row{"Key", "Value"})
	for _, key := range keys {
		t.AppendRow(table.Row{key, credentials.Redact(updates[key])})
	}
	t.Render()
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Inspects and updates the stored portal credentials.",
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists every stored key.",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), "invoicer-credentials")
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.Close()

		set, err := a.store.Load(cmd.Context())
		if err != nil {
			a.Close()
			serviceutil.Fatal("load credentials", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Key", "Value", "Known"})
		for _, key := range set.Keys() {
			value := set.Get(key)
			if !*credentialsReveal {
				value = credentials.Redact(value)
			}
			t.AppendRow(table.Row{key, value, credentials.IsKnown(key)})
		}
		t.Render()
	},
}

var credentialsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Prints a single stored value.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), "invoicer-credentials")
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.Close()

		set, err := a.store.Load(cmd.Context())
		if err != nil {
			a.Close()
			serviceutil.Fatal("load credentials", err)
		}
		err = set.Require(args[0])
		if err != nil {
			a.Close()
			serviceutil.Fatal("get", err)
		}
		fmt.Println(set.Get(args[0]))
	},
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set <key>=<value>...",
	Short: "Writes one or more keys.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		updates := map[string]string{}
		for _, arg := range args {
			key, value, ok := strings.Cut(arg, "=")
			if !ok || key == "" {
				serviceutil.Fatal("set", fmt.Errorf("expected <key>=<value>, got '%s'", arg))
			}
			updates[key] = value
		}

		a, err := newApp(cmd.Context(), "invoicer-credentials")
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.Close()

		out, err := a.service.UpdateCredentials(cmd.Context(), updates)
		if err != nil {
			a.Close()
			serviceutil.Fatal("update credentials", err)
		}
		fmt.Printf("updated: %s\n", strings.Join(out.Updated, ", "))
		for key, suggestion := range out.Unknown {
			if suggestion == "" {
				fmt.Printf("warning: '%s' is not read by any scraper\n", key)
				continue
			}
			fmt.Printf("warning: '%s' is not read by any scraper, did you mean '%s'?\n", key, suggestion)
		}
	},
}

var credentialsImportCmd = &cobra.Command{
	Use:   "import-curl [file|-]",
	Short: "Stores the credentials carried by a captured request (curl or DevTools text).",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text, err := readInput(args)
		if err != nil {
			serviceutil.Fatal("read captured request", err)
		}

		a, err := newApp(cmd.Context(), "invoicer-credentials")
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.Close()

		if *credentialsIngenico {
			updates, err := a.service.ImportIngenicoCurl(cmd.Context(), text)
			if err != nil {
				a.Close()
				serviceutil.Fatal("import ingenico request", err)
			}
			printUpdates(updates)
			return
		}

		updates, err := a.service.ParseRequest(text, *credentialsKind)
		if err != nil {
			a.Close()
			serviceutil.Fatal("parse request", err)
		}
		_, err = a.service.UpdateCredentials(cmd.Context(), updates)
		if err != nil {
			a.Close()
			serviceutil.Fatal("update credentials", err)
		}
		printUpdates(updates)
	},
}
