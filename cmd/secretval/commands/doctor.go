package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/secretval/internal/config"
	sverrors "github.com/systmms/secretval/internal/errors"
	"github.com/systmms/secretval/pkg/secret"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration and redaction setup",
		Long: `Verify that secretval is configured correctly.

This command checks:
- Configuration file presence and validity
- Security level and settings that weaken redaction
- Hash salt resolution when digest redaction is enabled
- That every kind renders on every occasion without falling back`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runChecks(cfg)
			out := cmd.OutOrStdout()
			displayCheckResults(out, results, verbose)

			healthy := 0
			for _, r := range results {
				if r.Status != statusError {
					healthy++
				}
			}
			_, _ = fmt.Fprintf(out, "\nSummary: %d/%d checks passed\n", healthy, len(results))
			if healthy < len(results) {
				return errors.New("some checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show suggestions for every check")
	return cmd
}

const (
	statusOK    = "ok"
	statusWarn  = "warning"
	statusError = "error"
)

// CheckResult is the outcome of one doctor check.
type CheckResult struct {
	Name        string
	Status      string
	Message     string
	Suggestions []string
}

func runChecks(cfg *config.Config) []CheckResult {
	var results []CheckResult

	path := cfg.Manager().Location()
	file := CheckResult{Name: "config file", Status: statusOK, Message: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		file.Status = statusWarn
		file.Message = "not found, using built-in defaults"
		file.Suggestions = []string{"Run 'secretval config reset' to write the defaults to " + path}
	}
	results = append(results, file)

	m, err := cfg.Load()
	if err != nil {
		res := CheckResult{Name: "configuration", Status: statusError, Message: err.Error()}
		var ce sverrors.ConfigError
		if errors.As(err, &ce) && ce.Suggestion != "" {
			res.Suggestions = append(res.Suggestions, ce.Suggestion)
		}
		res.Suggestions = append(res.Suggestions, "Run 'secretval config validate' for details")
		return append(results, res)
	}
	current := m.Current()
	results = append(results, CheckResult{
		Name:    "configuration",
		Status:  statusOK,
		Message: "revision " + current.Revision,
	})

	results = append(results, checkLevel(current))
	if blind := current.BlindLengthTemplates(); len(blind) > 0 {
		results = append(results, CheckResult{
			Name:        "secret length",
			Status:      statusWarn,
			Message:     "hidden, but used by " + strings.Join(blind, ", "),
			Suggestions: []string{"These templates render secret_length as empty; drop it or set redaction.mask_secret = false"},
		})
	}
	if current.Redaction.Partial.Enabled && current.Redaction.Partial.UseHash {
		results = append(results, checkSalt(current))
	}
	results = append(results, checkRendering(secret.NewRenderer(m, nil)))
	return results
}

func checkLevel(cfg *config.PluginConfig) CheckResult {
	res := CheckResult{
		Name:    "security level",
		Status:  statusOK,
		Message: string(cfg.Security.Level),
	}
	var weak []string
	if cfg.ShowUnredacted() {
		weak = append(weak, "redaction.show_unredacted")
	}
	if cfg.SecretStringAllowed() && cfg.Redaction.AllowSecretString {
		weak = append(weak, "redaction.allow_secret_string")
	}
	if len(weak) > 0 {
		res.Status = statusWarn
		res.Message = fmt.Sprintf("%s, plaintext reachable via %s", cfg.Security.Level, strings.Join(weak, ", "))
		res.Suggestions = []string{"Disable these settings outside local debugging"}
	}
	return res
}

func checkSalt(cfg *config.PluginConfig) CheckResult {
	p := cfg.Redaction.Partial
	switch {
	case p.HashSaltRef != "" && p.HashSalt != "":
		return CheckResult{Name: "hash salt", Status: statusOK, Message: "resolved from " + p.HashSaltRef}
	case p.HashSalt != "":
		return CheckResult{
			Name:        "hash salt",
			Status:      statusWarn,
			Message:     "stored inline in the configuration file",
			Suggestions: []string{"Move the salt to the OS keyring and set redaction.partial.hash_salt_ref = \"keyring:<service>/<account>\""},
		}
	default:
		return CheckResult{
			Name:        "hash salt",
			Status:      statusWarn,
			Message:     "digests are unsalted",
			Suggestions: []string{"Set redaction.partial.hash_salt_ref"},
		}
	}
}

// checkRendering renders a sample of every kind on every occasion and
// fails if any render errors.
func checkRendering(r *secret.Renderer) CheckResult {
	samples := []any{
		"sample-secret-value", int64(42), true, 3.14, []byte("sample"),
		time.Unix(0, 0).UTC(), []any{"a", "b"}, map[string]any{"k": "v"},
	}

	var failures []string
	for _, s := range samples {
		v, err := r.Wrap(s)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		for _, occ := range config.Occasions {
			if _, err := r.Render(v, occ); err != nil {
				failures = append(failures, fmt.Sprintf("%s/%s: %v", v.TypeName(), occ, err))
			}
		}
		v.Destroy()
	}

	if len(failures) > 0 {
		return CheckResult{
			Name:        "templates",
			Status:      statusError,
			Message:     fmt.Sprintf("%d renders failed", len(failures)),
			Suggestions: failures,
		}
	}
	return CheckResult{
		Name:    "templates",
		Status:  statusOK,
		Message: fmt.Sprintf("%d kinds x %d occasions render", len(samples), len(config.Occasions)),
	}
}

// displayCheckResults shows check results in a formatted table
func displayCheckResults(out io.Writer, results []CheckResult, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t------\t-------\n")

	for _, result := range results {
		status := result.Status
		switch result.Status {
		case statusOK:
			status = "✓ " + status
		case statusError:
			status = "✗ " + status
		default:
			status = "! " + status
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", result.Name, status, result.Message)
	}
	_ = w.Flush()

	for _, result := range results {
		if len(result.Suggestions) == 0 || (!verbose && result.Status == statusOK) {
			continue
		}
		_, _ = fmt.Fprintf(out, "\n%s suggestions:\n", result.Name)
		for _, s := range result.Suggestions {
			_, _ = fmt.Fprintf(out, "  • %s\n", s)
		}
	}
}
