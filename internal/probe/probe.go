// Package probe identifies a validator implementation running on a host and
// builds the kind-specific commands the rest of the system needs to issue
// against it: set-identity, identity readback, version readback, and the
// on-disk tower file path.
package probe

import (
	"context"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sol-strategies/solana-validator-switch/internal/constants"
	"github.com/sol-strategies/solana-validator-switch/internal/switcherr"
)

// Kind is a validator implementation, modeled as a tagged variant: every new
// kind is one constant plus one entry in Specs, never a type switch.
type Kind string

const (
	// KindAgave is the agave-validator client.
	KindAgave Kind = constants.ValidatorKindAgave
	// KindFiredancer is the Firedancer client.
	KindFiredancer Kind = constants.ValidatorKindFiredancer
	// KindJito is the jito-solana client.
	KindJito Kind = constants.ValidatorKindJito
	// KindSolana is the legacy solana-validator client.
	KindSolana Kind = constants.ValidatorKindSolana
)

// CommandParams is the data a kind's command templates are executed against.
type CommandParams struct {
	Bin          string
	LedgerDir    string
	IdentityFile string
	Identity     string // pubkey
	RequireTower bool
}

// Spec describes everything the rest of the system needs to know about one
// validator kind: how to recognize its process, how to ask it for its
// identity and version, and how to drive it with a new identity.
type Spec struct {
	Kind                   Kind
	ProcessNames           []string
	IdentityCommand        string
	VersionCommand         string
	SetIdentityCmdTemplate string
	TowerFileNameTemplate  string
}

// Specs holds the per-kind command tables. Adding a kind means one constant
// and one entry here.
var Specs = map[Kind]Spec{
	KindAgave: {
		Kind:                   KindAgave,
		ProcessNames:           []string{"agave-validator"},
		IdentityCommand:        "{{ .Bin }} --ledger {{ .LedgerDir }} monitor 2>/dev/null | head -1 || {{ .Bin }} -l {{ .LedgerDir }} monitor",
		VersionCommand:         "{{ .Bin }} --version",
		SetIdentityCmdTemplate: "{{ .Bin }} --ledger {{ .LedgerDir }} set-identity {{ if .RequireTower }}--require-tower {{ end }}{{ .IdentityFile }}",
		TowerFileNameTemplate:  "tower-1_9-{{ .Identity }}.bin",
	},
	KindJito: {
		Kind:                   KindJito,
		ProcessNames:           []string{"jito-solana-validator", "agave-validator"},
		IdentityCommand:        "{{ .Bin }} --ledger {{ .LedgerDir }} monitor 2>/dev/null | head -1",
		VersionCommand:         "{{ .Bin }} --version",
		SetIdentityCmdTemplate: "{{ .Bin }} --ledger {{ .LedgerDir }} set-identity {{ if .RequireTower }}--require-tower {{ end }}{{ .IdentityFile }}",
		TowerFileNameTemplate:  "tower-1_9-{{ .Identity }}.bin",
	},
	KindSolana: {
		Kind:                   KindSolana,
		ProcessNames:           []string{"solana-validator"},
		IdentityCommand:        "{{ .Bin }} --ledger {{ .LedgerDir }} monitor 2>/dev/null | head -1",
		VersionCommand:         "{{ .Bin }} --version",
		SetIdentityCmdTemplate: "{{ .Bin }} --ledger {{ .LedgerDir }} set-identity {{ if .RequireTower }}--require-tower {{ end }}{{ .IdentityFile }}",
		TowerFileNameTemplate:  "tower-1_9-{{ .Identity }}.bin",
	},
	KindFiredancer: {
		Kind:                   KindFiredancer,
		ProcessNames:           []string{"fdctl", "firedancer"},
		IdentityCommand:        "{{ .Bin }} monitor --ledger {{ .LedgerDir }} --identity",
		VersionCommand:         "{{ .Bin }} version",
		SetIdentityCmdTemplate: "{{ .Bin }} set-identity --ledger {{ .LedgerDir }} {{ if .RequireTower }}--require-tower {{ end }}{{ .IdentityFile }}",
		TowerFileNameTemplate:  "tower-1_9-{{ .Identity }}.bin.funk",
	},
}

var semverRe = regexp.MustCompile(`\d+\.\d+\.\d+(?:-[0-9A-Za-z.]+)?`)

// SetIdentityCommand renders the kind's set-identity command for the given params.
func (s Spec) SetIdentityCommand(params CommandParams) (string, error) {
	return render("set_identity_cmd", s.SetIdentityCmdTemplate, params)
}

// TowerFileName renders the kind's tower file name for the given params.
func (s Spec) TowerFileName(params CommandParams) (string, error) {
	return render("tower_file_name", s.TowerFileNameTemplate, params)
}

func render(name, tpl string, params CommandParams) (string, error) {
	t, err := template.New(name).Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template %q: %w", name, tpl, err)
	}
	var buf strings.Builder
	if err := t.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to execute %s template %q: %w", name, tpl, err)
	}
	return buf.String(), nil
}

// Runner is the subset of the SSH session pool the probe needs to talk to a host.
type Runner interface {
	RunCommand(ctx context.Context, host, command string) (stdout string, stderr string, err error)
}

// Result is what a successful probe discovers about a host.
type Result struct {
	Kind     Kind
	Identity string
	Version  string
}

// Detect inspects the process table of host for each candidate kind in the
// order given, then reads the identity and version of the single kind found
// (an Agave/Jito overlap is settled by disambiguateJitoAgave). It fails
// with switcherr.KindProbeNotFound, KindProbeAmbiguous, or KindProbeParse.
func Detect(ctx context.Context, runner Runner, host string, bin string, ledgerDir string, candidates []Kind) (Result, error) {
	found := make([]Kind, 0, 1)
	for _, kind := range candidates {
		spec, ok := Specs[kind]
		if !ok {
			continue
		}
		psCmd := "pgrep -x '" + strings.Join(spec.ProcessNames, "|") + "'"
		stdout, _, err := runner.RunCommand(ctx, host, psCmd)
		if err == nil && strings.TrimSpace(stdout) != "" {
			found = append(found, kind)
		}
	}

	if len(found) == 0 {
		return Result{}, switcherr.Newf(switcherr.KindProbeNotFound, "no known validator process found on host %s", host)
	}

	kind := found[0]
	if len(found) > 1 {
		disambiguated, ok := disambiguateJitoAgave(ctx, runner, host, bin, ledgerDir, found)
		if !ok {
			return Result{}, switcherr.Newf(switcherr.KindProbeAmbiguous, "more than one validator kind found on host %s: %v", host, found)
		}
		kind = disambiguated
	}

	spec := Specs[kind]
	params := CommandParams{Bin: bin, LedgerDir: ledgerDir}

	identityCmd, err := render("identity_cmd", spec.IdentityCommand, params)
	if err != nil {
		return Result{}, err
	}
	identityOut, _, err := runner.RunCommand(ctx, host, identityCmd)
	if err != nil {
		return Result{}, switcherr.New(switcherr.KindProbeParse, err)
	}
	identity := firstToken(identityOut)
	if identity == "" {
		return Result{}, switcherr.Newf(switcherr.KindProbeParse, "could not parse identity from output of %q on host %s", identityCmd, host)
	}

	versionCmd, err := render("version_cmd", spec.VersionCommand, params)
	if err != nil {
		return Result{}, err
	}
	versionOut, _, err := runner.RunCommand(ctx, host, versionCmd)
	if err != nil {
		return Result{}, switcherr.New(switcherr.KindProbeParse, err)
	}
	version := semverRe.FindString(versionOut)
	if version == "" {
		return Result{}, switcherr.Newf(switcherr.KindProbeParse, "could not parse version from output of %q on host %s", versionCmd, host)
	}

	return Result{Kind: kind, Identity: identity, Version: version}, nil
}

// disambiguateJitoAgave resolves the one overlap the process-name table
// deliberately allows: a Jito-patched build still runs as the
// "agave-validator" binary, so a plain Agave host and a Jito host both
// match KindAgave's and KindJito's pgrep patterns. Every other combination
// of found kinds is reported as genuinely ambiguous. Disambiguation asks
// the binary's own --version output, which names "jito" for a Jito build
// and doesn't for plain Agave.
func disambiguateJitoAgave(ctx context.Context, runner Runner, host, bin, ledgerDir string, found []Kind) (Kind, bool) {
	if len(found) != 2 || !containsBoth(found, KindAgave, KindJito) {
		return "", false
	}

	versionCmd, err := render("version_cmd", Specs[KindAgave].VersionCommand, CommandParams{Bin: bin, LedgerDir: ledgerDir})
	if err != nil {
		return "", false
	}
	versionOut, _, err := runner.RunCommand(ctx, host, versionCmd)
	if err != nil {
		return "", false
	}

	if strings.Contains(strings.ToLower(versionOut), "jito") {
		return KindJito, true
	}
	return KindAgave, true
}

func containsBoth(kinds []Kind, a, b Kind) bool {
	var hasA, hasB bool
	for _, k := range kinds {
		if k == a {
			hasA = true
		}
		if k == b {
			hasB = true
		}
	}
	return hasA && hasB
}

// AllKinds returns every known validator kind in a deterministic order,
// suitable as the candidate list for Detect when a host's kind is not yet
// known.
func AllKinds() []Kind {
	return []Kind{KindAgave, KindJito, KindSolana, KindFiredancer}
}

// RequiresDistinctTowerFormat reports whether kind uses a tower file layout
// incompatible with the other three kinds (only Firedancer's funk-backed
// tower differs from the Agave-family tower-1_9-<identity>.bin layout).
func RequiresDistinctTowerFormat(kind Kind) bool {
	return kind == KindFiredancer
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Clusters is the set of known Solana clusters.
var Clusters = map[string]rpc.Cluster{
	rpc.MainNetBeta.Name: rpc.MainNetBeta,
	rpc.TestNet.Name:     rpc.TestNet,
	rpc.DevNet.Name:      rpc.DevNet,
	rpc.LocalNet.Name:    rpc.LocalNet,
}

// ValidateCluster returns an error if name is not a known Solana cluster.
func ValidateCluster(name string) error {
	if _, ok := Clusters[name]; !ok {
		names := make([]string, 0, len(Clusters))
		for n := range Clusters {
			names = append(names, n)
		}
		return switcherr.Newf(switcherr.KindConfigInvalid, "invalid cluster %q, must be one of %v", name, names)
	}
	return nil
}
