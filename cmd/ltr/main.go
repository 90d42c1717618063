package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/landtruth/registry/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	registryURL string
	cfgFile     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ltr",
	Short: "Land Truth Registry CLI",
	Long: `ltr is the command-line interface for the Land Truth Registry.

It lets you register land assets, append versions to their tamper-evident
history, log evidence against specific versions, and inspect timelines.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.ltr")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if registryURL == "" {
			registryURL = viper.GetString("registry_url")
		}
		if registryURL == "" {
			registryURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.ltr/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "registry URL (default http://localhost:8080)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(evidenceCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	return client.New(registryURL)
}

// payloadFlags collects the version payload fields shared by create and append.
type payloadFlags struct {
	status string
	owner  string
	name   string
	lat    float64
	lon    float64
	size   float64
	reason string
}

func (f *payloadFlags) register(cmd *cobra.Command, defaultStatus string) {
	cmd.Flags().StringVar(&f.status, "status", defaultStatus, "Asset status (active, transferred, disputed, voided)")
	cmd.Flags().StringVar(&f.owner, "owner", "", "Owner of record")
	cmd.Flags().StringVar(&f.name, "name", "", "Human-readable asset name")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "Location latitude")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "Location longitude")
	cmd.Flags().Float64Var(&f.size, "size", 0, "Size in hectares")
	cmd.Flags().StringVar(&f.reason, "reason", "", "Reason for this change")

	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("size")
}

func (f *payloadFlags) payload() client.Payload {
	return client.Payload{
		Status:       f.status,
		Owner:        f.owner,
		Name:         f.name,
		LocationLat:  f.lat,
		LocationLon:  f.lon,
		SizeHectares: f.size,
		ChangeReason: f.reason,
	}
}

// ── create ───────────────────────────────────────────────────────────────────

var createFlags payloadFlags

var createCmd = &cobra.Command{
	Use:   "create <asset-id>",
	Short: "Register a new asset with its genesis version",
	Long: `Create registers a new asset. The supplied payload becomes version 0
(the genesis version) of the asset's hash chain.

Example:

  ltr create mashonaland-plot-4 --owner "Tendai Moyo" --name "Mashonaland Plot 4" \
      --lat -17.8252 --lon 31.0335 --size 12.5 --reason "Genesis Creation"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		result, err := c.CreateAsset(context.Background(), args[0], createFlags.payload())
		if err != nil {
			if errors.Is(err, client.ErrDuplicateAsset) {
				return fmt.Errorf("asset %q already exists", args[0])
			}
			return fmt.Errorf("create asset: %w", err)
		}

		fmt.Printf("✓ Asset registered\n\n")
		fmt.Printf("  ID:       %s\n", result.Asset.ID)
		fmt.Printf("  Sequence: %d\n", result.Genesis.Sequence)
		fmt.Printf("  Hash:     %s\n", result.Genesis.Hash)
		return nil
	},
}

func init() {
	createFlags.register(createCmd, "active")
}

// ── append ───────────────────────────────────────────────────────────────────

var (
	appendFlags    payloadFlags
	appendExpected int
)

var appendCmd = &cobra.Command{
	Use:   "append <asset-id>",
	Short: "Append a new version to an asset's history",
	Long: `Append writes the next version of an asset on top of the sequence you
last observed. If another writer appended first, the registry rejects the
request with a conflict; re-read the asset and retry.

Example:

  ltr append mashonaland-plot-4 --expected 0 --status transferred \
      --owner "Rudo Moyo" --name "Mashonaland Plot 4" \
      --lat -17.8252 --lon 31.0335 --size 12.5 --reason "Inheritance transfer"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		v, err := c.AppendVersion(context.Background(), args[0], appendExpected, appendFlags.payload())
		if err != nil {
			if errors.Is(err, client.ErrConflict) {
				return fmt.Errorf("sequence conflict: another writer got there first (or the asset is voided); run 'ltr get %s' and retry with the current sequence", args[0])
			}
			return fmt.Errorf("append version: %w", err)
		}

		fmt.Printf("✓ Version appended\n\n")
		fmt.Printf("  Asset:    %s\n", v.AssetID)
		fmt.Printf("  Sequence: %d\n", v.Sequence)
		fmt.Printf("  Status:   %s\n", v.Payload.Status)
		fmt.Printf("  Hash:     %s\n", v.Hash)
		return nil
	},
}

func init() {
	appendFlags.register(appendCmd, "active")
	appendCmd.Flags().IntVar(&appendExpected, "expected", 0, "Sequence you expect to be current (optimistic concurrency)")
	_ = appendCmd.MarkFlagRequired("expected")
}

// ── get ──────────────────────────────────────────────────────────────────────

var getHistory bool

var getCmd = &cobra.Command{
	Use:   "get <asset-id>",
	Short: "Show an asset and optionally its full version history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		asset, err := c.GetAsset(ctx, args[0])
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("asset %q not found", args[0])
			}
			return fmt.Errorf("get asset: %w", err)
		}

		fmt.Printf("ID:               %s\n", asset.ID)
		fmt.Printf("Current Sequence: %d\n", asset.CurrentSequence)
		fmt.Printf("Created:          %s\n", asset.CreatedAt.Format(time.RFC3339))

		if !getHistory {
			return nil
		}

		versions, err := c.ListVersions(ctx, asset.ID)
		if err != nil {
			return fmt.Errorf("list versions: %w", err)
		}

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tSTATUS\tOWNER\tSIZE(ha)\tREASON\tCREATED")
		for _, v := range versions {
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%s\n",
				v.Sequence, v.Payload.Status, v.Payload.Owner,
				v.Payload.SizeHectares, v.Payload.ChangeReason,
				v.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	getCmd.Flags().BoolVar(&getHistory, "history", false, "Also print the full version history")
}

// ── list ─────────────────────────────────────────────────────────────────────

var (
	listLimit  int
	listOffset int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		assets, err := c.ListAssets(context.Background(), listLimit, listOffset)
		if err != nil {
			return fmt.Errorf("list assets: %w", err)
		}
		if len(assets) == 0 {
			fmt.Println("No assets registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSEQUENCE\tCREATED")
		for _, a := range assets {
			fmt.Fprintf(w, "%s\t%d\t%s\n", a.ID, a.CurrentSequence, a.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum assets to return")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Pagination offset")
}

// ── evidence ─────────────────────────────────────────────────────────────────

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Log and list evidence records",
}

var (
	evLogSequence  int
	evLogKind      string
	evLogRef       string
	evLogDesc      string
	evLogLat       float64
	evLogLon       float64
	evLogSubmitter string
)

var evidenceLogCmd = &cobra.Command{
	Use:   "log <asset-id>",
	Short: "Bind a new evidence record to an asset version",
	Long: `Log attaches an immutable evidence record to an existing version of an
asset. Evidence carries a reference to the artifact (a hash, a survey id, an
attestation URL), never the artifact itself.

Example:

  ltr evidence log mashonaland-plot-4 --sequence 0 --kind survey-data \
      --ref survey://zsg/2024/0141 --description "Official land survey" \
      --gps-lat -17.8252 --gps-lon 31.0335 --submitter surveyor-general`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		seq := evLogSequence
		req := client.LogEvidenceRequest{
			AssetID:         args[0],
			VersionSequence: &seq,
			Kind:            evLogKind,
			PayloadRef:      evLogRef,
			Description:     evLogDesc,
			Submitter:       evLogSubmitter,
		}
		if cmd.Flags().Changed("gps-lat") || cmd.Flags().Changed("gps-lon") {
			lat, lon := evLogLat, evLogLon
			req.GPSLat = &lat
			req.GPSLon = &lon
		}

		ev, err := c.LogEvidence(context.Background(), req)
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("asset %q or version %d not found", args[0], seq)
			}
			return fmt.Errorf("log evidence: %w", err)
		}

		fmt.Printf("✓ Evidence logged\n\n")
		fmt.Printf("  ID:       %s\n", ev.ID)
		fmt.Printf("  Asset:    %s (version %d)\n", ev.AssetID, ev.VersionSequence)
		fmt.Printf("  Kind:     %s\n", ev.Kind)
		fmt.Printf("  Ref:      %s\n", ev.PayloadRef)
		return nil
	},
}

var evListSequence int

var evidenceListCmd = &cobra.Command{
	Use:   "list <asset-id>",
	Short: "List evidence for an asset, optionally for one version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		var seq *int
		if cmd.Flags().Changed("sequence") {
			s := evListSequence
			seq = &s
		}

		records, err := c.ListEvidence(context.Background(), args[0], seq)
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("asset %q not found", args[0])
			}
			return fmt.Errorf("list evidence: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No evidence recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tKIND\tREF\tSUBMITTER\tSUBMITTED")
		for _, ev := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				ev.VersionSequence, ev.Kind, ev.PayloadRef, ev.Submitter,
				ev.SubmittedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	evidenceLogCmd.Flags().IntVar(&evLogSequence, "sequence", 0, "Version sequence the evidence is bound to")
	evidenceLogCmd.Flags().StringVar(&evLogKind, "kind", "", "Evidence kind (document-hash, survey-data, attestation, other)")
	evidenceLogCmd.Flags().StringVar(&evLogRef, "ref", "", "Reference to the evidence artifact")
	evidenceLogCmd.Flags().StringVar(&evLogDesc, "description", "", "Evidence description")
	evidenceLogCmd.Flags().Float64Var(&evLogLat, "gps-lat", 0, "GPS latitude of capture")
	evidenceLogCmd.Flags().Float64Var(&evLogLon, "gps-lon", 0, "GPS longitude of capture")
	evidenceLogCmd.Flags().StringVar(&evLogSubmitter, "submitter", "", "Identifier of the submitting party")
	_ = evidenceLogCmd.MarkFlagRequired("sequence")
	_ = evidenceLogCmd.MarkFlagRequired("kind")
	_ = evidenceLogCmd.MarkFlagRequired("ref")
	_ = evidenceLogCmd.MarkFlagRequired("submitter")

	evidenceListCmd.Flags().IntVar(&evListSequence, "sequence", 0, "Only evidence for this version sequence")

	evidenceCmd.AddCommand(evidenceLogCmd)
	evidenceCmd.AddCommand(evidenceListCmd)
}

// ── timeline ─────────────────────────────────────────────────────────────────

var timelineFormat string

var timelineCmd = &cobra.Command{
	Use:   "timeline <asset-id>",
	Short: "Show the merged chronological history of versions and evidence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		events, err := c.GetTimeline(context.Background(), args[0])
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("asset %q not found", args[0])
			}
			return fmt.Errorf("get timeline: %w", err)
		}

		if timelineFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tTYPE\tDETAIL")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Type, describeEvent(e))
		}
		return w.Flush()
	},
}

func describeEvent(e client.TimelineEvent) string {
	switch e.Type {
	case "version":
		seq := ""
		if e.Sequence != nil {
			seq = strconv.Itoa(*e.Sequence)
		}
		if e.Payload != nil {
			return fmt.Sprintf("v%s %s owner=%s %q", seq, e.Payload.Status, e.Payload.Owner, e.Payload.ChangeReason)
		}
		return "v" + seq
	case "evidence":
		seq := ""
		if e.VersionSequence != nil {
			seq = strconv.Itoa(*e.VersionSequence)
		}
		return fmt.Sprintf("%s on v%s: %s", e.Kind, seq, e.Description)
	}
	return ""
}

func init() {
	timelineCmd.Flags().StringVar(&timelineFormat, "format", "text", "Output format: text or json")
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify <asset-id>",
	Short: "Verify an asset's hash chain end to end",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		result, err := c.VerifyAsset(context.Background(), args[0])
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("asset %q not found", args[0])
			}
			return fmt.Errorf("verify: %w", err)
		}

		if result.Valid {
			fmt.Printf("✓ Chain verified for %s\n", args[0])
			return nil
		}
		return fmt.Errorf("chain INVALID for %s: %s", args[0], result.Error)
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ltr CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ltr %s (Land Truth Registry)\n", version)
	},
}
