package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-cpman"
	"github.com/dep2p/go-cpman/pkg/types"
)

// ============================================================================
//                              query
// ============================================================================

func queryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a cluster member",
		Long: `Send a load or resource query to a running node over the cluster transport.

The command starts a short-lived client that does not listen and does not
run any probe.`,
	}

	cmd.PersistentFlags().String("node", "", "Target node id (required)")
	cmd.PersistentFlags().String("addr", "", "Target cluster address host:port (required)")
	cmd.PersistentFlags().Duration("timeout", 10*time.Second, "Request timeout")
	cmd.PersistentFlags().StringP("output", "o", "table", "Output format: table or json")
	_ = cmd.MarkPersistentFlagRequired("node")
	_ = cmd.MarkPersistentFlagRequired("addr")

	cmd.AddCommand(queryLoadCommand())
	cmd.AddCommand(queryResourcesCommand())
	return cmd
}

func queryLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Show the load of one metric",
		Long: `Show latest value, average and last update time of one metric.

Examples:
  cpman query load --node n2 --addr 10.0.0.2:7946 --metric CPU_LOAD
  cpman query load --node n2 --addr 10.0.0.2:7946 --metric NW_INCOMING_BYTES --scope eth0 --window 10m`,
		Args: cobra.NoArgs,
		RunE: runQueryLoad,
	}
	cmd.Flags().String("metric", "", "Metric type, e.g. CPU_LOAD (required)")
	cmd.Flags().String("scope", "", "Disk, interface or device id; empty for CPU and memory")
	cmd.Flags().Duration("window", 0, "Also return samples of the recent window")
	_ = cmd.MarkFlagRequired("metric")
	return cmd
}

func queryResourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List resources that reported metrics",
		Long: `List disks, interfaces or devices of a category that have reported samples.

Example:
  cpman query resources --node n2 --addr 10.0.0.2:7946 --category NETWORK`,
		Args: cobra.NoArgs,
		RunE: runQueryResources,
	}
	cmd.Flags().String("category", "", "Category: CPU, MEMORY, DISK, NETWORK or CONTROL_MESSAGE (required)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

// loadOutput JSON 输出格式
type loadOutput struct {
	Node       string    `json:"node"`
	Metric     string    `json:"metric"`
	Scope      string    `json:"scope,omitempty"`
	Found      bool      `json:"found"`
	Latest     float64   `json:"latest"`
	Average    float64   `json:"average"`
	LastUpdate int64     `json:"last_update"`
	Recent     []float64 `json:"recent,omitempty"`
}

func runQueryLoad(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("metric")
	metric, err := types.ParseMetricType(strings.ToUpper(name))
	if err != nil {
		return err
	}
	scope, _ := cmd.Flags().GetString("scope")

	var window *time.Duration
	if w, _ := cmd.Flags().GetDuration("window"); w > 0 {
		window = &w
	}

	return withClient(cmd, func(ctx context.Context, node *cpman.Node, target cpman.NodeID) error {
		snap, err := node.Load(ctx, target, metric, scope, window)
		if err != nil {
			return fmt.Errorf("query load: %w", err)
		}

		out := loadOutput{Node: target.String(), Metric: metric.String(), Scope: scope, Found: snap != nil}
		if snap != nil {
			out.Latest = snap.Latest
			out.Average = snap.Average
			out.LastUpdate = snap.LastUpdate
			out.Recent = snap.Recent
		}

		if format, _ := cmd.Flags().GetString("output"); format == "json" {
			return printJSON(cmd.OutOrStdout(), out)
		}
		printLoadTable(cmd.OutOrStdout(), out)
		return nil
	})
}

func runQueryResources(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("category")
	category, err := types.ParseCategory(strings.ToUpper(name))
	if err != nil {
		return err
	}

	return withClient(cmd, func(ctx context.Context, node *cpman.Node, target cpman.NodeID) error {
		names, err := node.Resources(ctx, target, category)
		if err != nil {
			return fmt.Errorf("query resources: %w", err)
		}

		if format, _ := cmd.Flags().GetString("output"); format == "json" {
			return printJSON(cmd.OutOrStdout(), names)
		}
		w := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(w, "(none)")
			return nil
		}
		for _, n := range names {
			fmt.Fprintln(w, n)
		}
		return nil
	})
}

// withClient 启动一个只发请求的临时节点
func withClient(cmd *cobra.Command, fn func(ctx context.Context, node *cpman.Node, target cpman.NodeID) error) error {
	target, _ := cmd.Flags().GetString("node")
	addr, _ := cmd.Flags().GetString("addr")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	node, err := cpman.Start(ctx,
		cpman.WithPreset(cpman.PresetTest),
		cpman.WithNodeID(fmt.Sprintf("cpman-cli-%d", os.Getpid())),
		cpman.WithPeer(target, addr),
		cpman.WithRequestTimeout(timeout),
	)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()

	return fn(ctx, node, cpman.NodeID(target))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printLoadTable(w io.Writer, out loadOutput) {
	if !out.Found {
		fmt.Fprintf(w, "%s %s: no data on %s\n", out.Metric, out.Scope, out.Node)
		return
	}
	fmt.Fprintf(w, "NODE     %s\n", out.Node)
	fmt.Fprintf(w, "METRIC   %s\n", out.Metric)
	if out.Scope != "" {
		fmt.Fprintf(w, "SCOPE    %s\n", out.Scope)
	}
	fmt.Fprintf(w, "LATEST   %.2f\n", out.Latest)
	fmt.Fprintf(w, "AVERAGE  %.2f\n", out.Average)
	fmt.Fprintf(w, "UPDATED  %s\n", time.Unix(out.LastUpdate, 0).Format(time.RFC3339))
	if len(out.Recent) > 0 {
		fmt.Fprintf(w, "RECENT   %d samples\n", len(out.Recent))
	}
}
