// Command streamdump is a small demo driver for the streaming search core:
// it reads (or generates) a demo-encoded stream file, runs it through the
// deserializer with a query and projection given as flags, and prints
// surviving log events. It plays the same role cmd/gastrolog/main.go plays
// for the teacher's own engine: a runnable entry point around an otherwise
// library-only core.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"logsift/internal/format"
	"logsift/internal/logevent"
	"logsift/internal/querylang"
	"logsift/internal/schema"
	"logsift/internal/stream"
	"logsift/internal/utf8util"
	"logsift/internal/value"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	rootCmd := &cobra.Command{
		Use:   "streamdump",
		Short: "Decode and query a demo-encoded log stream",
	}

	rootCmd.AddCommand(newGenerateCmd(), newRunCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newGenerateCmd writes a small demo stream to a file so newRunCmd has
// something to read without a real producer.
func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <output-file>",
		Short: "Write a demo-encoded stream to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateDemoStream(args[0])
		},
	}
	return cmd
}

func generateDemoStream(path string) error {
	enc := stream.NewEncoder()
	if err := enc.WritePreamble("v0.1", map[string]any{"generator": "streamdump"}); err != nil {
		return fmt.Errorf("write preamble: %w", err)
	}

	// user:request -> {status: Int, path: Str}
	requestID, _ := insertLocator(enc, format.NamespaceUser, schema.RootID, "request", schema.Obj)
	statusID, _ := insertLocator(enc, format.NamespaceUser, requestID, "status", schema.Int)
	pathID, _ := insertLocator(enc, format.NamespaceUser, requestID, "path", schema.Str)

	enc.WriteLogEvent(nil, logevent.Pairs{
		statusID: value.NewInt(200),
		pathID:   value.NewPlainString("/healthz"),
	})
	enc.WriteLogEvent(nil, logevent.Pairs{
		statusID: value.NewInt(500),
		pathID:   value.NewPlainString("/checkout"),
	})
	enc.WriteLogEvent(nil, logevent.Pairs{
		pathID: value.NewPlainString("/anonymous"),
	})
	enc.WriteEndOfStream()

	if err := os.WriteFile(path, enc.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("wrote demo stream to %s (%d bytes)\n", path, len(enc.Bytes()))
	return nil
}

// insertLocator is a tiny bookkeeping helper: streamdump's demo generator
// needs the assigned NodeIDs back to reference in later log events, which a
// real producer would already know from its own schema state.
func insertLocator(enc *stream.Encoder, ns format.Namespace, parent schema.NodeID, name string, typ schema.NodeType) (schema.NodeID, error) {
	enc.WriteSchemaInsertion(ns, schema.Locator{ParentID: parent, Name: name, Type: typ})
	nextID++
	return schema.NodeID(nextID), nil
}

// nextID tracks NodeID assignment the same way schema.Tree does (root is 0,
// every subsequent insertion increments by one), so the demo generator can
// know the ids it just wrote without decoding its own output.
var nextID uint32 = 0

func newRunCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <stream-file>",
		Short: "Decode a stream file and print log events surviving the query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			projections, _ := cmd.Flags().GetStringSlice("project")
			caseSensitive, _ := cmd.Flags().GetBool("case-sensitive")
			return runStream(logger, args[0], query, projections, caseSensitive)
		},
	}
	cmd.Flags().String("query", "", "query expression (e.g. `user:status >= 500`)")
	cmd.Flags().StringSlice("project", nil, "fully-qualified column paths to project (e.g. user:request.path)")
	cmd.Flags().Bool("case-sensitive", false, "case-sensitive string wildcard matching")
	return cmd
}

func runStream(logger *slog.Logger, path, queryStr string, projections []string, caseSensitive bool) error {
	sessionID := uuid.Must(uuid.NewV7()).String()
	logger.Info("opening stream", "session", sessionID, "file", path)
	defer logger.Info("closed stream", "session", sessionID)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var query querylang.Expr
	if queryStr != "" {
		query, err = querylang.Parse(queryStr)
		if err != nil {
			return fmt.Errorf("parse query: %w", err)
		}
	}

	h := &printingHandler{}
	r := stream.NewByteReader(f)
	d, err := stream.Create(r, h, query, projections,
		stream.WithLogger(logger),
		stream.WithCaseSensitive(caseSensitive))
	if err != nil {
		return fmt.Errorf("create deserializer: %w", err)
	}

	for !d.IsComplete() {
		if _, err := d.DeserializeNextUnit(r); err != nil {
			return fmt.Errorf("deserialize unit: %w", err)
		}
	}

	fmt.Printf("%d log events accepted\n", h.accepted)
	return nil
}

// printingHandler prints every accepted log event and projection
// resolution to stdout; schema mutations and UTC offset changes are
// acknowledged silently, matching the demo's read-only purpose.
type printingHandler struct {
	accepted int
}

func (h *printingHandler) HandleLogEvent(e stream.LogEvent) error {
	h.accepted++
	fmt.Printf("event %d: auto=%s user=%s\n", h.accepted, formatPairs(e.Auto), formatPairs(e.User))
	return nil
}

func (h *printingHandler) HandleSchemaTreeNodeInsertion(ns format.Namespace, payload stream.SchemaInsertionPayload, tree stream.TreeSnapshot) error {
	return nil
}

func (h *printingHandler) HandleUTCOffsetChange(c stream.UTCOffsetChange) error {
	return nil
}

func (h *printingHandler) HandleEndOfStream() error {
	return nil
}

func (h *printingHandler) HandleProjectionResolution(ns format.Namespace, id schema.NodeID, originalPath string) error {
	fmt.Printf("projection resolved: %s -> node %d (%s)\n", originalPath, id, ns)
	return nil
}

func formatPairs(pairs logevent.Pairs) string {
	if len(pairs) == 0 {
		return "{}"
	}
	out := "{"
	first := true
	for id, v := range pairs {
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%d:%s", id, formatValue(v))
	}
	return out + "}"
}

func formatValue(v value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return "null"
	case value.KindBool:
		b, _ := v.AsBool()
		return fmt.Sprintf("%t", b)
	case value.KindInt:
		i, _ := v.AsInt()
		return fmt.Sprintf("%d", i)
	case value.KindFloat:
		fl, _ := v.AsFloat()
		return fmt.Sprintf("%g", fl)
	case value.KindPlainString:
		s, _ := v.AsPlainString()
		return fmt.Sprintf("%q", utf8util.Escape(s))
	case value.KindEncodedTextAst8, value.KindEncodedTextAst4:
		decoded, _ := v.Decode()
		return fmt.Sprintf("%q", utf8util.Escape(decoded))
	default:
		return "<unknown>"
	}
}
