package cli

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/adapter"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/frame"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/registry"
)

// eventRow 回放输出行
type eventRow struct {
	Seq      int    `json:"seq" yaml:"seq"`
	Chunk    int    `json:"chunk" yaml:"chunk"`
	Kind     string `json:"kind" yaml:"kind"`
	Format   string `json:"format" yaml:"format"`
	Width    int    `json:"width" yaml:"width"`
	Height   int    `json:"height" yaml:"height"`
	Size     int    `json:"size" yaml:"size"`
	Declared int    `json:"declared" yaml:"declared"`
	Error    string `json:"error" yaml:"error"`
}

type decodeOptions struct {
	protocol string
	hexInput bool
	oversize string
}

func newDecodeCmd(opts *options) *cobra.Command {
	d := &decodeOptions{}
	cmd := &cobra.Command{
		Use:   "decode FILE...",
		Short: "Replay captured chunks through a decoder and print the emitted events",
		Long: `Replay captured transport chunks through a fresh decoder instance.

Binary mode (default): every FILE is one chunk, in argument order.
Hex mode (--hex): every non-empty line is one chunk; whitespace is ignored
and lines starting with '#' are comments.

Without --protocol the first chunk is sniffed, falling back to the default protocol.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunks, err := loadChunks(args, d.hexInput)
			if err != nil {
				return err
			}
			if len(chunks) == 0 {
				return fmt.Errorf("no chunks found in %s", strings.Join(args, ", "))
			}
			proto := d.protocol
			if proto == "" {
				var ok bool
				if proto, ok = opts.registry.Detect(chunks[0]); !ok {
					proto = registry.DefaultProtocol
				}
			}
			rows, err := replay(opts.registry, proto, adapter.Options{
				Logger:   opts.logger,
				Oversize: adapter.ParseOversizePolicy(d.oversize),
			}, chunks)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "protocol=%s chunks=%d events=%d\n", proto, len(chunks), len(rows))
			return opts.formatter.Write(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVarP(&d.protocol, "protocol", "p", "", "protocol id (see `lcdctl protocols`)")
	cmd.Flags().BoolVar(&d.hexInput, "hex", false, "input files contain one hex-encoded chunk per line")
	cmd.Flags().StringVar(&d.oversize, "oversize", "truncate", "oversize policy: truncate or reject")
	return cmd
}

// replay 逐块投递，每块之后取出该块触发的全部事件
func replay(reg *registry.Registry, proto string, opts adapter.Options, chunks [][]byte) ([]eventRow, error) {
	dec, _, err := reg.CreateWithOptions(proto, opts)
	if err != nil {
		return nil, err
	}
	defer dec.Dispose()

	ch := make(chan coremodel.DecodedFrame, 64)
	if err := dec.Subscribe("lcdctl", ch); err != nil {
		return nil, err
	}

	var rows []eventRow
	for i, c := range chunks {
		if err := dec.ProcessBytes(c); err != nil {
			return rows, fmt.Errorf("chunk %d: %w", i+1, err)
		}
		for drained := false; !drained; {
			select {
			case ev := <-ch:
				rows = append(rows, toRow(len(rows)+1, i+1, ev))
			default:
				drained = true
			}
		}
	}
	return rows, nil
}

func toRow(seq, chunk int, ev coremodel.DecodedFrame) eventRow {
	row := eventRow{Seq: seq, Chunk: chunk}
	row.Declared, _ = ev.Metadata["declared_length"].(int)
	if ev.IsError() {
		row.Kind = frame.ErrorKind(ev.Err)
		row.Error = ev.Err.Error()
		return row
	}
	row.Kind = "frame"
	row.Format = ev.Format.String()
	row.Width = ev.Width
	row.Height = ev.Height
	row.Size = len(ev.Data)
	return row
}

func loadChunks(paths []string, hexInput bool) ([][]byte, error) {
	var chunks [][]byte
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if !hexInput {
			if len(b) > 0 {
				chunks = append(chunks, b)
			}
			continue
		}
		cs, err := parseHexLines(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		chunks = append(chunks, cs...)
	}
	return chunks, nil
}

func parseHexLines(b []byte) ([][]byte, error) {
	var out [][]byte
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		text = strings.Join(strings.Fields(text), "")
		chunk, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, chunk)
	}
	return out, sc.Err()
}
