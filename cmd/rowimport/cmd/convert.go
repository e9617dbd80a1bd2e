package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rowimport/internal/encode"
	"github.com/JonMunkholm/rowimport/internal/importer"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert a file and write typed records to stdout",
	Long: `Convert reads a delimited file ("-" for stdin), converts each data line
with the types declared in its header and writes one record per line.

Example:
  rowimport convert --offset 1 --format msgpack people.csv > people.mp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, size, closeIn, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer closeIn()

		format, err := encode.ParseFormat(cfg.Import.Format)
		if err != nil {
			return err
		}

		out := bufio.NewWriter(cmd.OutOrStdout())
		defer out.Flush()

		return convert(in, size, out, cfg.Import.ReaderOptions(), format)
	},
}

func init() {
	envFlag(convertCmd.Flags(), "shape", "ROW_SHAPE", "map", "Record shape: map or array")
	envFlag(convertCmd.Flags(), "format", "OUTPUT_FORMAT", "json", "Output format: json, msgpack, cbor or protobuf")
	rootCmd.AddCommand(convertCmd)
}

// convert streams every record of in to out.
func convert(in io.Reader, size int64, out io.Writer, opts importer.Options, format encode.Format) error {
	enc, err := encode.NewEncoder(out, format)
	if err != nil {
		return err
	}
	rd, err := convertTo(in, size, opts, enc)
	if err != nil {
		return err
	}
	slog.Info("convert complete",
		"rows", rd.Rows(),
		"skipped", len(rd.Failed()),
		"format", format,
	)
	return nil
}

// convertTo encodes every record of in with enc and returns the drained
// reader. Skipped lines are logged.
func convertTo(in io.Reader, size int64, opts importer.Options, enc encode.Encoder) (*importer.Reader, error) {
	rd, err := importer.NewReader(in, size, opts)
	if err != nil {
		return nil, err
	}

	for rd.Scan() {
		var rec encode.Record
		if opts.Shape == importer.ShapeMap {
			p, _ := rd.Pairs()
			rec = encode.NewRecord(rd.Line(), rd.Keys(), p)
		} else {
			vals, _ := rd.Values()
			rec = encode.NewArrayRecord(rd.Line(), rd.Keys(), vals)
		}
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("line %d: encode: %w", rd.Line(), err)
		}
	}

	for _, f := range rd.Failed() {
		slog.Warn("skipped line", "line", f.LineNumber, "reason", f.Reason)
	}
	return rd, rd.Err()
}

// openInput opens path, or stdin for "-", and reports its size when known.
func openInput(path string) (io.Reader, int64, func(), error) {
	if path == "-" {
		return os.Stdin, 0, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, nil, err
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return f, size, func() { f.Close() }, nil
}
