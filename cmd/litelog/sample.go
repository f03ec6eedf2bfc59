package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danmuck/litelog/internal/sample"
	"github.com/danmuck/litelog/internal/source"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
)

func newSampleCommand(g *globals) *cobra.Command {
	var (
		in       string
		out      string
		compress bool
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a binary log stream from JSON lines",
		Example: `litelog sample --in frames.jsonl --out device.bin
{"ts":1700000000,"level":"INFO","type":"MSG","fields":{"msg":"boot"}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := g.definitions()
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if in != source.Stdin {
				f, err := os.Open(in)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			recs, err := sample.ReadJSONLines(r)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			var w io.Writer = f
			var zw *zstd.Encoder
			if compress {
				if zw, err = zstd.NewWriter(f); err != nil {
					f.Close()
					return err
				}
				w = zw
			}

			sw := sample.NewWriter(w, defs)
			for _, rec := range recs {
				if err := sw.Write(rec); err != nil {
					f.Close()
					return err
				}
			}
			if zw != nil {
				if err := zw.Close(); err != nil {
					f.Close()
					return err
				}
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", sw.Count(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", source.Stdin, "JSON lines input, - for stdin")
	cmd.Flags().StringVar(&out, "out", "", "binary output path")
	cmd.Flags().BoolVar(&compress, "zstd", false, "zstd compress the output")
	if err := cmd.MarkFlagRequired("out"); err != nil {
		panic(err)
	}
	return cmd
}
