package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"voxelcraft.ai/schematic/internal/persistence/oplog"
	"voxelcraft.ai/schematic/internal/schematic"
	"voxelcraft.ai/schematic/internal/world"
	"voxelcraft.ai/schematic/internal/world/memworld"
)

var showMaterials bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file|name>...",
	Short: "print schematic headers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()
		return runInspect(cmd.OutOrStdout(), a, args)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file|name>...",
	Short: "decode, paste into a scratch world and compare cell by cell",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()
		return runVerify(cmd.OutOrStdout(), a, args)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list schematics recorded in the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.close()
		return runList(cmd, a)
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo [name]",
	Short: "build a sample structure, save it and paste it back",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.close()
		name := "demo"
		if len(args) == 1 {
			name = args[0]
		}
		return runDemo(cmd.OutOrStdout(), a, name)
	},
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "print the operation journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()
		return runJournal(cmd.OutOrStdout(), a.cfg.JournalDir)
	},
}

func init() {
	inspectCmd.Flags().BoolVarP(&showMaterials, "materials", "m", false, "decode blocks and count materials")
}

func runInspect(out io.Writer, a *app, args []string) error {
	tbl := tablewriter.NewWriter(out)
	tbl.SetHeader([]string{"File", "Size", "Dims", "Data", "Palette", "BE", "Ent", "Name", "Author", "Created"})
	var failed int
	for _, arg := range args {
		path := a.mgr.Path(arg)
		res := a.mgr.Inspect(path)
		if !res.OK {
			fmt.Fprintln(os.Stderr, res.Message)
			failed++
			continue
		}
		h := res.Header
		tbl.Append([]string{
			path,
			fileSize(path),
			fmt.Sprintf("%dx%dx%d", h.Width, h.Height, h.Length),
			strconv.Itoa(int(h.DataVersion)),
			strconv.Itoa(h.PaletteSize),
			strconv.Itoa(h.BlockEntities),
			strconv.Itoa(h.Entities),
			h.Metadata.Name,
			h.Metadata.Author,
			when(h.Metadata.Date),
		})
	}
	tbl.Render()

	if showMaterials {
		for _, arg := range args {
			loaded := a.mgr.Load(a.mgr.Path(arg))
			if !loaded.OK {
				continue
			}
			mt := tablewriter.NewWriter(out)
			mt.SetHeader([]string{"State", "Count"})
			for _, m := range loaded.Document.Materials(a.reg) {
				mt.Append([]string{m.State, humanize.Comma(int64(m.Count))})
			}
			fmt.Fprintf(out, "\n%s\n", loaded.Path)
			mt.Render()
		}
	}
	if failed > 0 {
		return errors.Newf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func runVerify(out io.Writer, a *app, args []string) error {
	tbl := tablewriter.NewWriter(out)
	tbl.SetHeader([]string{"File", "Cells", "Placed", "Checked", "Mismatched", "Unresolved", "Records", "Digest", "Result"})
	var failed int
	for _, arg := range args {
		path := a.mgr.Path(arg)
		loaded := a.mgr.Load(path)
		if !loaded.OK {
			fmt.Fprintln(os.Stderr, loaded.Message)
			failed++
			continue
		}
		doc := loaded.Document
		scratch := memworld.New(memworld.Config{MinY: 0, MaxY: doc.Size().Y}, a.reg, a.cats.Entities)
		opts := a.mgr.PasteOptions()
		opts.IncludeEntities = true
		rep := a.mgr.PasteDocument(scratch, doc, world.Vec3i{}, opts, path)
		if !rep.OK {
			fmt.Fprintln(os.Stderr, rep.Message)
			failed++
			continue
		}
		v := schematic.Verify(scratch, doc, world.Vec3i{}, a.reg)
		result := "ok"
		if !v.OK() || len(rep.Result.Records) > 0 {
			result = "degraded"
			failed++
		}
		tbl.Append([]string{
			path,
			humanize.Comma(int64(doc.Volume())),
			humanize.Comma(int64(rep.Result.BlocksPlaced)),
			humanize.Comma(int64(v.Checked)),
			strconv.Itoa(v.Mismatched),
			strconv.Itoa(v.Unresolved),
			strconv.Itoa(len(rep.Result.Records)),
			shortDigest(scratch.Digest()),
			result,
		})
		for _, rec := range rep.Result.Records {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, rec)
		}
	}
	tbl.Render()
	if failed > 0 {
		return errors.Newf("%d of %d files failed verification", failed, len(args))
	}
	return nil
}

func runList(cmd *cobra.Command, a *app) error {
	res := a.mgr.List(cmd.Context())
	if !res.OK {
		return res.Err
	}
	out := cmd.OutOrStdout()
	tbl := tablewriter.NewWriter(out)
	tbl.SetHeader([]string{"Path", "Name", "Author", "Dims", "Cells", "Size", "Created"})
	for _, r := range res.Records {
		tbl.Append([]string{
			r.Path,
			r.Name,
			r.Author,
			fmt.Sprintf("%dx%dx%d", r.Width, r.Height, r.Length),
			humanize.Comma(int64(r.Volume())),
			fileSize(r.Path),
			when(r.CreatedAt),
		})
	}
	tbl.Render()
	fmt.Fprintln(out, res.Message)
	return nil
}

func runJournal(out io.Writer, dir string) error {
	if dir == "" {
		return errors.New("no journal_dir configured")
	}
	files, err := oplog.Files(dir, journalPrefix)
	if err != nil {
		return err
	}
	tbl := tablewriter.NewWriter(out)
	tbl.SetHeader([]string{"Time", "Op", "OK", "Path", "Cells", "Skipped", "Took", "Error"})
	for _, f := range files {
		entries, err := oplog.ReadFile(f)
		if err != nil {
			return err
		}
		for _, e := range entries {
			tbl.Append([]string{
				e.Time.Format(time.RFC3339),
				e.Op,
				strconv.FormatBool(e.OK),
				e.Path,
				humanize.Comma(int64(e.Cells)),
				strconv.Itoa(e.Skipped),
				(time.Duration(e.DurationMS) * time.Millisecond).String(),
				e.Error,
			})
		}
	}
	tbl.Render()
	return nil
}

func shortDigest(d [32]byte) string {
	return fmt.Sprintf("%x", d[:6])
}

func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return humanize.Bytes(uint64(fi.Size()))
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
