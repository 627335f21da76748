// This file is part of Cellforge.
//
// Cellforge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellforge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellforge.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cellforge/cellforge/debugger"
	"github.com/cellforge/cellforge/debugger/terminal"
	"github.com/cellforge/cellforge/debugger/terminal/colorterm"
	"github.com/cellforge/cellforge/debugger/terminal/plainterm"
	"github.com/cellforge/cellforge/disassembly"
	"github.com/cellforge/cellforge/disassembly/ppc"
	"github.com/cellforge/cellforge/disassembly/symbols"
	"github.com/cellforge/cellforge/hardware"
	"github.com/cellforge/cellforge/jit"
	"github.com/cellforge/cellforge/jit/config"
	"github.com/cellforge/cellforge/jit/objcache"
	"github.com/cellforge/cellforge/jit/target"
	"github.com/cellforge/cellforge/jit/vmem"
	"github.com/cellforge/cellforge/logger"
	"github.com/cellforge/cellforge/performance"
	"github.com/cellforge/cellforge/prefs"
	"github.com/cellforge/cellforge/resources"
	"github.com/cellforge/cellforge/statsview"
	"github.com/cellforge/cellforge/version"
	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
	"go.uber.org/zap"
)

// global options shared by all modes.
type globals struct {
	statsview bool
	echo      bool
	logJSON   bool
	prefs     []string

	zap *logger.ZapEcho
}

func main() {
	err := newRootCommand(os.Stdout).Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "* error: %v\n", err)
		os.Exit(20)
	}
}

func newRootCommand(output io.Writer) *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           strings.ToLower(version.ApplicationName),
		Short:         "Guest code translation and debugging",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.setup(cmd.OutOrStdout())
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			g.teardown()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(output)

	flags := root.PersistentFlags()
	flags.BoolVar(&g.statsview, "statsview", false, fmt.Sprintf("run stats server (%s)", statsview.Address))
	flags.BoolVar(&g.echo, "log", false, "echo log entries to stderr")
	flags.BoolVar(&g.logJSON, "log-json", false, "echo log entries to stderr as JSON")
	flags.StringArrayVar(&g.prefs, "prefs", nil, "preference override of the form key::value")

	root.AddCommand(cpuCommand())
	root.AddCommand(cacheCommand())
	root.AddCommand(translateCommand())
	root.AddCommand(disasmCommand())
	root.AddCommand(debugCommand())

	return root
}

func (g *globals) setup(output io.Writer) error {
	if len(g.prefs) > 0 {
		prefs.PushCommandLineStack(strings.Join(g.prefs, ";"))
	}

	switch {
	case g.logJSON:
		log, err := zap.NewProduction()
		if err != nil {
			return err
		}
		g.zap = logger.NewZapEcho(log)
		logger.SetEcho(g.zap, false)
	case g.echo:
		logger.SetEcho(logger.NewColorizer(os.Stderr), false)
	}

	if g.statsview {
		if !statsview.Available() {
			return fmt.Errorf("stats server not available in this build")
		}
		statsview.Launch(output)
	}

	return nil
}

func (g *globals) teardown() {
	logger.SetEcho(nil, false)
	if g.zap != nil {
		_ = g.zap.Sync()
	}
	if len(g.prefs) > 0 {
		if unused := prefs.PopCommandLineStack(); unused != "" {
			logger.Logf(logger.Allow, "cellforge", "unused preferences: %s", unused)
		}
	}
}

// preferences are loaded from the file given on the command line or from the
// default location.
func preferences(pth string) (*config.Preferences, error) {
	if pth == "" {
		return config.NewPreferences()
	}
	return config.NewPreferencesFromFile(pth)
}

func table(output io.Writer, header []string, rows [][]string) {
	tw := tablewriter.NewWriter(output)
	tw.SetHeader(header)
	tw.SetBorder(false)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()
}

func cpuCommand() *cobra.Command {
	var opts struct {
		cpu      string
		fallback string
		large    bool
		features bool
	}

	cmd := &cobra.Command{
		Use:   "cpu",
		Short: "Show the target machine chosen for the host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			topts := target.Options{CPU: opts.cpu}
			if opts.large {
				topts.CodeModel = target.Large
			}
			if opts.fallback != "" {
				tbl, err := target.LoadFallbackTable(opts.fallback)
				if err != nil {
					return err
				}
				topts.Fallback = tbl
			}

			host := target.HostInfo()
			mc := target.Detect(topts)

			table(cmd.OutOrStdout(), []string{"property", "value"}, [][]string{
				{"host", fmt.Sprintf("%s %s", host.Vendor, host.Brand)},
				{"host cpu", target.HostCPUName(host)},
				{"cpu", mc.CPU},
				{"source", mc.Source},
				{"triple", mc.Triple},
				{"code model", mc.CodeModel.String()},
			})

			if opts.features {
				fmt.Fprintf(cmd.OutOrStdout(), "\nhost features: %s\n", strings.Join(host.FeatureList(), " "))
				fmt.Fprintf(cmd.OutOrStdout(), "target features: %s\n", strings.Join(mc.Features, " "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.cpu, "cpu", "", "override cpu name")
	cmd.Flags().StringVar(&opts.fallback, "fallback", "", "replacement fallback table (TOML)")
	cmd.Flags().BoolVar(&opts.large, "large", false, "use the large code model")
	cmd.Flags().BoolVar(&opts.features, "features", false, "list cpu features")

	return cmd
}

func cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the object cache",
	}

	// the cache directory is the argument or the directory named by the
	// preferences
	cacheDir := func(args []string) (string, error) {
		if len(args) > 0 {
			return args[0], nil
		}
		p, err := preferences("")
		if err != nil {
			return "", err
		}
		return p.CachePath()
	}

	ls := &cobra.Command{
		Use:   "ls [DIR]",
		Short: "List cache entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir(args)
			if err != nil {
				return err
			}
			ents, err := objcache.Entries(dir)
			if err != nil {
				return err
			}

			var total int64
			rows := make([][]string, 0, len(ents))
			for _, e := range ents {
				total += e.Size
				rows = append(rows, []string{e.Module, strconv.FormatInt(e.Size, 10), strconv.FormatBool(e.Compressed)})
			}
			table(cmd.OutOrStdout(), []string{"module", "size", "compressed"}, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries, %d bytes\n", len(ents), total)
			return nil
		},
	}

	verify := &cobra.Command{
		Use:   "verify [DIR]",
		Short: "Check every cache entry and remove corrupt entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir(args)
			if err != nil {
				return err
			}
			ents, err := objcache.Entries(dir)
			if err != nil {
				return err
			}

			var removed int
			for _, e := range ents {
				pth := e.Path
				if e.Compressed {
					pth = strings.TrimSuffix(pth, objcache.Extension)
				}
				if !objcache.IsValid(pth) {
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", e.Module)
					removed++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries checked, %d removed\n", len(ents), removed)
			return nil
		},
	}

	cmd.AddCommand(ls, verify)
	return cmd
}

// guest image and symbols loaded into a machine.
type guestImage struct {
	machine *hardware.Machine
	sym     *symbols.Symbols
	base    uint32
	size    uint32
}

type imageFlags struct {
	base    uint32
	symbols string
}

func (f *imageFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&f.base, "base", 0x1000, "load address of the image")
	cmd.Flags().StringVar(&f.symbols, "symbols", "", "symbols file")
}

func (f *imageFlags) load(pth string) (*guestImage, error) {
	fi, err := os.Stat(pth)
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 || fi.Size() > hardware.DefaultRAMSize {
		return nil, fmt.Errorf("%s: unsuitable image size (%d bytes)", pth, fi.Size())
	}

	img := &guestImage{
		machine: hardware.NewMachine(hardware.DefaultRAMSize, hardware.DefaultMirrorMask),
		base:    f.base,
		size:    uint32(fi.Size()),
	}
	if err := img.machine.LoadImage(pth, f.base); err != nil {
		return nil, err
	}

	if f.symbols != "" {
		img.sym, err = symbols.ReadSymbolsFile(f.symbols)
		if err != nil {
			return nil, err
		}
	} else {
		img.sym = symbols.NewSymbols()
	}

	return img, nil
}

func (img *guestImage) disassemble() *disassembly.Manager {
	dsm := disassembly.NewManager(img.machine, ppc.NewDecoder(), img.sym)
	dsm.Analyze(img.base, img.size)
	return dsm
}

func disasmCommand() *cobra.Command {
	var img imageFlags
	var tree bool

	cmd := &cobra.Command{
		Use:   "disasm IMAGE",
		Short: "Disassemble a guest image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := img.load(args[0])
			if err != nil {
				return err
			}
			dsm := g.disassemble()
			if tree {
				fmt.Fprint(cmd.OutOrStdout(), entryTree(dsm.Entries()).String())
				return nil
			}
			writeEntries(cmd.OutOrStdout(), dsm.Entries())
			return nil
		},
	}

	img.register(cmd)
	cmd.Flags().BoolVar(&tree, "tree", false, "show the structure of the disassembly")

	return cmd
}

func writeEntries(output io.Writer, ents []disassembly.Entry) {
	for _, e := range ents {
		for n := 0; n < e.NumLines(); n++ {
			fmt.Fprintln(output, e.Line(e.LineAddress(n)).String())
		}
	}
}

func entryTree(ents []disassembly.Entry) treeprint.Tree {
	tree := treeprint.NewWithRoot("disassembly")
	for _, e := range ents {
		addEntry(tree, e)
	}
	return tree
}

func addEntry(tree treeprint.Tree, e disassembly.Entry) {
	meta := fmt.Sprintf("%s %d bytes", e.Kind(), e.TotalSize())
	label := fmt.Sprintf("%08x", e.Address())
	if l := e.Line(e.Address()).Label; l != "" {
		label = fmt.Sprintf("%s <%s>", label, l)
	}

	fn, ok := e.(*disassembly.FunctionEntry)
	if !ok {
		tree.AddMetaNode(meta, label)
		return
	}

	branch := tree.AddMetaBranch(meta, label)
	for _, sub := range fn.Entries() {
		addEntry(branch, sub)
	}
	for _, bl := range fn.BranchLines() {
		branch.AddMetaNode("branch", bl.String())
	}
}

// the host function every translated block calls with the guest address of
// the block in the first argument register.
const interpreterSymbol = "cellforge_interpret"

// addresses used when translating into simulated memory.
const (
	simulatedInterpreter = 0x0f000000
	simulatedBase        = 0x10000000
)

// blockModule translates the guest range into a host function that hands the
// block to the interpreter.
//
//	movabs rdi, start
//	call interpreter
//	ret
func blockModule(start uint32) *jit.Module {
	code := []byte{0x48, 0xbf, 0, 0, 0, 0, 0, 0, 0, 0, 0xe8, 0, 0, 0, 0, 0xc3}
	code[2] = byte(start)
	code[3] = byte(start >> 8)
	code[4] = byte(start >> 16)
	code[5] = byte(start >> 24)

	name := blockSymbol(start)
	m := jit.NewModule(name)
	m.AddFunction(jit.Function{
		Name:  name,
		Code:  code,
		Align: 16,
		Refs: []jit.Ref{
			{Offset: 11, Symbol: interpreterSymbol, Kind: jit.Auto},
		},
	})
	return m
}

func blockSymbol(start uint32) string {
	return fmt.Sprintf("block_%08x", start)
}

func translateCommand() *cobra.Command {
	var img imageFlags
	var opts struct {
		prefsFile string
		perfMap   string
		stats     bool
		profile   bool
	}

	cmd := &cobra.Command{
		Use:   "translate IMAGE",
		Short: "Translate the functions of a guest image into host code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := preferences(opts.prefsFile)
			if err != nil {
				return err
			}
			jopts, err := p.Options()
			if err != nil {
				return err
			}

			// translated code is never run so it is placed in simulated memory
			// within call range of the interpreter address
			jopts.LinkTable = map[string]uintptr{interpreterSymbol: simulatedInterpreter}
			jopts.Platform = vmem.NewSimulated(simulatedBase, 0)
			if opts.perfMap != "" {
				l, err := jit.NewPerfMapListener(opts.perfMap)
				if err != nil {
					return err
				}
				jopts.Listeners = append(jopts.Listeners, l)
			}

			c, err := jit.New(jopts)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Release(); err != nil {
					logger.Log(logger.Allow, "cellforge", err)
				}
			}()

			g, err := img.load(args[0])
			if err != nil {
				return err
			}

			ents := g.disassemble().Entries()

			var blocks *jit.BlockCache
			run := func() error {
				var err error
				blocks, err = translate(cmd.Context(), c, ents, jopts.CacheDir)
				return err
			}

			if opts.profile {
				if err := performance.ProfileCPU("translate.cpu.profile", run); err != nil {
					return err
				}
				if err := performance.ProfileMem("translate.mem.profile"); err != nil {
					return err
				}
			} else if err := run(); err != nil {
				return err
			}

			rows := make([][]string, 0, blocks.Len())
			for _, e := range ents {
				if b, ok := blocks.Lookup(e.Address()); ok {
					rows = append(rows, []string{
						fmt.Sprintf("%08x-%08x", b.Start, b.End),
						b.Symbol,
						fmt.Sprintf("%#x", b.Entry),
					})
				}
			}
			table(cmd.OutOrStdout(), []string{"guest", "symbol", "host"}, rows)

			if opts.stats {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", c.Machine())
				for _, s := range c.MemoryStats() {
					fmt.Fprintln(cmd.OutOrStdout(), s.String())
				}
				if b := c.Budget(); b != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "cache budget remaining %d bytes\n", b.Remaining())
				}
			}

			return nil
		},
	}

	img.register(cmd)
	cmd.Flags().StringVar(&opts.prefsFile, "prefsfile", "", "preferences file")
	cmd.Flags().StringVar(&opts.perfMap, "perfmap", "", "directory for the perf map of translated code")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "show memory manager statistics")
	cmd.Flags().BoolVar(&opts.profile, "profile", false, "write cpu and memory profiles of the translation")

	return cmd
}

// translate every function and top-level code entry. cached objects are
// loaded where possible and everything else is compiled concurrently.
func translate(ctx context.Context, c *jit.Compiler, ents []disassembly.Entry, cachePath string) (*jit.BlockCache, error) {
	var modules []*jit.Module
	var translated []disassembly.Entry

	for _, e := range ents {
		switch e.Kind() {
		case disassembly.EntryFunction, disassembly.EntryOpcodes, disassembly.EntryMacro:
		default:
			continue
		}
		translated = append(translated, e)

		if cachePath != "" && c.AddObject(filepath.Join(cachePath, blockSymbol(e.Address()))) {
			continue
		}
		modules = append(modules, blockModule(e.Address()))
	}

	if err := c.AddAll(ctx, modules, cachePath); err != nil {
		return nil, err
	}
	if err := c.Finalize(); err != nil {
		return nil, err
	}

	blocks := jit.NewBlockCache()
	for _, e := range translated {
		b := jit.Block{
			Start:  e.Address(),
			End:    e.Address() + e.TotalSize(),
			Symbol: blockSymbol(e.Address()),
		}
		var err error
		b.Entry, err = c.Get(b.Symbol)
		if err != nil {
			return nil, err
		}
		if err := blocks.Insert(b); err != nil {
			return nil, err
		}
	}

	return blocks, nil
}

func debugCommand() *cobra.Command {
	var img imageFlags
	var plain bool

	cmd := &cobra.Command{
		Use:   "debug IMAGE",
		Short: "Debug a guest image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := img.load(args[0])
			if err != nil {
				return err
			}

			dbg, err := debugger.NewDebugger(debugger.Config{
				Target:      g.machine,
				Decoder:     ppc.NewDecoder(),
				Symbols:     g.sym,
				Invalidator: jit.NewBlockCache(),
				Mask:        hardware.DefaultMirrorMask,
			})
			if err != nil {
				return err
			}
			dbg.Disasm.Analyze(g.base, g.size)

			var term terminal.Terminal
			if plain || !readline.DefaultIsTerminal() {
				term = &plainterm.PlainTerminal{
					Input:      cmd.InOrStdin(),
					Output:     cmd.OutOrStdout(),
					ShowPrompt: !plain,
				}
			} else {
				hist, err := resources.JoinPath("history")
				if err != nil {
					return err
				}
				term = &colorterm.ColorTerminal{HistoryFile: hist}

				// ctrl-c pauses the emulation rather than ending the program
				signal.Ignore(os.Interrupt)
				defer signal.Reset(os.Interrupt)
			}

			err = dbg.Start(term)
			if errors.Is(err, terminal.ErrUserAbort) {
				return nil
			}
			return err
		},
	}

	img.register(cmd)
	cmd.Flags().BoolVar(&plain, "plain", false, "use plain terminal")

	return cmd
}
