// Command flow is a CLI tool for inspecting diagrams and rendering packet
// animations without a terminal UI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/ha1tch/archflow/pkg/diagram"
	"github.com/ha1tch/archflow/pkg/flow"
	"github.com/ha1tch/archflow/pkg/render"
)

const usage = `flow - packet animation toolkit for architecture diagrams

Usage:
  flow [-v] <command> [options]

Commands:
  info       Show diagram information
  validate   Validate a diagram file
  curve      Print the connector curve of an edge
  simulate   Run animations headless and print spawn/retire events
  frames     Render animation frames to PNG files
  svg        Export the diagram as an animated SVG

Style options (simulate, frames, svg):
  --edge <id>        animate only this edge (repeatable, default all)
  --color <colour>   packet colour (default #3b82f6)
  --shape <shape>    circle, square, diamond or triangle
  --size <px>        packet size
  --speed <s>        seconds to traverse an edge
  --freq <n>         packets per second
  --bidi             also send packets back
  --label <text>     packet label
  --eval <name>      bezier or arc-length
  --fade <ms>        fade-out after arrival
  --duration <s>     how long to run (default 3)
  --fps <n>          ticks per second (default 30)

Examples:
  flow info shop.json
  flow curve shop.json web-api --samples 8
  flow simulate shop.json --freq 2 --speed 1
  flow frames shop.json -o frames/ --bidi --shape triangle
  flow svg shop.json --edge web-api -o shop.svg

Use "flow <command> -h" for more information about a command.
`

func main() {
	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-v" || args[0] == "--verbose") {
		flow.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		args = args[1:]
	}
	if len(args) < 1 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "info":
		cmdInfo(args)
	case "validate":
		cmdValidate(args)
	case "curve":
		cmdCurve(args)
	case "simulate":
		cmdSimulate(args)
	case "frames":
		cmdFrames(args)
	case "svg":
		cmdSVG(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func loadDiagram(path string) (*diagram.Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return diagram.ParseJSON(data)
}

func mustLoad(path string) *diagram.Diagram {
	d, err := loadDiagram(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", path, err)
		os.Exit(1)
	}
	return d
}

func cmdInfo(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow info <diagram.json>")
		os.Exit(1)
	}
	writeInfo(os.Stdout, mustLoad(args[0]))
}

func cmdValidate(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow validate <diagram.json>")
		os.Exit(1)
	}
	d := mustLoad(args[0])
	if dangling := danglingEdges(d); len(dangling) > 0 {
		for _, msg := range dangling {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
	}
	fmt.Printf("%s: valid\n", args[0])
}

func cmdCurve(args []string) {
	if len(args) < 2 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow curve <diagram.json> <edge-id> [--samples n] [--eval bezier|arc-length]")
		os.Exit(1)
	}
	samples := 10
	eval := flow.Evaluator(flow.ClosedForm{})
	for i := 2; i < len(args); i++ {
		switch args[i] {
		case "--samples":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err != nil || n < 1 {
					fmt.Fprintf(os.Stderr, "Invalid sample count: %s\n", args[i+1])
					os.Exit(1)
				}
				samples = n
				i++
			}
		case "--eval":
			if i+1 < len(args) {
				ev, ok := flow.ParseEvaluator(args[i+1])
				if !ok {
					fmt.Fprintf(os.Stderr, "Unknown evaluator: %s\n", args[i+1])
					os.Exit(1)
				}
				eval = ev
				i++
			}
		}
	}

	d := mustLoad(args[0])
	if err := writeCurve(os.Stdout, d, args[1], samples, eval); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdSimulate(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow simulate <diagram.json> [style options]")
		os.Exit(1)
	}
	opts, err := parseRunOptions(args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	d := mustLoad(args[0])
	if err := simulate(os.Stdout, d, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdFrames(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow frames <diagram.json> [-o dir] [--width px] [--height px] [style options]")
		os.Exit(1)
	}
	opts, err := parseRunOptions(args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	d := mustLoad(args[0])
	n, err := exportFrames(d, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Written: %d frames to %s\n", n, opts.output)
}

func cmdSVG(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow svg <diagram.json> [-o file.svg] [--width px] [--height px] [style options]")
		os.Exit(1)
	}
	opts, err := parseRunOptions(args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	d := mustLoad(args[0])

	out := os.Stdout
	if opts.outputSet {
		f, err := os.Create(opts.output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := writeSVG(out, os.Stderr, d, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if opts.outputSet {
		fmt.Fprintf(os.Stderr, "Written: %s\n", opts.output)
	}
}

// runOptions are the settings shared by simulate, frames and svg.
type runOptions struct {
	edges    []string
	style    flow.PacketStyle
	eval     flow.Evaluator
	fade     time.Duration
	duration time.Duration
	fps      int

	output        string
	outputSet     bool
	width, height int
}

func defaultRunOptions() runOptions {
	return runOptions{
		style:    flow.DefaultStyle(),
		eval:     flow.ClosedForm{},
		duration: 3 * time.Second,
		fps:      30,
		output:   "frames",
	}
}

func parseRunOptions(args []string) (runOptions, error) {
	opts := defaultRunOptions()

	value := func(i int) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s needs a value", args[i])
		}
		return args[i+1], nil
	}
	number := func(i int) (float64, error) {
		v, err := value(i)
		if err != nil {
			return 0, err
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", args[i], err)
		}
		return f, nil
	}

	for i := 0; i < len(args); i++ {
		var err error
		var f float64
		var v string
		switch args[i] {
		case "--edge":
			if v, err = value(i); err == nil {
				opts.edges = append(opts.edges, v)
				i++
			}
		case "--color":
			if v, err = value(i); err == nil {
				opts.style.Color = v
				i++
			}
		case "--shape":
			if v, err = value(i); err == nil {
				opts.style.Shape, err = flow.ParseShape(v)
				i++
			}
		case "--label":
			if v, err = value(i); err == nil {
				opts.style.Label = v
				i++
			}
		case "--size":
			if f, err = number(i); err == nil {
				opts.style.Size = f
				i++
			}
		case "--speed":
			if f, err = number(i); err == nil {
				opts.style.Speed = f
				i++
			}
		case "--freq":
			if f, err = number(i); err == nil {
				opts.style.Frequency = f
				i++
			}
		case "--bidi":
			opts.style.Bidirectional = true
		case "--no-trail":
			opts.style.Trail = false
		case "--eval":
			if v, err = value(i); err == nil {
				ev, ok := flow.ParseEvaluator(v)
				if !ok {
					err = fmt.Errorf("unknown evaluator %q", v)
				}
				opts.eval = ev
				i++
			}
		case "--fade":
			if f, err = number(i); err == nil {
				opts.fade = time.Duration(f * float64(time.Millisecond))
				i++
			}
		case "--duration":
			if f, err = number(i); err == nil {
				if f <= 0 {
					err = fmt.Errorf("--duration must be positive")
				}
				opts.duration = time.Duration(f * float64(time.Second))
				i++
			}
		case "--fps":
			if f, err = number(i); err == nil {
				if f < 1 || f > 240 {
					err = fmt.Errorf("--fps must be within 1..240")
				}
				opts.fps = int(f)
				i++
			}
		case "-o", "--output":
			if v, err = value(i); err == nil {
				opts.output = v
				opts.outputSet = true
				i++
			}
		case "--width":
			if f, err = number(i); err == nil {
				opts.width = int(f)
				i++
			}
		case "--height":
			if f, err = number(i); err == nil {
				opts.height = int(f)
				i++
			}
		default:
			err = fmt.Errorf("unknown option %s", args[i])
		}
		if err != nil {
			return opts, err
		}
	}

	if err := opts.style.Validate(); err != nil {
		return opts, err
	}
	if !render.ValidColor(opts.style.Color) {
		return opts, fmt.Errorf("--color: %q is not a colour", opts.style.Color)
	}
	return opts, nil
}
