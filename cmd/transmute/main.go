package main

import (
	"flag"
	"fmt"
	"os"

	env "github.com/xyproto/env/v2"
	"github.com/xyproto/transmute"
	"github.com/xyproto/transmute/internal/staticoracle"
)

const versionString = "transmute 0.1.0"

// A tiny demo of the layout-transmutability checker: it declares a
// handful of built-in scenarios and reports, for each, whether a
// bit-for-bit reinterpretation from src to dst is sound under the
// requested assumptions.

func main() {
	var (
		showVersion = flag.Bool("version", false, "print the version and exit")
		useColor    = flag.Bool("color", !env.Bool("TRANSMUTE_NO_COLOR"), "colorize diagnostic output")
		assumeAll   = flag.Bool("assume-all", env.Bool("TRANSMUTE_ASSUME_ALL"), "check every scenario as if all assumptions were granted")
		only        = flag.String("scenario", env.Str("TRANSMUTE_SCENARIO"), "run only the named scenario")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(versionString)
		return
	}

	assume := transmute.NoAssumptions()
	if *assumeAll {
		assume = transmute.AllAssumptions()
	}

	oracle := staticoracle.New(staticoracle.NativeAMD64())
	oracle.AddModule("scenarios", "")

	failed := false
	for _, sc := range scenarios() {
		if *only != "" && sc.name != *only {
			continue
		}
		err := transmute.CheckTransmute(oracle, "scenarios", "scenarios", sc.dst, sc.src, assume)
		if err != nil {
			failed = true
			fmt.Printf("%s: REJECTED\n", sc.name)
			switch e := err.(type) {
			case *transmute.RejectedError:
				fmt.Print(e.Format(*useColor))
			case *transmute.BuildError:
				fmt.Print(e.Format(*useColor))
			default:
				fmt.Println("  " + err.Error())
			}
			continue
		}
		fmt.Printf("%s: OK (dst=%s, src=%s)\n", sc.name, sc.dst, sc.src)
	}

	if failed {
		os.Exit(1)
	}
}

type scenario struct {
	name     string
	dst, src *transmute.Type
}

func scenarios() []scenario {
	return []scenario{
		{name: "bool-from-u8", dst: transmute.Bool(), src: transmute.Int(1, "u8")},
		{name: "u8-from-bool", dst: transmute.Int(1, "u8"), src: transmute.Bool()},
		{name: "u32-from-4-bytes", dst: transmute.Int(4, "u32"), src: &transmute.Type{
			Kind: transmute.KindRecord, Name: "Bytes4", Repr: transmute.Repr{C: true},
			Fields: []transmute.Field{
				{Name: "a", Ty: transmute.Int(1, "u8"), Public: true},
				{Name: "b", Ty: transmute.Int(1, "u8"), Public: true},
				{Name: "c", Ty: transmute.Int(1, "u8"), Public: true},
				{Name: "d", Ty: transmute.Int(1, "u8"), Public: true},
			},
		}},
	}
}
