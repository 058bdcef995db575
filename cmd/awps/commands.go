package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/gekko3d/awparticles"
	"github.com/gekko3d/awparticles/core"
	"github.com/gekko3d/awparticles/distribution"
	"github.com/gekko3d/awparticles/editor"
	"github.com/gekko3d/awparticles/spawner"
)

type cli struct {
	out    io.Writer
	errOut io.Writer
	log    awparticles.Logger
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *cli) newFile(args []string) error {
	fs := c.flags("new")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: new takes one file", errUsage)
	}
	path := spawner.WithExtension(fs.Arg(0))
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force)", path)
	}
	if err := spawner.SaveFile(path, spawner.Default()); err != nil {
		return err
	}
	fmt.Fprintln(c.out, path)
	return nil
}

func (c *cli) show(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: show takes one file", errUsage)
	}
	cfg, err := spawner.LoadFile(args[0])
	if err != nil {
		return err
	}
	for _, f := range spawner.Fields() {
		d := cfg.Distribution(f)
		if f == spawner.Rotation {
			fmt.Fprintf(c.out, "%-11s %s (%s deg)\n", f, d, editor.Degrees(d))
			continue
		}
		fmt.Fprintf(c.out, "%-11s %s\n", f, d)
	}
	fmt.Fprintf(c.out, "%-11s %g\n", "fade_in", cfg.FadeIn)
	fmt.Fprintf(c.out, "%-11s %s\n", spawner.Begin, cfg.Gradient.Begin().Hex())
	fmt.Fprintf(c.out, "%-11s %s\n", spawner.End, cfg.Gradient.End().Hex())
	return nil
}

func (c *cli) validate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: validate takes at least one file", errUsage)
	}
	failed := 0
	for _, path := range args {
		if _, err := spawner.LoadFile(path); err != nil {
			failed++
			fmt.Fprintf(c.out, "FAIL %v\n", err)
			continue
		}
		fmt.Fprintf(c.out, "ok   %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files invalid", failed, len(args))
	}
	return nil
}

func (c *cli) set(args []string) error {
	fs := c.flags("set")
	deg := fs.Bool("deg", false, "rotation values are in degrees")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("%w: set takes a file and at least one key=value", errUsage)
	}
	path := fs.Arg(0)
	cfg, err := spawner.LoadFile(path)
	if err != nil {
		return err
	}
	for _, kv := range fs.Args()[1:] {
		if err := assign(&cfg, kv, *deg); err != nil {
			return fmt.Errorf("%s: %w", kv, err)
		}
		c.log.Debugf("applied %s", kv)
	}
	return spawner.SaveFile(path, cfg)
}

// assign applies one key=value pair. The config is unchanged on error.
func assign(cfg *spawner.Config, kv string, deg bool) error {
	key, value, ok := strings.Cut(kv, "=")
	if !ok {
		return errors.New("expected key=value")
	}
	switch key {
	case "fade_in":
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return err
		}
		return cfg.SetFadeIn(float32(v))
	case spawner.Begin.String(), spawner.End.String():
		stop, _ := spawner.ParseGradientStop(key)
		col, err := core.ParseHex(value)
		if err != nil {
			return err
		}
		return cfg.SetColor(stop, col)
	}

	f, err := spawner.ParseField(key)
	if err != nil {
		return err
	}
	d, err := parseDistribution(value)
	if err != nil {
		return err
	}
	if deg && f == spawner.Rotation {
		d = editor.Radians(d)
	}
	return cfg.SetDistribution(f, d)
}

// parseDistribution reads clamped:min,max or normal:mean,stddev.
func parseDistribution(s string) (distribution.Distribution, error) {
	kindName, params, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("expected kind:a,b, got %q", s)
	}
	kind, err := distribution.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	a, b, err := parsePair(params)
	if err != nil {
		return nil, err
	}
	if kind == distribution.KindNormal {
		return distribution.NewFreeNormal(a, b)
	}
	return distribution.NewClampedNormal(a, b)
}

func parsePair(s string) (float32, float32, error) {
	as, bs, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("expected two comma separated numbers, got %q", s)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(as), 32)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(bs), 32)
	if err != nil {
		return 0, 0, err
	}
	return float32(a), float32(b), nil
}

func (c *cli) gradient(args []string) error {
	fs := c.flags("gradient")
	width := fs.Int("width", 256, "image width")
	height := fs.Int("height", 32, "image height")
	out := fs.String("o", "", "output PNG (default: <file>.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: gradient takes one file", errUsage)
	}
	if *width < 1 || *height < 1 {
		return fmt.Errorf("%w: image size must be positive", errUsage)
	}
	path := fs.Arg(0)
	cfg, err := spawner.LoadFile(path)
	if err != nil {
		return err
	}
	if *out == "" {
		*out = strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
	}

	img := GradientImage(cfg.Gradient, *width, *height)
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", *out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	c.log.Infof("wrote %s (%dx%d)", *out, *width, *height)
	return nil
}

// GradientImage stretches the two gradient texels across width pixels with
// bilinear filtering, the way the linear sampler reads the lookup texture.
func GradientImage(g core.Gradient, width, height int) *image.NRGBA {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	for i, c := range []core.Color{g.Begin(), g.End()} {
		b := c.RGBA8()
		src.SetNRGBA(i, 0, color.NRGBA{R: b[0], G: b[1], B: b[2], A: b[3]})
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
