package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/vbonduro/pinboard/internal/board"
	"github.com/vbonduro/pinboard/internal/domain"
	"github.com/vbonduro/pinboard/internal/gesture"
	"github.com/vbonduro/pinboard/internal/render"
	"github.com/vbonduro/pinboard/internal/web"
	"github.com/vbonduro/pinboard/internal/web/templates"
)

var commands = map[string]command{
	"list":     {usage: "", summary: "list the items on the board", run: runList},
	"card":     {usage: "--title T [--description D]", summary: "add a task card", run: runCard},
	"image":    {usage: "PATH", summary: "add an image from a file", run: runImage},
	"text":     {usage: "X,Y --markup M [--color C]", summary: "add a text note", run: runText},
	"edit":     {usage: "ID --markup M [--color C]", summary: "change a text note", run: runEdit},
	"draw":     {usage: "X,Y X,Y ...", summary: "draw a freehand stroke through the points", run: runDraw},
	"erase":    {usage: "X,Y ...", summary: "sweep the eraser over the points", run: runErase},
	"drag":     {usage: "[--add] X,Y X,Y ...", summary: "press, drag and release in select mode", run: runDrag},
	"progress": {usage: "ID VALUE", summary: "set a card's progress", run: runProgress},
	"move":     {usage: "ID X Y", summary: "move an item", run: runMove},
	"resize":   {usage: "ID W H", summary: "resize an item", run: runResize},
	"front":    {usage: "ID", summary: "bring an item to the front", run: runFront},
	"delete":   {usage: "ID ...", summary: "delete items", run: runDelete},
	"render":   {usage: "[--out F] [--zoom N]", summary: "paint the board to a PNG file", run: runRender},
	"serve":    {usage: "[--addr A]", summary: "serve a read-only view of the board over HTTP", run: runServe},
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {}
	return fs
}

func parsePoint(s string) (domain.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Point{}, fmt.Errorf("invalid point %q: want X,Y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return domain.Point{X: x, Y: y}, nil
}

func parsePoints(args []string) ([]domain.Point, error) {
	pts := make([]domain.Point, 0, len(args))
	for _, arg := range args {
		p, err := parsePoint(arg)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", arg)
		}
		out = append(out, v)
	}
	return out, nil
}

func (a *app) lookup(arg string) (board.Item, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid item id %q", arg)
	}
	item := a.session.Lookup(id)
	if item == nil {
		return nil, fmt.Errorf("item %d not found", id)
	}
	return item, nil
}

func describe(item board.Item) string {
	switch it := item.(type) {
	case *board.Card:
		return fmt.Sprintf("%q %d%%", it.Title, it.Progress())
	case *board.Image:
		return it.Path
	case *board.Text:
		first, _, _ := strings.Cut(it.Markup(), "\n")
		return fmt.Sprintf("%q %s", first, it.Color().Hex())
	case *board.Stroke:
		return fmt.Sprintf("%d points %s", len(it.Points()), it.Color().Hex())
	default:
		return ""
	}
}

func runList(_ context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tX\tY\tW\tH\tZ\tDETAIL")
	for _, item := range a.session.Items() {
		pos := item.Position()
		w, h := item.Size()
		fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%g\t%g\t%d\t%s\n",
			item.ID(), item.Kind(), pos.X, pos.Y, w, h, item.Z(), describe(item))
	}
	return tw.Flush()
}

func runCard(ctx context.Context, a *app, args []string) error {
	var title, description string
	fs := newFlagSet("card")
	fs.StringVarP(&title, "title", "t", "", "card title")
	fs.StringVarP(&description, "description", "d", "", "card description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	card, err := a.session.CreateCard(ctx, title, description)
	if err != nil {
		return err
	}
	a.printf("created card %d\n", card.ID())
	return nil
}

func runImage(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("image takes exactly one path")
	}
	img, err := a.session.CreateImage(ctx, args[0])
	if err != nil {
		return err
	}
	a.printf("created image %d\n", img.ID())
	return nil
}

func textFlags(name string, markup, color *string) *pflag.FlagSet {
	fs := newFlagSet(name)
	fs.StringVarP(markup, "markup", "m", "", "note content in Markdown")
	fs.StringVarP(color, "color", "c", "", "text color as #rrggbb")
	return fs
}

// applyText edits t while it has focus; the blur writes the change through.
func (a *app) applyText(ctx context.Context, t *board.Text, markup, color string) error {
	if a.session.Focused() != t {
		a.session.Focus(t)
	}
	if markup != "" {
		t.SetMarkup(markup)
	}
	if color != "" {
		c, err := domain.ParseRGB(color)
		if err != nil {
			return err
		}
		t.SetColor(c)
	}
	return a.session.Blur(ctx)
}

func runText(ctx context.Context, a *app, args []string) error {
	var markup, color string
	fs := textFlags("text", &markup, &color)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("text takes exactly one position")
	}
	p, err := parsePoint(fs.Arg(0))
	if err != nil {
		return err
	}

	a.controller.SetMode(gesture.ModeText)
	if err := a.controller.PointerDown(ctx, p, 0); err != nil {
		return err
	}
	if err := a.controller.PointerUp(ctx, p); err != nil {
		return err
	}
	t := a.session.Focused()
	if t == nil {
		return errors.New("text note was not created")
	}
	if err := a.applyText(ctx, t, markup, color); err != nil {
		return err
	}
	a.printf("created text %d\n", t.ID())
	return nil
}

func runEdit(ctx context.Context, a *app, args []string) error {
	var markup, color string
	fs := textFlags("edit", &markup, &color)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("edit takes exactly one item id")
	}
	item, err := a.lookup(fs.Arg(0))
	if err != nil {
		return err
	}
	t, ok := item.(*board.Text)
	if !ok {
		return fmt.Errorf("item %d is a %s, not a text note", item.ID(), item.Kind())
	}
	return a.applyText(ctx, t, markup, color)
}

// replay feeds pts as one press, drag and release.
func (a *app) replay(ctx context.Context, mode gesture.Mode, pts []domain.Point, mods gesture.Modifiers) error {
	if len(pts) == 0 {
		return errors.New("at least one point is required")
	}
	a.controller.SetMode(mode)
	if err := a.controller.PointerDown(ctx, pts[0], mods); err != nil {
		a.controller.Reset()
		return err
	}
	for _, p := range pts[1:] {
		if err := a.controller.PointerMove(ctx, p); err != nil {
			a.controller.Reset()
			return err
		}
	}
	return a.controller.PointerUp(ctx, pts[len(pts)-1])
}

func runDraw(ctx context.Context, a *app, args []string) error {
	pts, err := parsePoints(args)
	if err != nil {
		return err
	}
	if err := a.replay(ctx, gesture.ModeDraw, pts, 0); err != nil {
		return err
	}
	if len(a.added) == 0 {
		a.printf("stroke discarded\n")
		return nil
	}
	a.printf("created stroke %d\n", a.added[len(a.added)-1].ID())
	return nil
}

func runErase(ctx context.Context, a *app, args []string) error {
	pts, err := parsePoints(args)
	if err != nil {
		return err
	}
	if err := a.replay(ctx, gesture.ModeErase, pts, 0); err != nil {
		return err
	}
	for _, item := range a.removed {
		a.printf("erased stroke %d\n", item.ID())
	}
	return nil
}

func runDrag(ctx context.Context, a *app, args []string) error {
	var additive bool
	fs := newFlagSet("drag")
	fs.BoolVar(&additive, "add", false, "extend the selection instead of replacing it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pts, err := parsePoints(fs.Args())
	if err != nil {
		return err
	}

	var mods gesture.Modifiers
	if additive {
		mods |= gesture.ModAdd
	}
	if err := a.replay(ctx, gesture.ModeSelect, pts, mods); err != nil {
		return err
	}
	for _, item := range a.session.Selected() {
		a.printf("selected %s %d\n", item.Kind(), item.ID())
	}
	return nil
}

func runProgress(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errors.New("progress takes an item id and a value")
	}
	item, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	card, ok := item.(*board.Card)
	if !ok {
		return fmt.Errorf("item %d is a %s, not a card", item.ID(), item.Kind())
	}
	v, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid progress %q", args[1])
	}
	if err := a.session.SetProgress(ctx, card, v); err != nil {
		return err
	}
	a.printf("card %d at %d%%\n", card.ID(), card.Progress())
	return nil
}

func runMove(ctx context.Context, a *app, args []string) error {
	if len(args) != 3 {
		return errors.New("move takes an item id, X and Y")
	}
	item, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	v, err := parseFloats(args[1:])
	if err != nil {
		return err
	}
	return a.session.Move(ctx, item, v[0], v[1])
}

func runResize(ctx context.Context, a *app, args []string) error {
	if len(args) != 3 {
		return errors.New("resize takes an item id, W and H")
	}
	item, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	v, err := parseFloats(args[1:])
	if err != nil {
		return err
	}
	if err := a.session.Resize(ctx, item, v[0], v[1]); err != nil {
		return err
	}
	w, h := item.Size()
	a.printf("%s %d is %gx%g\n", item.Kind(), item.ID(), w, h)
	return nil
}

func runFront(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("front takes exactly one item id")
	}
	item, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	return a.session.BringToFront(ctx, item)
}

func runDelete(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("delete takes at least one item id")
	}
	a.session.ClearSelection()
	for _, arg := range args {
		item, err := a.lookup(arg)
		if err != nil {
			return err
		}
		a.session.Select(item, true)
	}
	if err := a.session.DeleteSelected(ctx); err != nil {
		return err
	}
	a.printf("deleted %d items\n", len(a.removed))
	return nil
}

func runRender(_ context.Context, a *app, args []string) error {
	var out, offset string
	var zoom, width, height int
	fs := newFlagSet("render")
	fs.StringVarP(&out, "out", "o", "board.png", "output PNG file")
	fs.IntVar(&zoom, "zoom", 0, "zoom steps; negative zooms out")
	fs.IntVar(&width, "width", a.cfg.CanvasWidth, "image width in pixels")
	fs.IntVar(&height, "height", a.cfg.CanvasHeight, "image height in pixels")
	fs.StringVar(&offset, "offset", "0,0", "canvas point shown at the top-left corner")
	if err := fs.Parse(args); err != nil {
		return err
	}
	origin, err := parsePoint(offset)
	if err != nil {
		return err
	}

	for i := 0; i < zoom; i++ {
		a.controller.Scroll(1, gesture.ModZoom)
	}
	for i := 0; i > zoom; i-- {
		a.controller.Scroll(-1, gesture.ModZoom)
	}

	canvas, err := render.NewCanvas(a.logger)
	if err != nil {
		return err
	}
	opts := render.Options{
		Width:  width,
		Height: height,
		Scale:  a.controller.Scale(),
		Offset: origin,
	}
	if err := canvas.SavePNG(out, a.session.Items(), opts); err != nil {
		return err
	}
	a.printf("wrote %s\n", out)
	return nil
}

func runServe(_ context.Context, a *app, args []string) error {
	var addr string
	fs := newFlagSet("serve")
	fs.StringVar(&addr, "addr", a.cfg.ListenAddr, "listen address (overrides LISTEN_ADDR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	canvas, err := render.NewCanvas(a.logger)
	if err != nil {
		return err
	}
	server := web.NewServer(a.session, canvas, templates.FS, a.cfg.CanvasWidth, a.cfg.CanvasHeight, a.logger)
	return server.ListenAndServe(addr)
}
