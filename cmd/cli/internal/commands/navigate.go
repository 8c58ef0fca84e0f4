package commands

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/wolfeidau/polly/internal/routes"
)

// NavigateCmd shows what opening a screen would do for the current session.
type NavigateCmd struct {
	Path string `arg:"" help:"Screen path, e.g. /admin/users or /poll/3"`
}

func (n *NavigateCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.NewApp()
	if err != nil {
		return err
	}

	snap := app.restore(ctx)
	d := app.Routes.Navigate(snap, n.Path)

	tw := app.table()
	fmt.Fprintf(tw, "Session:\t%s\n", snap.State)
	if snap.Error != "" {
		fmt.Fprintf(tw, "Warning:\t%s\n", snap.Error)
	}
	fmt.Fprintf(tw, "Layout:\t%s\n", routes.Layout(snap))
	if d.Route != nil {
		fmt.Fprintf(tw, "Route:\t%s\n", d.Route.Pattern)
	} else {
		fmt.Fprintf(tw, "Route:\t(none)\n")
	}
	for _, name := range slices.Sorted(maps.Keys(d.Params)) {
		fmt.Fprintf(tw, "Param %s:\t%s\n", name, d.Params[name])
	}
	fmt.Fprintf(tw, "Decision:\t%s\n", d.Kind)
	if d.Kind == routes.Redirect {
		fmt.Fprintf(tw, "Target:\t%s\n", d.Target)
	}
	return tw.Flush()
}
