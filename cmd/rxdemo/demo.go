package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/AnatoleLucet/reactive"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

type task struct {
	reactive.Object

	Title string `json:"title"`
	Done  bool   `json:"done"`
}

func newTask(title string) *task {
	t := &task{Title: title}
	t.Init(t)
	// pins the current app before the task leaves this goroutine
	t.App()

	return t
}

func (t *task) SetDone(v bool) {
	reactive.RaiseAndSetIfChanged(t, &t.Done, v, "Done")
}

type demoOptions struct {
	interval time.Duration
	titles   []string
	metrics  bool
}

func newDemoCmd(root *rootOptions) *cobra.Command {
	opts := demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Collect tasks on a timer and follow them through a projection and a content hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := reactive.LoadConfig(root.configPath)
			if err != nil {
				return err
			}

			app, err := reactive.NewApp(cfg, reactive.WithAppLogger(pslog.Ctx(ctx)))
			if err != nil {
				return err
			}
			defer app.Close()

			if err := runDemo(ctx, cmd.OutOrStdout(), app, opts); err != nil {
				return err
			}
			if opts.metrics {
				return printMetrics(cmd.OutOrStdout(), app)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&opts.interval, "interval", 250*time.Millisecond, "delay between two collected tasks")
	cmd.Flags().StringSliceVar(&opts.titles, "tasks", []string{"write the plan", "build it", "ship it"}, "task titles")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print the app's counters when done")

	return cmd
}

func runDemo(ctx context.Context, out io.Writer, app *reactive.App, opts demoOptions) error {
	if opts.interval <= 0 {
		return errors.New("--interval must be positive")
	}
	if len(opts.titles) == 0 {
		return errors.New("--tasks must not be empty")
	}

	done := make(chan string, 1)
	err := app.DeferredScheduler().Schedule(func() {
		app.Run(func() { wireDemo(out, opts, done) })
	})
	if err != nil {
		return err
	}

	select {
	case hash := <-done:
		fmt.Fprintf(out, "final   %s\n", hash)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wireDemo runs on the deferred scheduler, which must run one action at a time:
// the collected tasks arrive there too.
func wireDemo(out io.Writer, opts demoOptions, done chan<- string) {
	tasks := make([]*task, len(opts.titles))
	for i, title := range opts.titles {
		tasks[i] = newTask(title)
	}

	incoming := reactive.CollectFrom(tasks, opts.interval, nil, reactive.WithChangeTracking())
	titles := reactive.Derive(incoming, func(t *task) string { return strings.ToUpper(t.Title) })
	store := reactive.NewSerializedCollection[*task](nil)

	titles.ItemsAdded().Subscribe(func(title string) {
		fmt.Fprintf(out, "added   %s\n", title)
	})
	incoming.ItemChanged().Subscribe(func(c reactive.Change) {
		if t, ok := c.Sender.(*task); ok {
			fmt.Fprintf(out, "changed %s %s\n", t.Title, c.PropertyName)
		}
	})
	store.ItemChanged().Subscribe(func(reactive.Change) {
		fmt.Fprintf(out, "hash    %s\n", store.ContentHash())
	})

	incoming.ItemsAdded().Subscribe(func(t *task) {
		store.Add(t)
		if i := slices.Index(tasks, t); i > 0 {
			tasks[i-1].SetDone(true)
		}
	})
	incoming.CollectionChanged().Subscribe(func(reactive.CollectionChange[*task]) {
		if incoming.Len() == len(tasks) {
			tasks[len(tasks)-1].SetDone(true)
			done <- store.ContentHash().String()
		}
	})
}

func printMetrics(out io.Writer, app *reactive.App) error {
	families, err := app.Gatherer().Gather()
	if err != nil {
		return err
	}

	for _, mf := range families {
		total := 0.0
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		fmt.Fprintf(out, "%s %g\n", mf.GetName(), total)
	}

	return nil
}
