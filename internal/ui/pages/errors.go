package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/templui/fileshare/internal/ui"
)

// NotAvailable is shown for unknown, deleted and expired share links.
func NotAvailable(detail string) templ.Component {
	return ui.Layout("File Not Available", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := ui.NewWriter(out)
		w.Raw(`<section class="mx-auto max-w-xl space-y-4 py-16 text-center">`)
		w.Raw(`<h1 class="text-2xl font-bold">File Not Available</h1>`)
		w.Rawf(`<p class="text-muted-foreground">%s</p>`, detail)
		w.Raw(`<a href="/" class="underline">Go home</a></section>`)
		return w.Err()
	}))
}

func NotFound() templ.Component {
	return ui.Layout("Not found", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := ui.NewWriter(out)
		w.Raw(`<section class="mx-auto max-w-xl space-y-4 py-16 text-center">`)
		w.Raw(`<h1 class="text-2xl font-bold">Page not found</h1>`)
		w.Raw(`<a href="/" class="underline">Go home</a></section>`)
		return w.Err()
	}))
}
