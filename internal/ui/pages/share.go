package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/templui/fileshare/internal/format"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/ui"
)

type ShareView struct {
	Share       *model.FileShare
	MessageHTML string // rendered markdown, already sanitized
	Expired     bool
	ExpiresIn   string
	DownloadURL string
}

func Share(v ShareView) templ.Component {
	return ui.Layout(v.Share.FileName, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		s := v.Share

		w := ui.NewWriter(out)
		w.Raw(`<article class="mx-auto max-w-xl space-y-6 py-8">`)
		w.Raw(`<header class="space-y-1">`)
		w.Rawf(`<h1 class="break-all text-2xl font-bold">%s</h1>`, s.FileName)
		w.Rawf(`<p class="text-sm text-muted-foreground">%s · %s · shared %s</p>`,
			format.Size(s.FileSize), format.CategoryOf(s.FileName), format.Date(s.CreatedAt))
		w.Raw(`</header>`)

		if v.Expired {
			w.Component(ctx, ui.Alert("This link expired on "+format.DateTime(s.ExpiresAt)+".", true))
		} else {
			w.Rawf(`<p class="text-sm">Link expires %s (%s).</p>`, v.ExpiresIn, format.DateTime(s.ExpiresAt))
		}

		if v.MessageHTML != "" {
			w.Raw(`<div class="prose rounded-md border p-4">`)
			w.Raw(v.MessageHTML)
			w.Raw(`</div>`)
		}

		w.Rawf(`<a href="%s" class="%s">Download</a>`, v.DownloadURL,
			ui.Class("inline-block rounded-md bg-primary px-4 py-2 text-primary-foreground", disabledClass(v.Expired)))
		w.Raw(`</article>`)
		return w.Err()
	}))
}

func disabledClass(off bool) string {
	if off {
		return "bg-muted text-muted-foreground"
	}
	return ""
}
