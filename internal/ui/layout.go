package ui

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/templui/fileshare/internal/ctxkeys"
)

// Layout wraps body in the HTML document shell shared by every page.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		appName := "Fileshare"
		if cfg := ctxkeys.Config(ctx); cfg != nil && cfg.AppName != "" {
			appName = cfg.AppName
		}

		w := NewWriter(out)
		w.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		if token := ctxkeys.CSRFToken(ctx); token != "" {
			w.Rawf(`<meta name="csrf-token" content="%s">`, token)
		}
		if title != "" {
			w.Rawf(`<title>%s · %s</title>`, title, appName)
		} else {
			w.Rawf(`<title>%s</title>`, appName)
		}
		w.Raw(`<link rel="stylesheet" href="/assets/css/output.css"></head>`)
		w.Raw(`<body class="min-h-screen bg-background text-foreground antialiased">`)
		w.Rawf(`<header class="border-b"><nav class="container mx-auto flex items-center justify-between p-4"><a href="/" class="font-semibold">%s</a>`, appName)
		navLinks(ctx, w)
		w.Raw(`</nav></header><main class="container mx-auto p-4">`)
		w.Component(ctx, body)
		w.Raw(`</main></body></html>`)
		return w.Err()
	})
}

func navLinks(ctx context.Context, w *Writer) {
	user := ctxkeys.User(ctx)
	if user == nil {
		w.Raw(`<a href="/auth" class="text-sm underline">Sign in</a>`)
		return
	}
	w.Raw(`<form method="post" action="/auth/signout" class="flex items-center gap-3">`)
	w.Rawf(`<span class="text-sm text-muted-foreground">%s</span>`, user.Email)
	w.Rawf(`<input type="hidden" name="csrf_token" value="%s">`, ctxkeys.CSRFToken(ctx))
	w.Raw(`<button type="submit" class="text-sm underline">Sign out</button></form>`)
}

// Alert renders an inline message box. Empty text renders nothing.
func Alert(text string, destructive bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if text == "" {
			return nil
		}
		class := "rounded-md border p-3 text-sm"
		if destructive {
			class = Class(class, "border-destructive text-destructive")
		}
		w := NewWriter(out)
		w.Rawf(`<div role="alert" class="%s">%s</div>`, class, text)
		return w.Err()
	})
}
