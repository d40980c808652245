package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/ui"
)

// Auth renders the sign in and sign up forms. providers lists enabled OAuth providers.
func Auth(errorMessage string, providers []string) templ.Component {
	return authPage(errorMessage, true, providers)
}

// AuthNotice is the sign-in page with an informational message.
func AuthNotice(notice string, providers []string) templ.Component {
	return authPage(notice, false, providers)
}

func authPage(message string, isError bool, providers []string) templ.Component {
	return ui.Layout("Sign in", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		csrf := ctxkeys.CSRFToken(ctx)

		w := ui.NewWriter(out)
		w.Raw(`<section class="mx-auto grid max-w-3xl gap-8 py-8 md:grid-cols-2">`)
		w.Raw(`<div class="md:col-span-2">`)
		w.Component(ctx, ui.Alert(message, isError))
		w.Raw(`</div>`)

		w.Raw(`<form method="post" action="/auth/signin" class="space-y-3"><h2 class="text-lg font-semibold">Sign in</h2>`)
		w.Rawf(`<input type="hidden" name="csrf_token" value="%s">`, csrf)
		w.Raw(`<input type="email" name="email" placeholder="Email" required class="w-full rounded-md border p-2">`)
		w.Raw(`<input type="password" name="password" placeholder="Password" required class="w-full rounded-md border p-2">`)
		w.Raw(`<button type="submit" class="w-full rounded-md bg-primary px-4 py-2 text-primary-foreground">Sign in</button></form>`)

		w.Raw(`<form method="post" action="/auth/signup" class="space-y-3"><h2 class="text-lg font-semibold">Create account</h2>`)
		w.Rawf(`<input type="hidden" name="csrf_token" value="%s">`, csrf)
		w.Raw(`<input type="text" name="full_name" placeholder="Full name" class="w-full rounded-md border p-2">`)
		w.Raw(`<input type="email" name="email" placeholder="Email" required class="w-full rounded-md border p-2">`)
		w.Raw(`<input type="password" name="password" placeholder="Password" required class="w-full rounded-md border p-2">`)
		w.Raw(`<button type="submit" class="w-full rounded-md border px-4 py-2">Sign up</button></form>`)

		w.Raw(`<form method="post" action="/auth/verify/resend" class="flex gap-2 md:col-span-2">`)
		w.Rawf(`<input type="hidden" name="csrf_token" value="%s">`, csrf)
		w.Raw(`<input type="email" name="email" placeholder="Email" required class="flex-1 rounded-md border p-2">`)
		w.Raw(`<button type="submit" class="rounded-md border px-4 py-2 text-sm">Resend confirmation</button></form>`)

		if len(providers) > 0 {
			w.Raw(`<div class="flex gap-3 md:col-span-2">`)
			for _, p := range providers {
				w.Rawf(`<a href="/auth/oauth/%s" class="flex-1 rounded-md border px-4 py-2 text-center">Continue with %s</a>`, p, providerLabel(p))
			}
			w.Raw(`</div>`)
		}

		w.Raw(`</section>`)
		return w.Err()
	}))
}

func providerLabel(p string) string {
	switch p {
	case "github":
		return "GitHub"
	case "google":
		return "Google"
	}
	return p
}
