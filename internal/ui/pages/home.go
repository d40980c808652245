package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/ui"
)

// Home shows the upload form to signed-in users and a short pitch to everyone else.
func Home(maxUpload string) templ.Component {
	return ui.Layout("", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := ui.NewWriter(out)
		if ctxkeys.User(ctx) == nil {
			w.Raw(`<section class="mx-auto max-w-xl space-y-4 py-16 text-center">`)
			w.Raw(`<h1 class="text-3xl font-bold">Share files with a link</h1>`)
			w.Rawf(`<p class="text-muted-foreground">Upload up to %s and send the link to anyone. Links stay valid for seven days.</p>`, maxUpload)
			w.Raw(`<a href="/auth" class="inline-block rounded-md bg-primary px-4 py-2 text-primary-foreground">Get started</a>`)
			w.Raw(`</section>`)
			return w.Err()
		}

		w.Raw(`<section class="mx-auto max-w-xl space-y-6 py-8">`)
		w.Raw(`<h1 class="text-2xl font-bold">Share a file</h1>`)
		w.Raw(`<form id="upload-form" class="space-y-4" enctype="multipart/form-data">`)
		w.Raw(`<input type="file" name="file" required class="block w-full text-sm">`)
		w.Rawf(`<p class="text-xs text-muted-foreground">Maximum size %s</p>`, maxUpload)
		w.Raw(`<input type="email" name="recipient_email" placeholder="Recipient email (optional)" class="w-full rounded-md border p-2">`)
		w.Raw(`<textarea name="message" rows="3" maxlength="2000" placeholder="Message (optional, markdown)" class="w-full rounded-md border p-2"></textarea>`)
		w.Raw(`<button type="submit" class="rounded-md bg-primary px-4 py-2 text-primary-foreground">Upload</button>`)
		w.Raw(`</form><div id="upload-result" class="text-sm"></div>`)
		w.Raw(`<h2 class="text-lg font-semibold">Your shares</h2><ul id="share-list" class="divide-y text-sm"></ul>`)
		w.Raw(`</section>`)
		w.Rawf(`<script nonce="%s">`, templ.GetNonce(ctx))
		w.Raw(uploadScript)
		w.Raw(`</script>`)
		return w.Err()
	}))
}

const uploadScript = `
(function () {
  const csrf = document.querySelector('meta[name="csrf-token"]').content;
  const form = document.getElementById("upload-form");
  const result = document.getElementById("upload-result");
  const list = document.getElementById("share-list");

  function row(s) {
    const li = document.createElement("li");
    li.className = "flex items-center justify-between py-2";
    const a = document.createElement("a");
    a.href = s.share_link;
    a.textContent = s.file_name;
    a.className = "underline";
    const del = document.createElement("button");
    del.textContent = "Delete";
    del.className = "text-destructive";
    del.onclick = async function () {
      const res = await fetch("/app/shares/" + s.id, { method: "DELETE", headers: { "X-CSRF-Token": csrf } });
      if (res.ok) li.remove();
    };
    li.append(a, del);
    return li;
  }

  async function load() {
    const res = await fetch("/app/shares", { headers: { Accept: "application/json" } });
    if (!res.ok) return;
    const body = await res.json();
    list.replaceChildren(...body.shares.map(row));
  }

  form.addEventListener("submit", async function (e) {
    e.preventDefault();
    result.textContent = "Uploading...";
    const res = await fetch("/app/shares", { method: "POST", body: new FormData(form), headers: { "X-CSRF-Token": csrf } });
    const body = await res.json();
    if (!res.ok) {
      result.textContent = body.error;
      return;
    }
    result.textContent = "Share link: " + body.share_link;
    form.reset();
    load();
  });

  load();
})();
`
