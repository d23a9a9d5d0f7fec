package routes

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/internal/config"
)

const docsIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <style>
    :root { color-scheme: light; --bg: #f6f7f4; --text: #132019; --muted: #536258; --accent: #1f6f4a; --border: #d8ddd6; }
    * { box-sizing: border-box; }
    body { margin: 0; font-family: Georgia, "Times New Roman", serif; color: var(--text); background: var(--bg); }
    main { max-width: 1120px; margin: 0 auto; padding: 48px 20px 64px; }
    .panel { background: #fff; border: 1px solid var(--border); border-radius: 18px; padding: 24px; margin-bottom: 20px; }
    h1 { margin: 0 0 12px; font-size: clamp(2rem, 5vw, 3rem); }
    p { margin: 0; color: var(--muted); line-height: 1.6; }
    table { width: 100%; border-collapse: collapse; }
    th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid var(--border); }
    th { font-size: 0.85rem; text-transform: uppercase; letter-spacing: 0.08em; color: var(--muted); }
    code { font-size: 0.95rem; }
    .method { font-weight: 700; color: var(--accent); }
  </style>
</head>
<body>
  <main>
    <section class="panel">
      <h1>{{ .Title }}</h1>
      <p>Routes registered on this server as of {{ .LoadedAt }}. Everything under <code>/api/v1</code> needs a Supabase session token. The same index is available as JSON at <code>/docs</code>.</p>
    </section>
    <section class="panel">
      <table>
        <thead><tr><th>Method</th><th>Path</th><th>Auth</th></tr></thead>
        <tbody>
        {{ range .Routes }}<tr><td class="method">{{ .Method }}</td><td><code>{{ .Path }}</code></td><td>{{ if .Authenticated }}bearer{{ else }}public{{ end }}</td></tr>
        {{ end }}</tbody>
      </table>
    </section>
  </main>
</body>
</html>
`

type routeDoc struct {
	Method        string `json:"method"`
	Path          string `json:"path"`
	Authenticated bool   `json:"authenticated"`
}

type docsPageData struct {
	Title    string
	LoadedAt string
	Routes   []routeDoc
}

func registerDocsRoutes(app *fiber.App, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}

	indexTemplate, err := template.New("docs-index").Parse(docsIndexHTML)
	if err != nil {
		return fmt.Errorf("parse docs template: %w", err)
	}
	loadedAt := time.Now().UTC().Format(time.RFC3339)

	app.Get("/docs", func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, fiber.MIMEApplicationJSONCharsetUTF8)
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"routes":    collectRouteDocs(app),
			"loaded_at": loadedAt,
		})
	})
	app.Get("/docs/ui", func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, fiber.MIMETextHTMLCharsetUTF8)
		c.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; base-uri 'none'; form-action 'none'; frame-ancestors 'none'")

		var body bytes.Buffer
		err := indexTemplate.Execute(&body, docsPageData{
			Title:    "Wellness API Routes",
			LoadedAt: loadedAt,
			Routes:   collectRouteDocs(app),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render api docs")
		}
		return c.Status(fiber.StatusOK).Send(body.Bytes())
	})

	return nil
}

// collectRouteDocs lists handler routes, skipping the HEAD twins fiber adds for every GET.
func collectRouteDocs(app *fiber.App) []routeDoc {
	seen := make(map[string]struct{})
	var out []routeDoc
	for _, route := range app.GetRoutes(true) {
		if route.Method == http.MethodHead || route.Method == http.MethodConnect || route.Method == http.MethodTrace {
			continue
		}
		path := route.Path
		if len(path) > 1 {
			path = strings.TrimRight(path, "/")
		}
		key := route.Method + " " + path
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, routeDoc{
			Method:        route.Method,
			Path:          path,
			Authenticated: strings.HasPrefix(path, "/api/v1"),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func applyDocsBaseHeaders(c *fiber.Ctx, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set("Referrer-Policy", "no-referrer")
	c.Set("Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()")
	c.Set("Cross-Origin-Resource-Policy", "same-origin")
	c.Set("Cross-Origin-Opener-Policy", "same-origin")
	c.Set("X-Robots-Tag", "noindex, nofollow")
}
