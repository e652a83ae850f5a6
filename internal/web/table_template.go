package web

const tableHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Analyst price targets {{.Day}}</title>
  <style>
    body { margin: 0; padding: 24px; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; color: #111827; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #e5e7eb; padding: 6px 10px; text-align: left; }
    th { background: #f3f4f6; }
    .raised { color: #047857; }
    .lowered { color: #b91c1c; }
    .empty { color: #6b7280; font-style: italic; }
  </style>
</head>
<body>
  <h1>Analyst price targets for {{.Day}}</h1>
  <table>
    <thead>
      <tr><th>Company</th><th>Upgrade/Downgrade</th><th>Analyst</th><th>Price Target</th></tr>
    </thead>
    <tbody>
    {{- range .Announcements}}
      <tr>
        <td>{{.CompanyName}}</td>
        <td class="{{if eq .Direction.String "Raised"}}raised{{else}}lowered{{end}}">{{.Direction}}</td>
        <td>{{.Analyst}}</td>
        <td>{{with .PriceTarget}}{{.}}{{end}}</td>
      </tr>
    {{- else}}
      <tr><td class="empty" colspan="4">No price target changes found.</td></tr>
    {{- end}}
    </tbody>
  </table>
</body>
</html>
`
