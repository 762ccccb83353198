// Package report renders a finished run report for the operator. Unconfirmed
// submissions render exactly like hard failures: both are "not safely known
// to be published".
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/propline/promopost/internal/types"
)

// Builder renders run summaries.
type Builder struct {
	template *template.Template
}

// New creates a report builder.
func New() (*Builder, error) {
	tmpl, err := template.New("report").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Builder{template: tmpl}, nil
}

// Summary is a rendered run report ready for sending or display.
type Summary struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	CreatedAt time.Time
}

// reportData is the template data structure
type reportData struct {
	RunID    string
	Date     string
	Span     string
	Items    []itemData
	Counts   countData
	AllClean bool
}

type itemData struct {
	ID      string
	Address string
	Status  string
	Detail  string
	PostRef string
	Safe    bool
}

type countData struct {
	Published  int
	NotSafe    int
	Attempted  int
	TotalItems int
}

// Build renders one run report.
func (b *Builder) Build(r *types.RunReport) (*Summary, error) {
	data := reportData{
		RunID:    r.RunID,
		Date:     r.StartedAt.Format("Monday, January 2"),
		Span:     r.Span().Round(time.Second).String(),
		Counts:   counts(r),
		AllClean: r.Clean(),
	}

	for _, item := range r.Items {
		data.Items = append(data.Items, itemData{
			ID:      item.Item.ID,
			Address: item.Item.Address,
			Status:  statusLabel(item.Status),
			Detail:  lastDetail(item),
			PostRef: item.PostRef,
			Safe:    item.Status == types.ItemPublished,
		})
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	subject := fmt.Sprintf("Promotion run - %d published, %d need attention - %s",
		data.Counts.Published, data.Counts.NotSafe, r.StartedAt.Format("Jan 2"))

	return &Summary{
		Subject:   subject,
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		CreatedAt: time.Now(),
	}, nil
}

func counts(r *types.RunReport) countData {
	return countData{
		Published:  r.Published,
		NotSafe:    r.Failed + r.Unconfirmed + r.NotAttempted + r.Cancelled,
		Attempted:  r.Published + r.Failed + r.Unconfirmed,
		TotalItems: len(r.Items),
	}
}

// statusLabel folds unconfirmed into the failure bucket for display; the
// operator must not read an ambiguous submission as a success.
func statusLabel(s types.ItemStatus) string {
	switch s {
	case types.ItemPublished:
		return "Published"
	case types.ItemFailed, types.ItemUnconfirmed:
		return "Not published"
	case types.ItemNotAttempted:
		return "Not attempted"
	case types.ItemCancelled:
		return "Cancelled"
	}
	return string(s)
}

func lastDetail(item types.ItemResult) string {
	for i := len(item.Stages) - 1; i >= 0; i-- {
		if !item.Stages[i].Succeeded {
			return fmt.Sprintf("%s: %s", item.Stages[i].Stage, item.Stages[i].Detail)
		}
	}
	return ""
}

func buildPlainText(data reportData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Promotion run %s\n%s (%s)\n\n", data.RunID, data.Date, data.Span)

	for i, item := range data.Items {
		fmt.Fprintf(&buf, "%d. %s — %s", i+1, item.Address, item.Status)
		if item.PostRef != "" {
			fmt.Fprintf(&buf, " (%s)", item.PostRef)
		}
		if item.Detail != "" {
			fmt.Fprintf(&buf, "\n   %s", item.Detail)
		}
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "\n%d of %d published; %d need attention.\n",
		data.Counts.Published, data.Counts.TotalItems, data.Counts.NotSafe)
	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Promotion run {{.RunID}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 640px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #2b6a4f; margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 20px; }
        .item { border-bottom: 1px solid #eee; padding: 12px 0; }
        .item:last-child { border-bottom: none; }
        .address { font-weight: bold; color: #333; }
        .status-ok { color: #2b6a4f; font-weight: bold; }
        .status-bad { color: #b3261e; font-weight: bold; }
        .detail { color: #666; font-size: 13px; margin-top: 4px; }
        .link { color: #2b6a4f; text-decoration: none; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Listing promotion run</h1>
        <div class="date">{{.Date}} · {{.Span}} · run {{.RunID}}</div>

        {{range .Items}}
        <div class="item">
            <div class="address">{{.Address}}</div>
            {{if .Safe}}<div class="status-ok">{{.Status}}</div>{{else}}<div class="status-bad">{{.Status}}</div>{{end}}
            {{if .Detail}}<div class="detail">{{.Detail}}</div>{{end}}
            {{if .PostRef}}<a href="{{.PostRef}}" class="link">View post →</a>{{end}}
        </div>
        {{end}}

        <div class="footer">
            {{.Counts.Published}} of {{.Counts.TotalItems}} published · generated by promopost
        </div>
    </div>
</body>
</html>`
