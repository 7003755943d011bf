package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// AssetsHost serves the echarts script and themes.
const AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

var loadButtons = map[string]string{
	SectionOverview:   "Refresh",
	SectionModels:     "Train Models",
	SectionClustering: "Analyze Segments",
	SectionPCA:        "Run PCA",
}

// ChartHTML is the embeddable markup of one widget.
type ChartHTML struct {
	Element template.HTML
	Script  template.HTML
}

// Panel is the render model of one view.
type Panel struct {
	Status Status
	Charts map[string]*ChartHTML
	Button string
	Active bool
}

type pageData struct {
	Title       string
	AssetsHost  string
	ThemeScript string
	Sections    []SectionState
	Panels      []Panel
}

// PanelOf captures the status and live widgets of v.
func PanelOf(v View) Panel {
	status := v.Status()
	p := Panel{
		Status: status,
		Charts: make(map[string]*ChartHTML, len(status.Charts)),
		Button: loadButtons[v.Name()],
	}
	for _, name := range status.Charts {
		w, ok := v.Owner().Get(name)
		if !ok {
			continue
		}
		// Element and Script are generated by go-echarts.
		p.Charts[name] = &ChartHTML{
			Element: template.HTML(w.Element()),
			Script:  template.HTML(w.Script()),
		}
	}
	return p
}

// RenderPage writes the full dashboard page with the active section visible.
func (d *Dashboard) RenderPage(w io.Writer) error {
	active := d.router.Active()
	data := pageData{
		Title:      "Customer Churn Analytics Dashboard",
		AssetsHost: AssetsHost,
		Sections:   d.router.Sections(),
	}
	if theme := d.charts.Get().Theme; theme != "" && theme != "white" {
		data.ThemeScript = AssetsHost + "themes/" + theme + ".js"
	}
	for _, v := range d.Views() {
		p := PanelOf(v)
		p.Active = v.Name() == active
		data.Panels = append(data.Panels, p)
	}

	if err := pageTemplate.ExecuteTemplate(w, "page", data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// RenderFragment writes the panel markup of the view called name.
func (d *Dashboard) RenderFragment(w io.Writer, name string) error {
	v, err := d.View(name)
	if err != nil {
		return err
	}
	if err := pageTemplate.ExecuteTemplate(w, "fragment", PanelOf(v)); err != nil {
		return fmt.Errorf("failed to render %s fragment: %w", name, err)
	}
	return nil
}
