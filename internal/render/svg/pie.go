// Package svg draws render charts as inline SVG fragments.
package svg

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"sync"

	"budgetdash/internal/render"
)

// DefaultMountID is the element id the chart is mounted under.
const DefaultMountID = "category-chart"

// Canvas hosts chart markup by id.
type Canvas interface {
	Mount(id string, markup template.HTML)
	Unmount(id string)
}

// Factory creates pie charts mounted on a Canvas.
type Factory struct {
	canvas Canvas
	id     string
}

var _ render.ChartFactory = (*Factory)(nil)

// NewFactory returns a factory mounting charts under id. An empty id uses
// DefaultMountID.
func NewFactory(canvas Canvas, id string) *Factory {
	if id == "" {
		id = DefaultMountID
	}
	return &Factory{canvas: canvas, id: id}
}

// Pie is a mounted pie chart.
type Pie struct {
	canvas Canvas
	id     string
	once   sync.Once
}

// Dispose detaches the chart from its canvas. Calling it twice is a no-op.
func (p *Pie) Dispose() {
	p.once.Do(func() { p.canvas.Unmount(p.id) })
}

func (f *Factory) NewPieChart(data render.PieData) (render.Chart, error) {
	markup, err := Markup(data)
	if err != nil {
		return nil, err
	}
	f.canvas.Mount(f.id, markup)
	return &Pie{canvas: f.canvas, id: f.id}, nil
}

type segment struct {
	Label string
	Color string
	Path  string
	Full  bool
	Value string
}

type pieView struct {
	Label    string
	Empty    bool
	Segments []segment
	Legend   []segment
}

var pieTemplate = template.Must(template.New("pie").Parse(`<figure class="chart" aria-label="{{.Label}}">
<svg viewBox="-1.05 -1.05 2.1 2.1" role="img" class="chart__pie{{if .Empty}} chart__pie--empty{{end}}"><title>{{.Label}}</title>
{{- if .Empty}}<circle r="1" fill="#eee"/>{{end}}
{{- range .Segments}}{{if .Full}}<circle r="1" fill="{{.Color}}"><title>{{.Label}}: {{.Value}}</title></circle>{{else}}<path d="{{.Path}}" fill="{{.Color}}"><title>{{.Label}}: {{.Value}}</title></path>{{end}}{{end}}
</svg>
<figcaption>{{.Label}}</figcaption>
<ul class="chart__legend">{{range .Legend}}<li><span class="chart__swatch" style="background-color: {{.Color}}"></span>{{.Label}}</li>{{end}}</ul>
</figure>`))

// Markup renders data as an SVG pie with a legend. Slices start at twelve
// o'clock and run clockwise; non-positive values are kept in the legend only.
func Markup(data render.PieData) (template.HTML, error) {
	v := pieView{Label: data.Label}
	total := 0.0
	for _, s := range data.Slices {
		if s.Value > 0 {
			total += s.Value
		}
	}
	v.Empty = total <= 0

	angle := -math.Pi / 2
	for _, s := range data.Slices {
		seg := segment{Label: s.Label, Color: s.Color, Value: strconv.FormatFloat(s.Value, 'f', 2, 64)}
		v.Legend = append(v.Legend, seg)
		if v.Empty || s.Value <= 0 {
			continue
		}
		frac := s.Value / total
		if frac >= 1 {
			seg.Full = true
		} else {
			next := angle + frac*2*math.Pi
			seg.Path = arc(angle, next)
			angle = next
		}
		v.Segments = append(v.Segments, seg)
	}

	var buf bytes.Buffer
	if err := pieTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("execute pie template: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// arc is the path of a unit-circle wedge between two angles in radians.
func arc(from, to float64) string {
	large := 0
	if to-from > math.Pi {
		large = 1
	}
	return fmt.Sprintf("M 0 0 L %s %s A 1 1 0 %d 1 %s %s Z",
		coord(math.Cos(from)), coord(math.Sin(from)), large,
		coord(math.Cos(to)), coord(math.Sin(to)))
}

func coord(f float64) string {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	if s == "-0.0000" {
		return "0.0000"
	}
	return s
}
