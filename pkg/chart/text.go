package chart

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/iwvelando/sip-forecast/pkg/format"
)

const barWidth = 40

// TextRenderer draws charts as plain-text bars, for terminals.
type TextRenderer struct {
	w         io.Writer
	destroyed bool
}

// NewTextRenderer is a Factory writing to w. The initial config is drawn
// immediately.
func NewTextRenderer(w io.Writer) Factory {
	return func(cfg Config) (Renderer, error) {
		r := &TextRenderer{w: w}
		if err := r.Update(cfg); err != nil {
			return nil, err
		}
		return r, nil
	}
}

// Update redraws the chart.
func (r *TextRenderer) Update(cfg Config) error {
	if r.destroyed {
		return fmt.Errorf("renderer destroyed")
	}
	switch cfg.Type {
	case TypeDoughnut:
		return r.drawDonut(cfg.Data)
	case TypeLine:
		return r.drawLine(cfg.Data)
	default:
		return fmt.Errorf("unsupported chart type %q", cfg.Type)
	}
}

// Destroy stops the renderer from accepting updates.
func (r *TextRenderer) Destroy() {
	r.destroyed = true
}

func (r *TextRenderer) drawDonut(data Data) error {
	if len(data.Datasets) == 0 {
		return nil
	}
	values := data.Datasets[0].Data
	total := 0.0
	for _, v := range values {
		total += v
	}

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	for i, v := range values {
		label := ""
		if i < len(data.Labels) {
			label = data.Labels[i]
		}
		share := 0.0
		if total > 0 {
			share = v / total
		}
		fmt.Fprintf(tw, "%s\t%s\t%5.1f%%\t%s\n", label, format.Rupees(v), share*100, bar(share))
	}
	return tw.Flush()
}

func (r *TextRenderer) drawLine(data Data) error {
	var visible []Dataset
	for _, ds := range data.Datasets {
		if !ds.Hidden {
			visible = append(visible, ds)
		}
	}

	peak := 0.0
	for _, ds := range visible {
		for _, v := range ds.Data {
			if v > peak {
				peak = v
			}
		}
	}

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	header := []string{"Year"}
	for _, ds := range visible {
		header = append(header, ds.Label)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for i, label := range data.Labels {
		cells := []string{label}
		last := 0.0
		for _, ds := range visible {
			v := 0.0
			if i < len(ds.Data) {
				v = ds.Data[i]
			}
			cells = append(cells, format.Compact(v))
			last = v
		}
		share := 0.0
		if peak > 0 && len(visible) > 0 {
			share = last / peak
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t"+bar(share))
	}
	return tw.Flush()
}

func bar(share float64) string {
	if share < 0 {
		share = 0
	}
	if share > 1 {
		share = 1
	}
	return strings.Repeat("#", int(share*barWidth+0.5))
}
