package compare

// Palette maps a selection index to a chart colour
type Palette []string

// DefaultPalette has one colour per selectable keyword
var DefaultPalette = Palette{"#3b82f6", "#ef4444", "#10b981", "#f59e0b", "#8b5cf6", "#ec4899"}

// Color returns the colour for index, cycling when the palette is short
func (p Palette) Color(index int) string {
	if len(p) == 0 || index < 0 {
		return ""
	}
	return p[index%len(p)]
}

// LegendItem describes one compared entity, including ones with no data
type LegendItem struct {
	EntityID int64
	Label    string
	Index    int
	Color    string
	Points   int
}

// Legend lists every series in input order
func Legend(series []Series, palette Palette) []LegendItem {
	labels := Labels(series)
	items := make([]LegendItem, len(series))
	for i, s := range series {
		items[i] = LegendItem{
			EntityID: s.EntityID,
			Label:    labels[i],
			Index:    s.Index,
			Color:    palette.Color(s.Index),
			Points:   len(s.Points),
		}
	}
	return items
}
