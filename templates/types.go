package templates

// KPI is one summary card.
type KPI struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Bar is one labelled count in a bar, pie or histogram chart.
type Bar struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ChartData is a render-ready chart. Empty charts render a "no data" notice.
type ChartData struct {
	Title  string `json:"title"`
	XLabel string `json:"x_label"`
	YLabel string `json:"y_label"`
	Bars   []Bar  `json:"bars"`
}

// Empty reports whether the chart has nothing to draw.
func (c ChartData) Empty() bool {
	for _, b := range c.Bars {
		if b.Count > 0 {
			return false
		}
	}
	return true
}

// FlowData is a cross-tab of two columns; Cells[i][j] counts Rows[i] with
// Cols[j].
type FlowData struct {
	Title    string   `json:"title"`
	RowLabel string   `json:"row_label"`
	ColLabel string   `json:"col_label"`
	Rows     []string `json:"rows"`
	Cols     []string `json:"cols"`
	Cells    [][]int  `json:"cells"`
}

// Option is one entry of a select. Value is the raw stored value; Label is
// only for display.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Select is a dropdown bound to a query parameter.
type Select struct {
	Name    string
	Label   string
	Options []Option
}

// ZoneLink is one zone button.
type ZoneLink struct {
	Zone   string
	Href   string
	Active bool
}

// DetailTable is the filtered record listing.
type DetailTable struct {
	Headers []string
	Rows    [][]string
	Filters []Select
}

// DashboardPageData is everything the dashboard page renders.
type DashboardPageData struct {
	Title   string
	LogoB64 string
	// Zone rides along as a hidden field so submitting the filter form keeps
	// the zone picked with the buttons.
	Zone string

	MatchSelect Select
	TypeSelect  *Select

	KPIs []KPI

	TowerChart  ChartData
	JumperChart ChartData
	CountChart  ChartData

	Zones     []ZoneLink
	ZoneChart ChartData

	Flow FlowData

	Detail DetailTable
}
